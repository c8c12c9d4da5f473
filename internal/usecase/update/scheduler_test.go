package update

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var pollTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	links     *fakeLinks
	github    *fakeAdapter
	so        *fakeAdapter
	sender    *recordingSender
	observer  *recordingObserver
	scheduler *Scheduler
}

func newHarness(t *testing.T, links ...entity.TrackedLink) *harness {
	t.Helper()
	h := &harness{
		links:    &fakeLinks{links: links},
		github:   newFakeAdapter(),
		so:       newFakeAdapter(),
		sender:   &recordingSender{},
		observer: &recordingObserver{},
	}
	h.scheduler = NewScheduler(
		h.links,
		NewChecker(DefaultRoutes(h.github, h.so)...),
		h.sender,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return pollTime }),
		WithObserver(h.observer),
	)
	return h
}

func (h *harness) cycle(t *testing.T) *CycleStats {
	t.Helper()
	stats, err := h.scheduler.RunCycle(context.Background())
	require.NoError(t, err)
	return stats
}

func prEvent(title string, created time.Time) entity.UpdateEvent {
	return entity.UpdateEvent{
		Platform:  entity.PlatformGitHub,
		Type:      entity.UpdateTypePR,
		Title:     title,
		Username:  "dev",
		CreatedAt: created,
		Preview:   "preview of " + title,
	}
}

/* ──── first sight ──── */

func TestRunCycle_FirstSightSuppression(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1}})
	h.github.on(url, onlyAfter(prEvent("old", pollTime.Add(-time.Hour))))

	stats := h.cycle(t)

	assert.Empty(t, h.sender.sent())
	calls := h.github.callsFor(url)
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].lastCheck)

	mark, ok := h.scheduler.Watermark(url)
	require.True(t, ok)
	assert.Equal(t, pollTime, mark)
	assert.Equal(t, 1, stats.Checked)
	assert.Zero(t, stats.Notified)
}

/* ──── watermark advance ──── */

func TestRunCycle_NotifiesEveryEventAndAdvancesWatermark(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{7, 8, 9}})
	h.cycle(t)

	t1 := pollTime.Add(time.Minute)
	t2 := pollTime.Add(3 * time.Minute)
	t3 := pollTime.Add(2 * time.Minute)
	h.github.on(url, onlyAfter(prEvent("a", t1), prEvent("b", t2), prEvent("c", t3)))

	stats := h.cycle(t)

	sent := h.sender.sent()
	require.Len(t, sent, 3)
	for i, u := range sent {
		assert.Equal(t, int64(i+1), u.ID)
		assert.Equal(t, url, u.URL)
		assert.Equal(t, []int64{7, 8, 9}, u.ChatIDs)
	}
	assert.Contains(t, sent[0].Description, "Title: a")
	assert.Contains(t, sent[1].Description, "Title: b")
	assert.Contains(t, sent[2].Description, "Title: c")

	mark, ok := h.scheduler.Watermark(url)
	require.True(t, ok)
	assert.Equal(t, t2, mark)
	assert.Equal(t, 3, stats.Events)
	assert.Equal(t, 3, stats.Notified)
}

func TestRunCycle_IdsIncreaseAcrossLinksAndCycles(t *testing.T) {
	a := "https://github.com/o/a"
	b := "https://stackoverflow.com/questions/1"
	h := newHarness(t,
		entity.TrackedLink{URL: a, ChatIDs: []int64{1}},
		entity.TrackedLink{URL: b, ChatIDs: []int64{2}},
	)
	h.cycle(t)

	h.github.on(a, onlyAfter(prEvent("a1", pollTime.Add(time.Minute))))
	h.so.on(b, onlyAfter(entity.UpdateEvent{
		Platform:  entity.PlatformStackOverflow,
		Type:      entity.UpdateTypeAnswer,
		CreatedAt: pollTime.Add(time.Minute),
	}))
	h.cycle(t)

	h.github.on(a, onlyAfter(prEvent("a1", pollTime.Add(time.Minute)), prEvent("a2", pollTime.Add(time.Hour))))
	h.cycle(t)

	var ids []int64
	for _, u := range h.sender.sent() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

/* ──── quiet cycles ──── */

func TestRunCycle_QuietCyclesAreIdempotent(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1}})
	h.github.on(url, onlyAfter())
	h.cycle(t)
	first, _ := h.scheduler.Watermark(url)

	h.cycle(t)
	h.cycle(t)

	second, _ := h.scheduler.Watermark(url)
	assert.Equal(t, first, second)
	assert.Empty(t, h.sender.sent())

	calls := h.github.callsFor(url)
	require.Len(t, calls, 3)
	assert.Equal(t, first, *calls[2].lastCheck)
}

/* ──── isolation ──── */

func TestRunCycle_FailuresAreIsolatedPerLink(t *testing.T) {
	failing := "https://github.com/o/failing"
	panicking := "https://github.com/o/panicking"
	healthy := "https://github.com/o/healthy"
	h := newHarness(t,
		entity.TrackedLink{URL: failing, ChatIDs: []int64{1}},
		entity.TrackedLink{URL: panicking, ChatIDs: []int64{2}},
		entity.TrackedLink{URL: healthy, ChatIDs: []int64{3}},
	)
	h.cycle(t)

	h.github.on(failing, func(*time.Time) ([]entity.UpdateEvent, error) {
		return nil, errors.New("upstream exploded")
	})
	h.github.on(panicking, func(*time.Time) ([]entity.UpdateEvent, error) {
		panic("adapter bug")
	})
	h.github.on(healthy, onlyAfter(prEvent("ok", pollTime.Add(time.Minute))))

	stats := h.cycle(t)

	assert.Equal(t, 3, stats.Checked)
	assert.Equal(t, 2, stats.Failed)
	sent := h.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, healthy, sent[0].URL)

	for _, url := range []string{failing, panicking} {
		mark, ok := h.scheduler.Watermark(url)
		require.True(t, ok)
		assert.Equal(t, pollTime, mark, url)
	}
	mark, _ := h.scheduler.Watermark(healthy)
	assert.Equal(t, pollTime.Add(time.Minute), mark)
}

func TestRunCycle_FailureOnFirstSightLeavesNoWatermark(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1}})
	h.github.on(url, func(*time.Time) ([]entity.UpdateEvent, error) {
		return nil, errors.New("down")
	})

	h.cycle(t)

	_, ok := h.scheduler.Watermark(url)
	assert.False(t, ok)
}

/* ──── end to end ──── */

func TestRunCycle_TwoCycleScenario(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1, 2}})
	h.github.on(url, onlyAfter())

	h.cycle(t)
	w, ok := h.scheduler.Watermark(url)
	require.True(t, ok)
	assert.Empty(t, h.sender.sent())

	t2 := w.Add(90 * time.Second)
	h.github.on(url, onlyAfter(entity.UpdateEvent{
		Platform:  entity.PlatformGitHub,
		Type:      entity.UpdateTypePR,
		Title:     "Fix race",
		Username:  "alice",
		CreatedAt: t2,
		Preview:   "fixes the race",
	}))

	h.cycle(t)

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, &entity.LinkUpdate{
		ID:      1,
		URL:     url,
		ChatIDs: []int64{1, 2},
		Description: "Platform: GitHub\nType: PR\nTitle: Fix race\nUser: alice\n" +
			"Created: " + t2.Format(time.RFC3339) + "\nPreview: fixes the race",
	}, sent[0])

	mark, _ := h.scheduler.Watermark(url)
	assert.Equal(t, t2, mark)
}

func TestRunCycle_UnknownPlatformNeverNotified(t *testing.T) {
	const url = "https://example.com/page"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1}})

	h.cycle(t)
	h.cycle(t)

	assert.Empty(t, h.sender.sent())
	assert.Empty(t, h.github.callsFor(url))
	assert.Empty(t, h.so.callsFor(url))
}

/* ──── snapshot handling ──── */

func TestRunCycle_PrunesUntrackedLinks(t *testing.T) {
	a := "https://github.com/o/a"
	b := "https://github.com/o/b"
	h := newHarness(t,
		entity.TrackedLink{URL: a, ChatIDs: []int64{1}},
		entity.TrackedLink{URL: b, ChatIDs: []int64{1}},
	)
	h.cycle(t)

	h.links.set(entity.TrackedLink{URL: a, ChatIDs: []int64{1}})
	h.cycle(t)

	_, okA := h.scheduler.Watermark(a)
	_, okB := h.scheduler.Watermark(b)
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestRunCycle_SnapshotError(t *testing.T) {
	h := newHarness(t)
	h.links.err = errors.New("db down")

	stats, err := h.scheduler.RunCycle(context.Background())

	require.Error(t, err)
	assert.Zero(t, stats.Checked)
	require.Len(t, h.observer.errs, 1)
	assert.Error(t, h.observer.errs[0])
}

func TestRunCycle_CanceledContextStopsAtLinkBoundary(t *testing.T) {
	h := newHarness(t,
		entity.TrackedLink{URL: "https://github.com/o/a", ChatIDs: []int64{1}},
		entity.TrackedLink{URL: "https://github.com/o/b", ChatIDs: []int64{1}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	h.github.on("https://github.com/o/a", func(*time.Time) ([]entity.UpdateEvent, error) {
		cancel()
		return nil, nil
	})

	stats, err := h.scheduler.RunCycle(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Checked)
	assert.Empty(t, h.github.callsFor("https://github.com/o/b"))
}

func TestRunCycle_ReportsToObserver(t *testing.T) {
	h := newHarness(t, entity.TrackedLink{URL: "https://github.com/o/r", ChatIDs: []int64{1}})

	h.cycle(t)

	require.Len(t, h.observer.stats, 1)
	assert.Equal(t, 1, h.observer.stats[0].Links)
	assert.NoError(t, h.observer.errs[0])
}

func TestRunCycle_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	h := newHarness(t,
		entity.TrackedLink{URL: "https://github.com/o/a", ChatIDs: []int64{1}},
		entity.TrackedLink{URL: "https://github.com/o/b", ChatIDs: []int64{1}},
	)
	h.cycle(t)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"check-link", "check-link", "poll-cycle"}, names)
}

/* ──── lifecycle ──── */

func waitCall(t *testing.T, a *fakeAdapter) {
	t.Helper()
	select {
	case <-a.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a poll")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1}})

	assert.False(t, h.scheduler.Running())
	h.scheduler.Stop()

	h.scheduler.Start(time.Hour)
	h.scheduler.Start(time.Hour)
	waitCall(t, h.github)
	assert.True(t, h.scheduler.Running())

	h.scheduler.Stop()
	assert.False(t, h.scheduler.Running())
	h.scheduler.Stop()

	h.scheduler.Start(time.Hour)
	waitCall(t, h.github)
	h.scheduler.Stop()

	assert.Len(t, h.github.callsFor(url), 2)
}

func TestScheduler_PollsOnInterval(t *testing.T) {
	h := newHarness(t, entity.TrackedLink{URL: "https://github.com/o/r", ChatIDs: []int64{1}})

	h.scheduler.Start(0)
	t.Cleanup(h.scheduler.Stop)

	waitCall(t, h.github)
	waitCall(t, h.github)
}

// tick fires a few milliseconds after every call to Next.
type tick struct{}

func (tick) Next(t time.Time) time.Time { return t.Add(5 * time.Millisecond) }

// panickyLinks panics on its first snapshot and serves links afterwards.
type panickyLinks struct {
	calls atomic.Int32
	links []entity.TrackedLink
}

func (p *panickyLinks) ListTracked(context.Context) ([]entity.TrackedLink, error) {
	if p.calls.Add(1) == 1 {
		panic("snapshot exploded")
	}
	return p.links, nil
}

func TestScheduler_LoopSurvivesCyclePanic(t *testing.T) {
	const url = "https://github.com/o/r"
	github := newFakeAdapter()
	observer := &recordingObserver{}
	s := NewScheduler(
		&panickyLinks{links: []entity.TrackedLink{{URL: url, ChatIDs: []int64{1}}}},
		NewChecker(DefaultRoutes(github, newFakeAdapter())...),
		&recordingSender{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithObserver(observer),
	)

	s.StartWithSchedule(tick{})
	t.Cleanup(s.Stop)

	waitCall(t, github)
	assert.True(t, s.Running())

	observer.mu.Lock()
	defer observer.mu.Unlock()
	require.NotEmpty(t, observer.errs)
	assert.ErrorContains(t, observer.errs[0], "snapshot exploded")
}

func TestScheduler_RestartDuringStopDoesNotOverlap(t *testing.T) {
	const url = "https://github.com/o/r"
	h := newHarness(t, entity.TrackedLink{URL: url, ChatIDs: []int64{1}})

	var (
		mu        sync.Mutex
		active    int
		maxActive int
	)
	release := make(chan struct{})
	h.github.on(url, func(*time.Time) ([]entity.UpdateEvent, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		<-release

		mu.Lock()
		active--
		mu.Unlock()
		return nil, nil
	})

	h.scheduler.Start(time.Hour)
	waitCall(t, h.github)

	stopped := make(chan struct{})
	go func() {
		h.scheduler.Stop()
		close(stopped)
	}()
	time.Sleep(20 * time.Millisecond)

	started := make(chan struct{})
	go func() {
		h.scheduler.Start(time.Hour)
		close(started)
	}()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.scheduler.Running(), "running until the old loop exits")

	close(release)
	<-stopped
	<-started
	waitCall(t, h.github)
	h.scheduler.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive)
	assert.Len(t, h.github.callsFor(url), 2)
}

type ctxLoggingAdapter struct{}

func (ctxLoggingAdapter) GetNewUpdates(ctx context.Context, _ string, _ *time.Time) ([]entity.UpdateEvent, error) {
	logging.FromContext(ctx).Info("adapter called")
	return nil, nil
}

func TestRunCycle_LinkLoggerInContext(t *testing.T) {
	const url = "https://github.com/o/r"
	var buf bytes.Buffer
	s := NewScheduler(
		&fakeLinks{links: []entity.TrackedLink{{URL: url, ChatIDs: []int64{1}}}},
		NewChecker(Route{HostFragment: "github.com", Platform: entity.PlatformGitHub, Adapter: ctxLoggingAdapter{}}),
		&recordingSender{},
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	_, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "msg=\"adapter called\" url="+url)
}
