package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/observability/logging"
	"link-tracker/internal/observability/metrics"
	"link-tracker/internal/observability/tracing"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// minInterval is the shortest supported polling interval.
const minInterval = time.Second

// CycleStats summarizes a single poll cycle.
type CycleStats struct {
	Links    int
	Checked  int
	Failed   int
	Events   int
	Notified int
	Duration time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for first-poll watermarks.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers an observer notified after every cycle.
func WithObserver(observer Observer) Option {
	return func(s *Scheduler) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithLocation sets the time zone cron schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// Scheduler periodically polls every tracked link and sends one LinkUpdate
// per new event to the link's subscribers.
//
// Cycles never overlap and links are processed one at a time. Watermarks and
// update ids live in memory only, so a restart begins with first-sight
// suppression and ids starting again at 1.
type Scheduler struct {
	links    LinkSource
	checker  UpdateChecker
	sender   Sender
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
	location *time.Location

	watermarks *watermarkTable
	lastID     atomic.Int64

	// lifecycle serializes Start and Stop; mu guards cancel and done.
	lifecycle sync.Mutex
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(links LinkSource, checker UpdateChecker, sender Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		links:      links,
		checker:    checker,
		sender:     sender,
		logger:     slog.Default(),
		now:        time.Now,
		observer:   nopObserver{},
		location:   time.UTC,
		watermarks: newWatermarkTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins polling every interval, running the first cycle immediately.
// Intervals below one second are raised to one second. Start is a no-op
// while the scheduler is running.
func (s *Scheduler) Start(interval time.Duration) {
	if interval < minInterval {
		interval = minInterval
	}
	s.StartWithSchedule(cron.Every(interval))
}

// StartWithSchedule begins polling on schedule, running the first cycle
// immediately. It is a no-op while the scheduler is running.
func (s *Scheduler) StartWithSchedule(schedule cron.Schedule) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, schedule, done)
	s.logger.Info("update scheduler started")
}

// Stop cancels the poll loop and waits for it to exit. An in-flight cycle is
// abandoned at its next suspension point. Stop is a no-op when stopped.
// A Start issued meanwhile waits until the old loop has exited.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	s.logger.Info("update scheduler stopped")
}

// Running reports whether the poll loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Watermark returns the watermark recorded for url.
func (s *Scheduler) Watermark(url string) (time.Time, bool) {
	return s.watermarks.get(url)
}

func (s *Scheduler) loop(ctx context.Context, schedule cron.Schedule, done chan struct{}) {
	defer close(done)

	for {
		s.runGuarded(ctx)

		next := schedule.Next(time.Now().In(s.location))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runGuarded runs one cycle. Failures, panics included, are logged and the
// loop carries on with the next tick.
func (s *Scheduler) runGuarded(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in poll cycle",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			s.observer.RecordCycle(&CycleStats{}, fmt.Errorf("poll cycle panic: %v", r))
		}
	}()

	if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("poll cycle failed", slog.Any("error", err))
	}
}

// RunCycle performs one poll over a fresh snapshot of tracked links.
//
// Failures of individual links are logged and counted in the returned stats.
// An error is returned only when the snapshot cannot be read or ctx is
// canceled before every link was visited.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleStats, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "poll-cycle")
	defer span.End()

	start := time.Now()
	stats := &CycleStats{}

	links, err := s.links.ListTracked(ctx)
	if err != nil {
		err = fmt.Errorf("list tracked links: %w", err)
		stats.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		s.observer.RecordCycle(stats, err)
		return stats, err
	}
	stats.Links = len(links)
	metrics.UpdateTrackedLinks(len(links))

	keep := make(map[string]struct{}, len(links))
	for _, link := range links {
		keep[link.URL] = struct{}{}
	}

	var cycleErr error
	for _, link := range links {
		if ctx.Err() != nil {
			cycleErr = fmt.Errorf("poll cycle interrupted: %w", ctx.Err())
			break
		}
		res := s.checkLink(ctx, link)
		stats.Checked++
		stats.Events += res.events
		stats.Notified += res.notified
		if res.failed {
			stats.Failed++
		}
	}

	if removed := s.watermarks.retain(keep); removed > 0 {
		s.logger.Debug("pruned watermarks of untracked links", slog.Int("removed", removed))
	}
	metrics.UpdateWatermarks(s.watermarks.len())

	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("cycle.links", stats.Links),
		attribute.Int("cycle.failed", stats.Failed),
		attribute.Int("cycle.notified", stats.Notified),
	)
	if cycleErr != nil {
		span.SetStatus(codes.Error, "canceled")
	}

	s.logger.Info("poll cycle completed",
		slog.Int("links", stats.Links),
		slog.Int("checked", stats.Checked),
		slog.Int("failed", stats.Failed),
		slog.Int("events", stats.Events),
		slog.Int("notified", stats.Notified),
		slog.Duration("duration", stats.Duration))

	s.observer.RecordCycle(stats, cycleErr)
	return stats, cycleErr
}

type linkResult struct {
	events   int
	notified int
	failed   bool
}

// checkLink polls a single link. Errors and panics stay inside this call and
// leave the link's watermark unchanged.
func (s *Scheduler) checkLink(ctx context.Context, link entity.TrackedLink) (res linkResult) {
	platform := string(s.checker.Platform(link.URL))

	ctx, span := tracing.GetTracer().Start(ctx, "check-link", trace.WithAttributes(
		attribute.String("link.url", link.URL),
		attribute.String("link.platform", platform),
	))
	defer span.End()
	ctx = logging.WithLogger(ctx, s.logger.With(slog.String("url", link.URL)))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while checking link",
				slog.String("url", link.URL),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			metrics.RecordLinkCheck(platform, "panic")
			span.SetStatus(codes.Error, "panic")
			res = linkResult{failed: true}
		}
	}()

	var lastCheck *time.Time
	if mark, ok := s.watermarks.get(link.URL); ok {
		lastCheck = &mark
	}

	events, err := s.checker.Check(ctx, link.URL, lastCheck)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "link check failed",
			slog.String("url", link.URL),
			slog.String("platform", platform),
			slog.Any("error", err))
		metrics.RecordLinkCheck(platform, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "check failed")
		return linkResult{failed: true}
	}
	metrics.RecordLinkCheck(platform, "success")

	if len(events) == 0 {
		if lastCheck == nil {
			s.watermarks.set(link.URL, s.now().UTC())
		}
		return linkResult{}
	}

	for _, ev := range events {
		metrics.RecordUpdateDetected(string(ev.Platform), string(ev.Type))
		update := &entity.LinkUpdate{
			ID:          s.lastID.Add(1),
			URL:         link.URL,
			ChatIDs:     append([]int64(nil), link.ChatIDs...),
			Description: Describe(ev),
		}
		s.sender.Send(ctx, update)
		res.notified++
	}

	latest, _ := entity.LatestCreatedAt(events)
	s.watermarks.set(link.URL, latest)
	res.events = len(events)

	span.SetAttributes(attribute.Int("link.events", len(events)))
	return res
}
