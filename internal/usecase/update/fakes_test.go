package update

import (
	"context"
	"sync"
	"time"

	"link-tracker/internal/domain/entity"
)

type fakeLinks struct {
	mu    sync.Mutex
	links []entity.TrackedLink
	err   error
}

func (f *fakeLinks) ListTracked(context.Context) ([]entity.TrackedLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]entity.TrackedLink(nil), f.links...), nil
}

func (f *fakeLinks) set(links ...entity.TrackedLink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = links
}

type adapterCall struct {
	url       string
	lastCheck *time.Time
}

// fakeAdapter answers from a per-URL handler and records every call.
type fakeAdapter struct {
	mu       sync.Mutex
	handlers map[string]func(lastCheck *time.Time) ([]entity.UpdateEvent, error)
	calls    []adapterCall
	called   chan struct{}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		handlers: make(map[string]func(*time.Time) ([]entity.UpdateEvent, error)),
		called:   make(chan struct{}, 100),
	}
}

func (f *fakeAdapter) on(url string, h func(lastCheck *time.Time) ([]entity.UpdateEvent, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[url] = h
}

func (f *fakeAdapter) GetNewUpdates(_ context.Context, rawURL string, lastCheck *time.Time) ([]entity.UpdateEvent, error) {
	f.mu.Lock()
	var copied *time.Time
	if lastCheck != nil {
		t := *lastCheck
		copied = &t
	}
	f.calls = append(f.calls, adapterCall{url: rawURL, lastCheck: copied})
	h := f.handlers[rawURL]
	f.mu.Unlock()

	select {
	case f.called <- struct{}{}:
	default:
	}

	if h == nil {
		return nil, nil
	}
	return h(lastCheck)
}

func (f *fakeAdapter) callsFor(url string) []adapterCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []adapterCall
	for _, c := range f.calls {
		if c.url == url {
			out = append(out, c)
		}
	}
	return out
}

type recordingSender struct {
	mu      sync.Mutex
	updates []*entity.LinkUpdate
}

func (r *recordingSender) Send(_ context.Context, update *entity.LinkUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *recordingSender) sent() []*entity.LinkUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.LinkUpdate(nil), r.updates...)
}

type recordingObserver struct {
	mu    sync.Mutex
	stats []*CycleStats
	errs  []error
}

func (o *recordingObserver) RecordCycle(stats *CycleStats, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, stats)
	o.errs = append(o.errs, err)
}

// onlyAfter emulates an adapter: no history on first sight, then the events
// strictly newer than lastCheck.
func onlyAfter(events ...entity.UpdateEvent) func(*time.Time) ([]entity.UpdateEvent, error) {
	return func(lastCheck *time.Time) ([]entity.UpdateEvent, error) {
		if lastCheck == nil {
			return nil, nil
		}
		var out []entity.UpdateEvent
		for _, ev := range events {
			if ev.CreatedAt.After(*lastCheck) {
				out = append(out, ev)
			}
		}
		return out, nil
	}
}
