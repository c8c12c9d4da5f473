package update

import (
	"sync"
	"time"
)

// watermarkTable maps a link URL to the creation time of the newest event
// processed for it. Only the poll loop writes to it.
type watermarkTable struct {
	mu    sync.RWMutex
	marks map[string]time.Time
}

func newWatermarkTable() *watermarkTable {
	return &watermarkTable{marks: make(map[string]time.Time)}
}

func (w *watermarkTable) get(url string) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.marks[url]
	return t, ok
}

func (w *watermarkTable) set(url string, t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marks[url] = t
}

// retain drops every watermark whose URL is not in keep and returns how many
// were removed.
func (w *watermarkTable) retain(keep map[string]struct{}) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := 0
	for url := range w.marks {
		if _, ok := keep[url]; !ok {
			delete(w.marks, url)
			removed++
		}
	}
	return removed
}

func (w *watermarkTable) len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.marks)
}
