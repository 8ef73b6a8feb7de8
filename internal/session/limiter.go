package session

import (
	"sync"
	"time"
)

const rateWindow = time.Minute

// slidingWindow records accepted send times and admits a new send only
// while fewer than limit sends fall inside the last minute.
type slidingWindow struct {
	mu    sync.Mutex
	now   func() time.Time
	sends []time.Time
}

func newSlidingWindow(now func() time.Time) *slidingWindow {
	if now == nil {
		now = time.Now
	}
	return &slidingWindow{now: now}
}

// allow records the send when admitted. A nil limit admits everything.
func (w *slidingWindow) allow(limit *int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if limit != nil && len(w.sends) >= *limit {
		return false
	}
	w.sends = append(w.sends, now)
	return true
}

func (w *slidingWindow) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.sends)
}

func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(w.sends) && !w.sends[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.sends = append(w.sends[:0], w.sends[i:]...)
	}
}
