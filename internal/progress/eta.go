package progress

import (
	"sync"
	"time"
)

const ewmaAlpha = 0.3

// Tracker maintains smoothed per-stage durations observed during this
// process lifetime and derives remaining-time estimates from them. The
// history is in memory only; a fresh daemon starts with no estimates.
type Tracker struct {
	mu        sync.Mutex
	durations map[string]time.Duration
}

// NewTracker returns an empty duration tracker.
func NewTracker() *Tracker {
	return &Tracker{durations: make(map[string]time.Duration)}
}

// Observe folds a completed stage run into the smoothed duration for that
// stage.
func (t *Tracker) Observe(stage string, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.durations[stage]
	if !ok {
		t.durations[stage] = elapsed
		return
	}
	smoothed := time.Duration(ewmaAlpha*float64(elapsed) + (1-ewmaAlpha)*float64(prev))
	t.durations[stage] = smoothed
}

// Estimate returns the expected time remaining for a job currently at the
// given stage and stage-local percent. It reports false when any stage on
// the remaining path has no observed duration yet.
func (t *Tracker) Estimate(stage string, stagePercent float64) (time.Duration, bool) {
	if stagePercent < 0 {
		stagePercent = 0
	}
	if stagePercent > 100 {
		stagePercent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		remaining time.Duration
		found     bool
	)
	for _, entry := range stageOrder {
		if !found {
			if entry.name != stage {
				continue
			}
			found = true
			est, ok := t.durations[entry.name]
			if !ok {
				return 0, false
			}
			remaining += time.Duration((100 - stagePercent) / 100 * float64(est))
			continue
		}
		est, ok := t.durations[entry.name]
		if !ok {
			return 0, false
		}
		remaining += est
	}
	if !found {
		return 0, false
	}
	return remaining, true
}
