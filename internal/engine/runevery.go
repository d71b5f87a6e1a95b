package engine

import "time"

// runEvery gates a management task to a fixed cadence inside the
// sequential loop. The first Due call fires immediately.
type runEvery struct {
	interval time.Duration
	last     time.Time
}

func newRunEvery(interval time.Duration) *runEvery {
	return &runEvery{interval: interval}
}

// Due reports whether the task should run now, and if so marks it run.
func (r *runEvery) Due(now time.Time) bool {
	if r.interval <= 0 {
		return false
	}
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}
