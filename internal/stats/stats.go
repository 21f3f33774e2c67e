// Package stats keeps a rolling window of diff timings.
package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	durationMs int64
	patches    int
}

// Snapshot aggregates the samples currently inside the window.
type Snapshot struct {
	Diffs   int     `json:"diffs"`
	Patches int     `json:"patches"`
	MinMs   int64   `json:"min_ms"`
	MaxMs   int64   `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
}

// Window records diff durations and patch counts, forgetting samples older than maxAge.
// It is safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func New(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one diff that took d and produced patches patches.
func (w *Window) Record(d time.Duration, patches int) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.samples = append(w.samples, sample{at: now, durationMs: ms, patches: patches})
}

func (w *Window) Snapshot() Snapshot {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	if len(w.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(w.samples))
	var sum int64
	patches := 0
	for _, s := range w.samples {
		values = append(values, s.durationMs)
		sum += s.durationMs
		patches += s.patches
	}
	slices.Sort(values)

	return Snapshot{
		Diffs:   len(values),
		Patches: patches,
		MinMs:   values[0],
		MaxMs:   values[len(values)-1],
		AvgMs:   float64(sum) / float64(len(values)),
		P50Ms:   percentile(values, 50),
		P95Ms:   percentile(values, 95),
		P99Ms:   percentile(values, 99),
	}
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	w.samples = slices.DeleteFunc(w.samples, func(s sample) bool {
		return s.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
