package core

import (
	"sync"
	"time"
)

// ProgressInfo is a snapshot of a running decomposition.
type ProgressInfo struct {
	// Percent complete overall, 0-100
	Percent float64
	// Stage currently running, as named by the engine
	Stage string
	// Elapsed since the tracker started
	Elapsed time.Duration
	// ETA extrapolated from the overall rate, 0 until progress is seen
	ETA time.Duration
}

// ProgressTracker accumulates engine progress reports from the compute
// goroutine and decides when a new line is worth printing.
type ProgressTracker struct {
	mu sync.RWMutex

	percent   float64
	stage     string
	startTime time.Time

	// last printed state, for throttling
	lastPercent float64
	lastStage   string
	step        float64
	now         func() time.Time
}

// NewProgressTracker returns a tracker that reports again after every step
// percentage points or on a stage change. step <= 0 selects 5.
func NewProgressTracker(step float64) *ProgressTracker {
	if step <= 0 {
		step = 5
	}
	return &ProgressTracker{
		startTime:   time.Now(),
		lastPercent: -1,
		step:        step,
		now:         time.Now,
	}
}

// Update records a report and returns true when it should be shown.
// Percentages are clamped to [0, 100] and never go backwards within a stage.
func (p *ProgressTracker) Update(percent float64, stage string) bool {
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if stage == p.stage && percent < p.percent {
		percent = p.percent
	}
	p.percent = percent
	p.stage = stage

	if stage != p.lastStage || percent-p.lastPercent >= p.step || (percent == 100 && p.lastPercent < 100) {
		p.lastStage = stage
		p.lastPercent = percent
		return true
	}
	return false
}

// Progress returns the current snapshot.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := p.now().Sub(p.startTime)
	info := ProgressInfo{
		Percent: p.percent,
		Stage:   p.stage,
		Elapsed: elapsed,
	}
	if p.percent > 0 && p.percent < 100 {
		total := float64(elapsed) * 100 / p.percent
		info.ETA = time.Duration(total) - elapsed
	}
	return info
}

// Reset starts a new run.
func (p *ProgressTracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.percent = 0
	p.stage = ""
	p.lastPercent = -1
	p.lastStage = ""
	p.startTime = p.now()
}
