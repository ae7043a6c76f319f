package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single, continuously rewritten progress line for
// long-running batch work such as reembedding or ingestion. It is safe for
// concurrent use.
type ProgressTracker struct {
	writer         io.Writer
	unit           string
	reportInterval int

	mu           sync.Mutex
	total        int
	current      int
	lastReported int
	startTime    time.Time
	started      bool
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// unit: plural name of the items, used in the rate ("points", "videos")
// reportInterval: report progress every N items
func NewProgressTracker(writer io.Writer, unit string, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		unit:           unit,
		reportInterval: max(reportInterval, 1),
	}
}

// Start begins tracking progress over total items. Calling Start again
// resets the tracker.
func (p *ProgressTracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.total = total
	p.current = 0
	p.lastReported = 0
}

// Update sets the number of completed items.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(current)
}

// Increment marks delta more items as completed.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(p.current + delta)
}

// advance must be called with the lock held.
func (p *ProgressTracker) advance(current int) {
	if !p.started {
		return
	}
	p.current = min(current, p.total)
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks the operation as complete and ends the progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	line := fmt.Sprintf("\rProgress: %d/%d (%.1f%%) - %.1f %s/s", p.current, p.total, percentage, rate, p.unit)
	if remaining := p.total - p.current; remaining > 0 && rate > 0 {
		eta := time.Duration(float64(remaining) / rate * float64(time.Second))
		line += fmt.Sprintf(", eta %v", eta.Round(time.Second))
	}
	fmt.Fprint(p.writer, line)
}
