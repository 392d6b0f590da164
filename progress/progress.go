// Package progress renders a live console progress line while files are
// processed by a worker pool.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"pixeldiff/logging"
	"pixeldiff/types"
)

var (
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	durationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
	speedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Counts is a snapshot of a Tracker's counters.
type Counts struct {
	Processed int
	Errors    int
	Skipped   int
}

// Tracker consumes per-file results and periodically redraws a progress line.
type Tracker struct {
	label   string
	total   int
	out     io.Writer
	rep     *logging.Reporter
	start   time.Time
	spinner spinner.Model

	mu     sync.Mutex
	counts Counts

	ticker      *time.Ticker
	done        chan struct{}
	displayDone chan struct{}
	resultsDone chan struct{}
}

// NewTracker starts tracking results until the channel is closed. total may
// be zero when the number of files is unknown. A nil out hides the progress
// line but still counts results.
func NewTracker(out io.Writer, label string, total int, results <-chan types.ProcessResult, rep *logging.Reporter) *Tracker {
	if out == nil {
		out = io.Discard
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	t := &Tracker{
		label:       label,
		total:       total,
		out:         out,
		rep:         rep,
		start:       time.Now(),
		spinner:     s,
		ticker:      time.NewTicker(100 * time.Millisecond),
		done:        make(chan struct{}),
		displayDone: make(chan struct{}),
		resultsDone: make(chan struct{}),
	}

	go t.displayProgress()
	go t.processResults(results)

	return t
}

// displayProgress redraws the progress line on every tick
func (t *Tracker) displayProgress() {
	defer close(t.displayDone)
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.spinner, _ = t.spinner.Update(spinner.TickMsg{})
			fmt.Fprintf(t.out, "\r%s %s", t.spinner.View(), t.line())
		}
	}
}

func (t *Tracker) line() string {
	c := t.Snapshot()
	progress := fmt.Sprintf("%s %d", t.label, c.Processed)
	if t.total > 0 {
		progress = fmt.Sprintf("%s %d/%d", t.label, c.Processed, t.total)
	}
	if c.Skipped > 0 {
		progress += fmt.Sprintf(" (skipped: %d)", c.Skipped)
	}
	if c.Errors > 0 {
		progress += errorStyle.Render(fmt.Sprintf(" (errors: %d)", c.Errors))
	}
	return progress
}

// processResults updates the counters from the results channel
func (t *Tracker) processResults(results <-chan types.ProcessResult) {
	defer close(t.resultsDone)
	for result := range results {
		t.mu.Lock()
		t.counts.Processed++
		switch {
		case !result.Success:
			t.counts.Errors++
		case result.Skipped:
			t.counts.Skipped++
		}
		t.mu.Unlock()

		errMsg := ""
		if result.Error != nil {
			errMsg = result.Error.Error()
		}
		t.rep.LogImageProcessed(result.Path, result.Success, errMsg)
	}
}

// Snapshot returns the current counters
func (t *Tracker) Snapshot() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}

// Stop waits for the results channel to be drained, then ends the display.
// The caller must close the results channel first.
func (t *Tracker) Stop() Counts {
	<-t.resultsDone
	t.ticker.Stop()
	close(t.done)
	<-t.displayDone
	c := t.Snapshot()
	fmt.Fprintf(t.out, "\r✓ %s\n", t.line())
	return c
}

// PrintCompletionStats displays totals and throughput after Stop
func (t *Tracker) PrintCompletionStats(w io.Writer) {
	elapsed := time.Since(t.start)
	c := t.Snapshot()

	t.rep.DebugLog("%s completed in %v. Processed: %d, Skipped: %d, Errors: %d",
		t.label, elapsed, c.Processed, c.Skipped, c.Errors)

	var perSecond float64
	if elapsed.Seconds() > 0 {
		perSecond = float64(c.Processed) / elapsed.Seconds()
	}
	fmt.Fprintf(w, "Processed %d files in %s (%s files/s).\n",
		c.Processed,
		durationStyle.Render(elapsed.Round(time.Millisecond).String()),
		speedStyle.Render(fmt.Sprintf("%.2f", perSecond)))
	if c.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d unchanged files.\n", c.Skipped)
	}
	if c.Errors > 0 {
		fmt.Fprintf(w, "Encountered %d errors.\n", c.Errors)
		fmt.Fprintln(w, "Check the log file for details.")
	}
}
