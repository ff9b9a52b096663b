package importer

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressCallback defines the interface for progress reporting
type ProgressCallback interface {
	Start(total int)
	Update(title string, firstMsg string)
	Finish()
}

// ProgressReporter handles progress feedback during import
type ProgressReporter struct {
	writer    io.Writer
	total     int
	current   int
	startTime time.Time
	lastMsg   string
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(w io.Writer) *ProgressReporter {
	return &ProgressReporter{
		writer:    w,
		startTime: time.Now(),
	}
}

// Start resets the reporter for total conversations
func (p *ProgressReporter) Start(total int) {
	p.total = total
	p.current = 0
	p.startTime = time.Now()
}

// Update updates the progress bar with current conversation info
func (p *ProgressReporter) Update(title string, firstMsg string) {
	p.current++
	if p.total <= 0 {
		return
	}

	// Calculate progress percentage
	pct := float64(p.current) / float64(p.total) * 100

	// Draw progress bar (50 chars wide)
	barWidth := 50
	filled := int(float64(barWidth) * float64(p.current) / float64(p.total))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	// Untitled conversations show their opening message instead
	displayText := strings.TrimSpace(title)
	if displayText == "" {
		displayText = strings.Join(strings.Fields(firstMsg), " ")
	}
	if r := []rune(displayText); len(r) > 60 {
		displayText = string(r[:57]) + "..."
	}

	// Calculate ETA
	eta := time.Duration(0)
	if elapsed := time.Since(p.startTime); elapsed > 0 {
		rate := float64(p.current) / elapsed.Seconds()
		eta = time.Duration(float64(p.total-p.current)/rate) * time.Second
	}

	// Print progress
	_, _ = fmt.Fprintf(p.writer, "\r[%s] %3.0f%% (%d/%d) ETA: %s | %s",
		bar, pct, p.current, p.total, eta.Round(time.Second), displayText)

	p.lastMsg = displayText
}

// Finish completes the progress display
func (p *ProgressReporter) Finish() {
	elapsed := time.Since(p.startTime)
	_, _ = fmt.Fprintf(p.writer, "\nCompleted: Imported %d conversations in %s\n", p.current, elapsed.Round(time.Millisecond))
}
