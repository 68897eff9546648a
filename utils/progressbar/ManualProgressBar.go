// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ManualProgressBar implement progress bar functionality that must
// be manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	out             io.Writer
	width           float64
	maxProgress     float64
	currentProgress float64
	label           string
	bar             strings.Builder
	startTime       time.Time
}

// NewManualProgressBar returns a new ManualProgressBar writing to out
// that is width characters wide and full after max increments
func NewManualProgressBar(out io.Writer, width, max int) *ManualProgressBar {
	if max <= 0 {
		max = 1
	}
	return &ManualProgressBar{
		out:         out,
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Increment increments the interal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ManualProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// SetLabel sets the text displayed after the bar, e.g. the latest loss
func (p *ManualProgressBar) SetLabel(format string, args ...interface{}) {
	p.label = fmt.Sprintf(format, args...)
}

// Percent returns the progress in percent
func (p *ManualProgressBar) Percent() float64 {
	return p.currentProgress / p.maxProgress * 100
}

// String returns the progress bar without any terminal control codes
func (p *ManualProgressBar) String() string {
	p.bar.Reset()
	p.bar.WriteString("|")

	currentProg := p.currentProgress / p.maxProgress * p.width
	for i := 0.0; i < currentProg; i++ {
		p.bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	fmt.Fprintf(&p.bar, "| [%.2f%v | elapsed: %v]", p.Percent(), "%",
		time.Since(p.startTime).Truncate(time.Second))
	if p.label != "" {
		fmt.Fprintf(&p.bar, " %v", p.label)
	}
	return p.bar.String()
}

// Display redraws the progress bar on the current terminal line
func (p *ManualProgressBar) Display() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.String())
}

// Done displays the progress bar a final time and ends its line
func (p *ManualProgressBar) Done() {
	p.Display()
	fmt.Fprintln(p.out)
}
