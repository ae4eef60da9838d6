package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const barWidth = 30

// ProgressBar redraws "title [████░░] 40% (2/5 pages)" on one line. With
// an unknown total it shows a plain counter instead.
type ProgressBar struct {
	w     io.Writer
	title string
	unit  string

	mu      sync.Mutex
	current int
	total   int
}

func NewProgressBar(w io.Writer, title, unit string) *ProgressBar {
	return &ProgressBar{w: w, title: title, unit: unit}
}

// Update has the signature of the paging callbacks in the backend client.
func (p *ProgressBar) Update(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current, p.total = current, total
	p.draw()
}

// Finish fills the bar and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		p.current = p.total
	}
	p.draw()
	io.WriteString(p.w, "\n")
}

func (p *ProgressBar) draw() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %d %s", p.title, p.current, p.unit)
		return
	}
	ratio := min(max(float64(p.current)/float64(p.total), 0), 1)
	done := int(ratio * barWidth)
	bar := strings.Repeat("█", done) + strings.Repeat("░", barWidth-done)
	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%d/%d %s)", p.title, bar, ratio*100, p.current, p.total, p.unit)
}
