// Package progress reports batch progress to the operator.
package progress

import (
	"fmt"
	"io"
	"strings"
)

// Reporter receives progress events from a sequential batch
type Reporter interface {
	// Start announces the batch size
	Start(total int)
	// Clear removes the current rendering so other output can be written
	Clear()
	// Advance marks one more server as processed and redraws
	Advance()
	// Error prints a failure line between redraws
	Error(msg string)
	// Finish ends the progress output with a blank separator line
	Finish()
}

const barWidth = 28

// Bar renders a single-line progress bar like " 3/10 [========>-------]  30%"
type Bar struct {
	writer    io.Writer
	errWriter io.Writer
	total     int
	current   int
	drawn     int
}

// NewBar creates a bar writing progress to w and failure lines to errW
func NewBar(w, errW io.Writer) *Bar {
	if errW == nil {
		errW = w
	}
	return &Bar{writer: w, errWriter: errW}
}

func (b *Bar) Start(total int) {
	b.total = total
	b.current = 0
	b.draw()
}

func (b *Bar) Clear() {
	if b.drawn == 0 {
		return
	}
	fmt.Fprintf(b.writer, "\r%s\r", strings.Repeat(" ", b.drawn))
	b.drawn = 0
}

func (b *Bar) Advance() {
	if b.current < b.total {
		b.current++
	}
	b.draw()
}

func (b *Bar) Error(msg string) {
	b.Clear()
	fmt.Fprintf(b.errWriter, "[ERROR] %s\n", msg)
}

func (b *Bar) Finish() {
	fmt.Fprintln(b.writer)
	b.drawn = 0
}

func (b *Bar) draw() {
	line := b.render()
	b.Clear()
	fmt.Fprintf(b.writer, "%s", line)
	b.drawn = len(line)
}

func (b *Bar) render() string {
	var percentage float64
	if b.total > 0 {
		percentage = float64(b.current) / float64(b.total) * 100
	} else {
		percentage = 100
	}

	filled := int(float64(barWidth) * percentage / 100)
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteByte('=')
		case i == filled:
			bar.WriteByte('>')
		default:
			bar.WriteByte('-')
		}
	}

	width := len(fmt.Sprint(b.total))
	return fmt.Sprintf(" %*d/%d [%s] %3.0f%%", width, b.current, b.total, bar.String(), percentage)
}

// Lines prints failure lines only; used when progress rendering is off
type Lines struct {
	writer io.Writer
}

// NewLines creates a reporter that only prints failures
func NewLines(w io.Writer) *Lines {
	return &Lines{writer: w}
}

func (l *Lines) Start(int) {}
func (l *Lines) Clear()    {}
func (l *Lines) Advance()  {}

func (l *Lines) Error(msg string) {
	fmt.Fprintf(l.writer, "[ERROR] %s\n", msg)
}

func (l *Lines) Finish() {
	fmt.Fprintln(l.writer)
}
