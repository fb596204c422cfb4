// Package console writes human-readable progress to a terminal, including a
// single status line that is rewritten in place.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Printer serializes writes to w. The zero value is not usable; use New.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	pending int // width of the in-place line currently on screen
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Status overwrites the current in-place line with line.
func (p *Printer) Status(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pad := ""
	if n := p.pending - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	_, err := fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.pending = len(line)
	return err
}

// Println ends any in-place line and prints line on its own.
func (p *Printer) Println(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending > 0 {
		if _, err := io.WriteString(p.w, "\n"); err != nil {
			return err
		}
		p.pending = 0
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}

// Printf is Println with formatting.
func (p *Printer) Printf(format string, args ...any) error {
	return p.Println(fmt.Sprintf(format, args...))
}
