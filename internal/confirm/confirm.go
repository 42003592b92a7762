// Package confirm asks the operator before a destructive batch runs.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Gate presents a yes/no question and returns the operator's answer
type Gate interface {
	Confirm(prompt string) (bool, error)
}

// Prompt reads answers line by line from an input stream
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a gate that writes the question to out and reads from in
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Confirm defaults to "no": empty input, EOF and anything other than y/yes decline
func (p *Prompt) Confirm(prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s (yes/no) [no]:\n> ", prompt); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Always is the gate used by --force
type Always struct{}

// Confirm always answers yes
func (Always) Confirm(string) (bool, error) { return true, nil }
