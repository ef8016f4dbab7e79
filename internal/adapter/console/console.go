// Package console is a terminal front end for the confirmation gate and the outcome report.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Yess-prog/PI-myBank-app/internal/usecase/confirmation"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/report"
)

// Confirmer asks y/N questions on a terminal. Anything but yes is an abort.
type Confirmer struct {
	lines <-chan string
	out   io.Writer

	done      chan struct{}
	closeOnce sync.Once
	// stopped is closed when the reader goroutine returns
	stopped chan struct{}
}

// NewConfirmer reads answers from in and writes prompts to out.
// Call Close to release the reader goroutine once no more prompts are needed.
func NewConfirmer(in io.Reader, out io.Writer) *Confirmer {
	lines := make(chan string, 1)
	c := &Confirmer{lines: lines, out: out, done: make(chan struct{}), stopped: make(chan struct{})}
	go func() {
		defer close(c.stopped)
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-c.done:
				return
			}
		}
	}()
	return c
}

// Close stops delivering answers. A reader blocked inside in.Read returns after its next line.
func (c *Confirmer) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Confirm prints prompt and waits for an answer or ctx cancellation
func (c *Confirmer) Confirm(ctx context.Context, prompt confirmation.Prompt) (confirmation.Decision, error) {
	select {
	case <-c.done:
		return confirmation.Abort, io.EOF
	default:
	}

	fmt.Fprintf(c.out, "\n== %s ==\n%s\n", prompt.Title, prompt.Message)
	if prompt.Irreversible {
		fmt.Fprintln(c.out, "!! This cannot be undone.")
	}
	fmt.Fprintf(c.out, "%s? [y/N] (N = %s): ", prompt.ProceedLabel, prompt.AbortLabel)

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return confirmation.Abort, ctx.Err()
	case <-c.done:
		return confirmation.Abort, io.EOF
	case line, ok := <-c.lines:
		if !ok {
			return confirmation.Abort, io.EOF
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return confirmation.Proceed, nil
		default:
			return confirmation.Abort, nil
		}
	}
}

// PrintOutcome writes the final result of an operation
func PrintOutcome(w io.Writer, out report.Outcome) {
	if out.Status == report.StatusUnknown {
		fmt.Fprint(w, "WARNING ")
	}
	fmt.Fprintf(w, "%s: %s\n", out.Title, out.Message)
}
