// Package sink owns the final output stage (spec.md §4.J): writing
// formatted bytes to stdout or a file, optional pager handoff, and
// signal-based interrupt handling.
package sink

import (
	"io"
	"os"
	"os/exec"

	"golang.org/x/term"
)

// PagingMode mirrors the --paging auto|always|never flag.
type PagingMode int

const (
	PagingAuto PagingMode = iota
	PagingAlways
	PagingNever
)

// IsTerminal reports whether w is connected to an interactive terminal,
// grounded on the teacher's output/query_table.go term.GetSize call.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the terminal width of f, or fallback if f is not
// a terminal or the size cannot be determined.
func TerminalWidth(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Sink writes formatted output, optionally through a pager.
type Sink struct {
	w       io.Writer
	pager   *exec.Cmd
	pagerIn io.WriteCloser
	out     *os.File
}

// New opens out (a real destination, stdout or -o file) as the base
// writer. Call MaybePage to wrap it with a pager when appropriate.
func New(out *os.File) *Sink {
	return &Sink{w: out, out: out}
}

// MaybePage spawns pagerCmd and pipes writes to it when mode and the
// terminal state call for it: paging only ever engages when out is an
// interactive terminal and mode != PagingNever.
func (s *Sink) MaybePage(mode PagingMode, pagerCmd string) error {
	if mode == PagingNever {
		return nil
	}
	if mode == PagingAuto && !IsTerminal(s.out) {
		return nil
	}
	if pagerCmd == "" {
		pagerCmd = "less -RFX"
	}

	cmd := exec.Command("sh", "-c", pagerCmd)
	cmd.Stdout = s.out
	cmd.Stderr = os.Stderr
	in, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.pager = cmd
	s.pagerIn = in
	s.w = in
	return nil
}

// Write implements io.Writer, sending bytes to the pager if one is
// attached, otherwise straight to the underlying destination.
func (s *Sink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Close flushes and waits for a pager process, if one was started.
func (s *Sink) Close() error {
	if s.pagerIn != nil {
		s.pagerIn.Close()
	}
	if s.pager != nil {
		return s.pager.Wait()
	}
	return nil
}
