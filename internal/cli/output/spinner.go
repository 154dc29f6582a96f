package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows progress for long operations on a terminal. On
// non-TTY output it stays silent until the final Success or Fail line.
type Spinner struct {
	r       *Renderer
	w       io.Writer
	term    *termenv.Output
	message string
	stop    chan struct{}
	wg      sync.WaitGroup
	active  bool
}

// NewSpinner creates a spinner writing to the renderer's error stream.
func (r *Renderer) NewSpinner(message string) *Spinner {
	return &Spinner{
		r:       r,
		w:       r.errOut,
		term:    termenv.NewOutput(r.errOut),
		message: message,
		stop:    make(chan struct{}),
	}
}

// Start begins animating. No-op when output is not a terminal.
func (s *Spinner) Start() {
	if !s.r.isTTY || s.active {
		return
	}
	s.active = true
	s.term.HideCursor()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(90 * time.Millisecond)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.term.ClearLine()
				_, _ = fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], s.message)
				frame++
			}
		}
	}()
}

// Success stops the spinner and prints a check line.
func (s *Spinner) Success(message string) {
	s.finish(s.r.styles.StatusSuccess.Render("✓"), message)
}

// Fail stops the spinner and prints a cross line.
func (s *Spinner) Fail(message string) {
	s.finish(s.r.styles.StatusFailed.Render("✗"), message)
}

func (s *Spinner) finish(mark, message string) {
	if s.active {
		s.active = false
		close(s.stop)
		s.wg.Wait()
		s.term.ClearLine()
		_, _ = fmt.Fprint(s.w, "\r")
		s.term.ShowCursor()
	}
	_, _ = fmt.Fprintf(s.w, "%s %s\n", mark, message)
}
