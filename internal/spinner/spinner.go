package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line on w. The message can be swapped while
// the spinner runs, so a long poll can surface status changes in place.
type Spinner struct {
	w io.Writer

	mu       sync.Mutex
	message  string
	maxWidth int

	done     chan struct{}
	cleared  chan struct{}
	stopOnce sync.Once
}

// Start begins animating message on w. Call Stop to halt the animation
// and clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.run()
	return s
}

// Update replaces the message shown on the next frame.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

func (s *Spinner) run() {
	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			width := s.maxWidth + 2
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
			close(s.cleared)
			return
		case <-time.After(80 * time.Millisecond):
			s.mu.Lock()
			msg := s.message
			if len(msg) > s.maxWidth {
				s.maxWidth = len(msg)
			}
			// Pad to the widest message so a shorter one leaves no residue.
			pad := s.maxWidth - len(msg)
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s %s%s", frames[i%len(frames)], msg, strings.Repeat(" ", pad)) //nolint:errcheck
			i++
		}
	}
}
