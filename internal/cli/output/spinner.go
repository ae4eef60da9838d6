package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const spinnerFrames = "⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏"

// Spinner animates a message on one terminal line while a call is in
// flight. It writes nothing after Stop, Success or Fail return.
type Spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	exited  chan struct{}
	once    sync.Once
	started atomic.Bool
}

func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// Start begins the animation; repeated calls are ignored.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	frames := []rune(spinnerFrames)
	go func() {
		defer close(s.exited)
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()
		for n := 0; ; n++ {
			fmt.Fprintf(s.w, "\r%c %s", frames[n%len(frames)], s.message)
			select {
			case <-tick.C:
			case <-s.stop:
				return
			}
		}
	}()
}

// end stops the animation, waits for the goroutine, then clears the line
// and prints final (if any). Later calls are no-ops.
func (s *Spinner) end(final string) {
	s.once.Do(func() {
		close(s.stop)
		if s.started.Load() {
			<-s.exited
		}
		fmt.Fprint(s.w, "\r\033[K"+final)
	})
}

// Stop clears the spinner line.
func (s *Spinner) Stop() { s.end("") }

func (s *Spinner) Success(message string) { s.end("✓ " + message + "\n") }

func (s *Spinner) Fail(message string) { s.end("✗ " + message + "\n") }
