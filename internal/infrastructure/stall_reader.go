package infrastructure

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrStalled is returned by a StallReader whose source produced no data
// within the configured timeout.
var ErrStalled = errors.New("stream stalled: no data within read timeout")

// StallReader closes the wrapped stream when a single Read blocks for longer
// than timeout, turning a hung upstream into a read error.
type StallReader struct {
	rc      io.ReadCloser
	timeout time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64 // last Read started
	active  uint64 // Read in flight, 0 when idle
	stalled bool
	closed  bool
}

// NewStallReader wraps rc. A non-positive timeout returns rc unchanged.
func NewStallReader(rc io.ReadCloser, timeout time.Duration) io.ReadCloser {
	if timeout <= 0 {
		return rc
	}
	return &StallReader{rc: rc, timeout: timeout}
}

func (r *StallReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.stalled {
		r.mu.Unlock()
		return 0, ErrStalled
	}
	r.gen++
	gen := r.gen
	r.active = gen
	r.timer = time.AfterFunc(r.timeout, func() { r.onStall(gen) })
	r.mu.Unlock()

	n, err := r.rc.Read(p)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.timer.Stop()
	if r.stalled {
		return n, ErrStalled
	}
	r.active = 0
	return n, err
}

// onStall fires when Read number gen has not returned in time. A timer that
// loses the race with a finished Read finds active changed and does nothing.
func (r *StallReader) onStall(gen uint64) {
	r.mu.Lock()
	if r.closed || r.active != gen {
		r.mu.Unlock()
		return
	}
	r.stalled = true
	r.closed = true
	r.mu.Unlock()
	r.rc.Close()
}

// Close stops the timer and closes the wrapped stream
func (r *StallReader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()
	return r.rc.Close()
}
