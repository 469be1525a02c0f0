package synth

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-speak/internal/protocol"
)

// ErrWorkerUnavailable is returned by Submit once the worker has ended or the
// handle has been closed.
var ErrWorkerUnavailable = errors.New("synthesis worker is not running")

// PollState tells the caller what a Poll observed.
type PollState int

const (
	// PollEmpty means no outcome is available yet.
	PollEmpty PollState = iota
	// PollReady means an outcome was received.
	PollReady
	// PollDisconnected means the worker has ended; reported once.
	PollDisconnected
)

func (s PollState) String() string {
	switch s {
	case PollEmpty:
		return "empty"
	case PollReady:
		return "ready"
	case PollDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handle is the caller's side of the worker: it sends requests and receives
// outcomes. One Handle exists per worker. Poll must be called from a single
// goroutine.
type Handle struct {
	requests  chan protocol.SynthesisRequest
	outcomes  chan protocol.Outcome
	done      chan struct{}
	abandoned chan struct{}

	mu     sync.RWMutex
	closed bool

	disconnectReported atomic.Bool
}

func newHandle(buffer int) *Handle {
	if buffer < 0 {
		buffer = 0
	}
	return &Handle{
		requests:  make(chan protocol.SynthesisRequest, buffer),
		outcomes:  make(chan protocol.Outcome, buffer+1),
		done:      make(chan struct{}),
		abandoned: make(chan struct{}),
	}
}

// Submit hands req to the worker and returns its request id. It fails only
// when the worker can no longer accept work, which callers treat as fatal.
func (h *Handle) Submit(req protocol.SynthesisRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return "", ErrWorkerUnavailable
	}
	select {
	case <-h.done:
		return "", ErrWorkerUnavailable
	default:
	}
	select {
	case h.requests <- req:
		return req.ID, nil
	case <-h.done:
		return "", ErrWorkerUnavailable
	}
}

// Poll never blocks. Outcomes already produced are returned before a
// disconnection is reported, and the disconnection is reported exactly once;
// its outcome carries a fatal error.
func (h *Handle) Poll() (protocol.Outcome, PollState) {
	select {
	case out, ok := <-h.outcomes:
		if ok {
			return out, PollReady
		}
		if h.disconnectReported.CompareAndSwap(false, true) {
			return protocol.Outcome{Err: protocol.WorkerExitedError()}, PollDisconnected
		}
		return protocol.Outcome{}, PollEmpty
	default:
		return protocol.Outcome{}, PollEmpty
	}
}

// Close closes the request channel, which tells the worker to stop once any
// in-flight request finishes. Outcomes produced afterwards are discarded.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.abandoned)
	close(h.requests)
}

// Done is closed when the worker goroutine has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the worker goroutine has returned.
func (h *Handle) Wait() { <-h.done }

// Running reports whether the worker goroutine is still alive.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
