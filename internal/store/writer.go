package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soyeahso/switchboard/internal/logging"
)

// ErrWriterClosed is returned by Submit after Close.
var ErrWriterClosed = errors.New("writer closed")

// ErrQueueFull is returned by Submit when the queue has no room.
var ErrQueueFull = errors.New("write queue full")

// WriteFunc is one deferred write.
type WriteFunc func(ctx context.Context) error

type job struct {
	name    string
	callSid string
	fn      WriteFunc
}

// Writer runs non-critical writes off the request path. Jobs are drained
// by one goroutine in submission order; each failed job is retried once
// after a short backoff and then dropped with an error log.
type Writer struct {
	jobs    chan job
	log     *logging.Logger
	backoff time.Duration
	timeout time.Duration
	onFail  func(name string, err error)

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBackoff sets the pause before the single retry.
func WithBackoff(d time.Duration) WriterOption {
	return func(w *Writer) { w.backoff = d }
}

// WithJobTimeout bounds each attempt.
func WithJobTimeout(d time.Duration) WriterOption {
	return func(w *Writer) { w.timeout = d }
}

// WithFailureHook is called when a job fails after its retry.
func WithFailureHook(fn func(name string, err error)) WriterOption {
	return func(w *Writer) { w.onFail = fn }
}

// NewWriter starts a writer with a queue of the given size.
func NewWriter(size int, log *logging.Logger, opts ...WriterOption) *Writer {
	if size <= 0 {
		size = 256
	}
	w := &Writer{
		jobs:    make(chan job, size),
		log:     log.Sub("store.writer"),
		backoff: 250 * time.Millisecond,
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	go w.run()
	return w
}

// Submit enqueues a write without blocking.
func (w *Writer) Submit(name, callSid string, fn WriteFunc) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.jobs <- job{name: name, callSid: callSid, fn: fn}:
		return nil
	default:
		w.log.Error().Str("job", name).Str("callSid", callSid).Msg("write queue full, dropping job")
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for j := range w.jobs {
		err := w.attempt(j)
		if err == nil {
			continue
		}
		w.log.Warn().Err(err).Str("job", j.name).Str("callSid", j.callSid).Msg("write failed, retrying")
		time.Sleep(w.backoff)
		if err := w.attempt(j); err != nil {
			w.log.Error().Err(err).Str("job", j.name).Str("callSid", j.callSid).Msg("write failed after retry")
			if w.onFail != nil {
				w.onFail(j.name, err)
			}
		}
	}
}

func (w *Writer) attempt(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return j.fn(ctx)
}
