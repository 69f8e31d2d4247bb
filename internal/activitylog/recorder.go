package activitylog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// Sink is what the Recorder writes to; *Service satisfies it.
type Sink interface {
	Record(ctx context.Context, e Entry) (Entry, error)
}

// RecorderObserver is told about entries that never reached the sink.
type RecorderObserver interface {
	EntryDropped()
	EntryFailed()
}

type RecorderOption func(*Recorder)

func WithBufferSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

func WithDrainTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.drainTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

func WithObserver(o RecorderObserver) RecorderOption {
	return func(r *Recorder) { r.observer = o }
}

// Recorder decouples callers from the sink via a buffered channel.
// Record never blocks: a full buffer drops the entry with a warning,
// and sink errors are logged and swallowed.
type Recorder struct {
	sink         Sink
	ch           chan Entry
	done         chan struct{}
	log          *slog.Logger
	observer     RecorderObserver
	bufSize      int
	drainTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewRecorder starts the drain goroutine immediately.
func NewRecorder(sink Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sink:         sink,
		log:          slog.Default(),
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "activity_recorder")
	r.ch = make(chan Entry, r.bufSize)
	r.done = make(chan struct{})
	go r.drain()
	return r
}

func (r *Recorder) Record(e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Warn("recorder closed, dropping entry", "tab", e.Tab, "action", e.Action)
		r.dropped()
		return
	}
	select {
	case r.ch <- e:
	default:
		r.log.Warn("activity buffer full, dropping entry", "tab", e.Tab, "action", e.Action)
		r.dropped()
	}
}

// Close stops accepting entries and waits for the buffer to drain, up to the drain timeout.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.ch)
		r.mu.Unlock()

		select {
		case <-r.done:
		case <-time.After(r.drainTimeout):
			r.log.Warn("activity recorder drain timed out")
		}
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for e := range r.ch {
		if _, err := r.sink.Record(context.Background(), e); err != nil {
			r.log.Warn("activity write failed", "tab", e.Tab, "action", e.Action, "err", err)
			if r.observer != nil {
				r.observer.EntryFailed()
			}
		}
	}
}

func (r *Recorder) dropped() {
	if r.observer != nil {
		r.observer.EntryDropped()
	}
}
