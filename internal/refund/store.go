package refund

import (
	"context"
	"sync"
)

// Source exposes the external collaborators owning refund state.
type Source interface {
	Latest(ctx context.Context, taxYear int) (*Snapshot, error)
	Simulate(ctx context.Context, req TransitionRequest) error
}

// ErrorReporter receives one message per failed store operation.
type ErrorReporter interface {
	ReportError(message string)
}

// ReporterFunc adapts plain functions to ErrorReporter.
type ReporterFunc func(message string)

// ReportError calls f(message).
func (f ReporterFunc) ReportError(message string) { f(message) }

// ChannelReporter delivers every reported message on C in order. Reports are queued
// without bound so the store never blocks on a slow reader.
type ChannelReporter struct {
	C <-chan string

	mu     sync.Mutex
	queue  []string
	closed bool
	wake   chan struct{}
}

// NewChannelReporter creates ChannelReporter and starts its delivery goroutine.
// Call Close once the store is no longer used.
func NewChannelReporter() *ChannelReporter {
	out := make(chan string)
	r := &ChannelReporter{C: out, wake: make(chan struct{}, 1)}
	go r.deliver(out)
	return r
}

// ReportError enqueues message. It panics after Close, like a send on a closed channel.
func (r *ChannelReporter) ReportError(message string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		panic("refund: ReportError on closed ChannelReporter")
	}
	r.queue = append(r.queue, message)
	r.mu.Unlock()
	r.signal()
}

// Close closes C after every queued message has been received.
func (r *ChannelReporter) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.signal()
}

func (r *ChannelReporter) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *ChannelReporter) deliver(out chan<- string) {
	defer close(out)
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return
			}
			<-r.wake
			continue
		}
		msg := r.queue[0]
		r.queue[0] = ""
		r.queue = r.queue[1:]
		r.mu.Unlock()

		out <- msg
	}
}

// Option customizes Store.
type Option func(*Store)

// WithLifecycle sets the status ordering used by Advance.
func WithLifecycle(l Lifecycle) Option {
	return func(s *Store) { s.lifecycle = l }
}

// WithTaxYear sets the year requested by Refresh before anything has loaded.
func WithTaxYear(year int) Option {
	return func(s *Store) { s.taxYear = year }
}

// Store holds the latest known refund snapshot for a session and mediates
// every read and transition against Source.
type Store struct {
	source    Source
	reporter  ErrorReporter
	lifecycle Lifecycle
	taxYear   int

	mu      sync.RWMutex
	current *Snapshot
}

// NewStore constructs Store. A nil reporter discards messages.
func NewStore(source Source, reporter ErrorReporter, opts ...Option) *Store {
	if reporter == nil {
		reporter = ReporterFunc(func(string) {})
	}
	s := &Store{
		source:    source,
		reporter:  reporter,
		lifecycle: DefaultLifecycle(),
		taxYear:   ActiveTaxYear,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the held snapshot or nil before the first successful load.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Lifecycle returns the ordering used by Advance.
func (s *Store) Lifecycle() Lifecycle {
	return s.lifecycle
}

// Load fetches the snapshot for taxYear and makes it the latest known state.
func (s *Store) Load(ctx context.Context, taxYear int) (*Snapshot, error) {
	snap, err := s.source.Latest(ctx, taxYear)
	if err == nil && snap == nil {
		err = ErrEmptySnapshot
	}
	if err != nil {
		return nil, s.fail(&LoadFailedError{Err: err})
	}

	held := snap.clone()
	s.mu.Lock()
	s.current = held
	s.mu.Unlock()

	return held.clone(), nil
}

// Refresh reloads the held tax year. Before any snapshot exists it loads the configured year.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	year := s.taxYear
	if held := s.Current(); held != nil {
		year = held.TaxYear
	}
	return s.Load(ctx, year)
}

// Advance requests the next lifecycle status from the source of truth and reloads
// the authoritative snapshot. It is a no-op when nothing is loaded or the held status
// has no successor.
func (s *Store) Advance(ctx context.Context) (*Snapshot, error) {
	held := s.Current()
	if held == nil {
		return nil, nil
	}

	next, ok := s.lifecycle.Next(held.Status)
	if !ok {
		return held, nil
	}

	req := TransitionRequest{
		TaxYear:        held.TaxYear,
		Status:         next,
		ExpectedAmount: held.ExpectedAmount,
		TrackingID:     held.TrackingID,
	}
	if err := s.source.Simulate(ctx, req); err != nil {
		return nil, s.fail(&SimulateFailedError{Err: err})
	}

	return s.Load(ctx, held.TaxYear)
}

func (s *Store) fail(err error) error {
	s.reporter.ReportError(err.Error())
	return err
}
