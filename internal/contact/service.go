package contact

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// deliveryTimeout bounds each background sink write.
const deliveryTimeout = 30 * time.Second

// Sink persists submissions somewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, s Submission) error
}

// Recorder receives per-sink delivery outcomes.
type Recorder interface {
	ObserveDelivery(sink string, err error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service validates, acknowledges and fans submissions out to its sinks.
type Service struct {
	sinks   []Sink
	reader  Reader
	clock   Clock
	logger  *slog.Logger
	metrics Recorder

	inflight sync.WaitGroup
}

// Reader reads submissions back for the admin view.
type Reader interface {
	List(ctx context.Context) ([]Row, error)
}

// FallbackReader lists from primary, or from fallback while primary reports
// ErrNotConfigured. Credentials can arrive at runtime, so the choice is made
// per call.
func FallbackReader(primary, fallback Reader) Reader {
	return fallbackReader{primary: primary, fallback: fallback}
}

type fallbackReader struct {
	primary, fallback Reader
}

func (r fallbackReader) List(ctx context.Context) ([]Row, error) {
	rows, err := r.primary.List(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return r.fallback.List(ctx)
	}
	return rows, err
}

// Option customizes a Service.
type Option func(*Service)

func WithClock(c Clock) Option         { return func(s *Service) { s.clock = c } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }
func WithMetrics(r Recorder) Option    { return func(s *Service) { s.metrics = r } }

// WithReader sets where List reads from.
func WithReader(r Reader) Option { return func(s *Service) { s.reader = r } }

func NewService(sinks []Sink, opts ...Option) *Service {
	s := &Service{
		sinks:  sinks,
		clock:  realClock{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "contact")
	return s
}

// Submit validates sub and returns the acknowledgement at once. Delivery to
// every sink then runs in the background; sinks do not wait on or cancel
// each other and their failures are only logged. Cancelling ctx does not
// abort delivery.
func (s *Service) Submit(ctx context.Context, sub Submission) (Ack, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return Ack{}, err
	}
	sub.Timestamp = s.clock.Now().UTC()
	ack := Ack{Message: ackMessage(sub), Timestamp: sub.Timestamp}

	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.deliver(bg, sub)
	}()
	return ack, nil
}

func (s *Service) deliver(ctx context.Context, sub Submission) {
	var g errgroup.Group
	for _, sink := range s.sinks {
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			defer cancel()

			err := sink.Deliver(dctx, sub)
			if err != nil {
				s.logger.Error("contact delivery failed", "sink", sink.Name(), "email", sub.Email, "error", err)
			} else {
				s.logger.Info("contact delivered", "sink", sink.Name())
			}
			if s.metrics != nil {
				s.metrics.ObserveDelivery(sink.Name(), err)
			}
			// never fail the group: one sink must not affect another
			return nil
		})
	}
	g.Wait()
}

// Wait blocks until all background deliveries started so far have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// List returns stored submissions, oldest first.
func (s *Service) List(ctx context.Context) ([]Row, error) {
	if s.reader == nil {
		return nil, ErrNotConfigured
	}
	return s.reader.List(ctx)
}
