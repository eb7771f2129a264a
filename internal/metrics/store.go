package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMiddleware wraps a LayoutStore to add behavior.
type StoreMiddleware func(ports.LayoutStore) ports.LayoutStore

type instrumentedStore struct {
	next     ports.LayoutStore
	duration *prometheus.HistogramVec
}

// InstrumentStore returns a middleware that times every store call by
// operation and outcome ("ok", "not_found" or "error").
func (m *Metrics) InstrumentStore() StoreMiddleware {
	return func(next ports.LayoutStore) ports.LayoutStore {
		return &instrumentedStore{next: next, duration: m.storeOps}
	}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrLayoutNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.duration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Save(ctx context.Context, layoutID string, layout *domain.Layout) error {
	start := time.Now()
	err := s.next.Save(ctx, layoutID, layout)
	s.observe("save", start, err)
	return err
}

func (s *instrumentedStore) Load(ctx context.Context, layoutID string) (*domain.Layout, error) {
	start := time.Now()
	l, err := s.next.Load(ctx, layoutID)
	s.observe("load", start, err)
	return l, err
}

func (s *instrumentedStore) Delete(ctx context.Context, layoutID string) error {
	start := time.Now()
	err := s.next.Delete(ctx, layoutID)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := s.next.List(ctx)
	s.observe("list", start, err)
	return ids, err
}
