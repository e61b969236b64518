package weights

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"PillarCast/internal/domain/models"
	domsvc "PillarCast/internal/domain/service"

	"github.com/go-playground/validator/v10"
)

type suggestion struct {
	weights models.PillarWeights
	source  string
	at      time.Time
}

// Supplier holds the most recent externally suggested weight vector.
// A suggestion older than maxAge is ignored.
type Supplier struct {
	latest   atomic.Pointer[suggestion]
	maxAge   time.Duration
	now      func() time.Time
	validate *validator.Validate
}

var _ domsvc.WeightSupplier = (*Supplier)(nil)

// Option configures the Supplier.
type Option func(*Supplier)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Supplier) { s.now = now }
}

func NewSupplier(maxAge time.Duration, opts ...Option) *Supplier {
	s := &Supplier{maxAge: maxAge, now: time.Now, validate: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offer validates msg and makes it the current suggestion.
func (s *Supplier) Offer(msg models.SuggestedWeightsMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", models.ErrInvalidWeights, verrs.Error())
		}
		return err
	}
	w := msg.Weights()
	if err := w.Validate(); err != nil {
		return err
	}
	s.latest.Store(&suggestion{weights: w, source: msg.Source, at: s.now()})
	return nil
}

// Clear forgets the current suggestion.
func (s *Supplier) Clear() { s.latest.Store(nil) }

func (s *Supplier) SuggestedWeights() (models.PillarWeights, bool) {
	cur := s.latest.Load()
	if cur == nil {
		return models.PillarWeights{}, false
	}
	if s.maxAge > 0 && s.now().Sub(cur.at) > s.maxAge {
		return models.PillarWeights{}, false
	}
	return cur.weights, true
}
