package dsim

import (
	"encoding/gob"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/multierr"
)

func init() {
	gob.Register(Synchronous{})
	gob.Register(Asynchronous{})
	gob.Register(PartiallySynchronous{})
	gob.Register(StochasticExponential{})
}

// DefaultMinDelay is the lower bound on message delay used by all synchrony
// model constructors.
const DefaultMinDelay = time.Microsecond

// jitter is added to randomized delays so they never collide exactly with a
// deterministic bound.
const jitter = time.Nanosecond

// lostHorizon stands in for "never delivered": far enough in the future that
// no realistic run reaches it, small enough not to overflow Duration
// arithmetic.
const lostHorizon = 10000 * 24 * time.Hour

// SynchronyModel maps a virtual send time to a (possibly randomized) virtual
// delivery time. Implementations are immutable parameter records; all
// randomness comes from the generator passed in by the caller, which keeps
// runs reproducible under a fixed seed.
//
// Every implementation guarantees ArrivalTimeFor(rng, t) >= t + MinDelay().
type SynchronyModel interface {
	MinDelay() time.Duration
	ArrivalTimeFor(rng *rand.Rand, sentAt time.Duration) time.Duration
}

func scaled(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// Synchronous delivers every message after the same fixed delay.
type Synchronous struct {
	Min   time.Duration `json:"min"`
	Fixed time.Duration `json:"fixed"`
}

var _ SynchronyModel = Synchronous{}

// NewSynchronous builds a synchronous model with the given fixed delay.
func NewSynchronous(fixed time.Duration) (Synchronous, error) {
	model := Synchronous{Min: DefaultMinDelay, Fixed: fixed}
	if err := model.validate(); err != nil {
		return Synchronous{}, err
	}
	return model, nil
}

func (m Synchronous) validate() error {
	var err error
	if m.Min <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: minimum delay must be strictly positive, got %v", ErrValidation, m.Min))
	}
	if m.Fixed < m.Min {
		err = multierr.Append(err, fmt.Errorf("%w: fixed delay %v is below the minimum delay %v", ErrValidation, m.Fixed, m.Min))
	}
	return err
}

func (m Synchronous) MinDelay() time.Duration {
	return m.Min
}

func (m Synchronous) ArrivalTimeFor(rng *rand.Rand, sentAt time.Duration) time.Duration {
	return sentAt + m.Fixed
}

// Asynchronous delivers after an unbounded randomized delay:
// min + base*(Exp(rate 2) + Uniform(0,1)).
type Asynchronous struct {
	Min  time.Duration `json:"min"`
	Base time.Duration `json:"base"`
}

var _ SynchronyModel = Asynchronous{}

// NewAsynchronous builds an asynchronous model with the given base delay.
func NewAsynchronous(base time.Duration) (Asynchronous, error) {
	model := Asynchronous{Min: DefaultMinDelay, Base: base}
	var err error
	if model.Min <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: minimum delay must be strictly positive, got %v", ErrValidation, model.Min))
	}
	if model.Base < model.Min {
		err = multierr.Append(err, fmt.Errorf("%w: base delay %v is below the minimum delay %v", ErrValidation, model.Base, model.Min))
	}
	if err != nil {
		return Asynchronous{}, err
	}
	return model, nil
}

func (m Asynchronous) MinDelay() time.Duration {
	return m.Min
}

func (m Asynchronous) ArrivalTimeFor(rng *rand.Rand, sentAt time.Duration) time.Duration {
	factor := rng.ExpFloat64()/2 + rng.Float64()
	return sentAt + m.Min + scaled(m.Base, factor)
}

// PartiallySynchronous behaves synchronously after its global stabilization
// time. Before the GST it models transient link instability by drawing one
// of five outcomes, weighted {short:1, long:4, near-lost:2, lost:1, lucky:1}:
// boundedly short or unboundedly long delays, a delivery pushed just past
// the GST, a practically-never delivery (still eventually processed, never
// dropped), or a lucky synchronous delivery.
type PartiallySynchronous struct {
	Synchronous
	GST time.Duration `json:"gst"`
}

var _ SynchronyModel = PartiallySynchronous{}

// NewPartiallySynchronous builds a partially synchronous model with the given
// fixed delay and global stabilization time.
func NewPartiallySynchronous(fixed, gst time.Duration) (PartiallySynchronous, error) {
	model := PartiallySynchronous{
		Synchronous: Synchronous{Min: DefaultMinDelay, Fixed: fixed},
		GST:         gst,
	}
	err := model.Synchronous.validate()
	if gst <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: GST must be strictly positive, got %v", ErrValidation, gst))
	}
	if err != nil {
		return PartiallySynchronous{}, err
	}
	return model, nil
}

func (m PartiallySynchronous) ArrivalTimeFor(rng *rand.Rand, sentAt time.Duration) time.Duration {
	if sentAt >= m.GST {
		return m.Synchronous.ArrivalTimeFor(rng, sentAt)
	}
	var arrival time.Duration
	switch draw := rng.Intn(9); {
	case draw == 0: // short
		arrival = sentAt + jitter + scaled(m.Fixed, rng.Float64()*2)
	case draw <= 4: // long
		arrival = sentAt + jitter + scaled(m.Fixed, 1+rng.Float64()+rng.ExpFloat64()*10)
	case draw <= 6: // near lost: lands just after stabilization
		arrival = m.GST + jitter + scaled(m.Fixed, 1_000_000+rng.ExpFloat64()*1_000_000)
	case draw == 7: // lost: astronomically late, but still delivered
		arrival = lostHorizon
		if m.GST > arrival {
			arrival = m.GST
		}
	default: // lucky
		arrival = m.Synchronous.ArrivalTimeFor(rng, sentAt)
	}
	// a short draw may undercut the model-wide lower bound
	if floor := sentAt + m.Min; arrival < floor {
		return floor
	}
	return arrival
}

// StochasticExponential delivers after min + deltaT*Exp(rate 1).
type StochasticExponential struct {
	Min    time.Duration `json:"min"`
	DeltaT time.Duration `json:"deltaT"`
}

var _ SynchronyModel = StochasticExponential{}

// NewStochasticExponential builds a stochastic model with the given delay
// scale.
func NewStochasticExponential(deltaT time.Duration) (StochasticExponential, error) {
	model := StochasticExponential{Min: DefaultMinDelay, DeltaT: deltaT}
	var err error
	if model.Min <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: minimum delay must be strictly positive, got %v", ErrValidation, model.Min))
	}
	if model.DeltaT <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: delta time must be strictly positive, got %v", ErrValidation, model.DeltaT))
	}
	if err != nil {
		return StochasticExponential{}, err
	}
	return model, nil
}

func (m StochasticExponential) MinDelay() time.Duration {
	return m.Min
}

func (m StochasticExponential) ArrivalTimeFor(rng *rand.Rand, sentAt time.Duration) time.Duration {
	return sentAt + m.Min + scaled(m.DeltaT, rng.ExpFloat64())
}
