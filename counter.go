package chatdet

import (
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
)

// Events is the record kept for one context: a stored value per following
// symbol plus a cached total. For the exact counter Total is the sum of
// Counts; for the approximate counter both follow the same probabilistic
// increment policy.
type Events struct {
	Counts map[byte]uint32
	Total  uint32
}

func newEvents() *Events {
	return &Events{Counts: make(map[byte]uint32, 4)}
}

func (e *Events) clone() *Events {
	out := &Events{Counts: make(map[byte]uint32, len(e.Counts)), Total: e.Total}
	for k, v := range e.Counts {
		out.Counts[k] = v
	}
	return out
}

// rescale floor-divides every stored value in the record by factor.
func (e *Events) rescale(factor uint32) {
	for k, v := range e.Counts {
		e.Counts[k] = v / factor
	}
	e.Total /= factor
}

// Counter is the counting strategy behind a Model. Observe records one
// occurrence of ev following ctx; Estimate recovers a true count from a
// stored value.
type Counter interface {
	Observe(ctx []byte, e *Events, ev byte)
	Estimate(stored uint32) float64
}

// ExactCounter increments stored values by one per observation. If a
// context total would overflow, the context is halved first.
type ExactCounter struct {
	// Max is the largest storable value; zero means math.MaxUint32.
	Max    uint32
	Logger log.FieldLogger
}

var _ Counter = (*ExactCounter)(nil)

func (c *ExactCounter) Observe(ctx []byte, e *Events, ev byte) {
	max := ceiling(c.Max)
	if e.Total >= max || e.Counts[ev] >= max {
		logRescale(c.Logger, ctx, e.Total, 2)
		e.rescale(2)
	}
	e.Counts[ev]++
	e.Total++
}

func (c *ExactCounter) Estimate(stored uint32) float64 {
	return float64(stored)
}

// ApproxCounter is a logarithmic counter. Below B it counts exactly; at or
// above B a stored value v is incremented with probability 1/(1+1/A)^v, so
// stored values grow roughly with the log of the true count.
//
// ApproxCounter is not safe for concurrent use: Rand is shared by every
// context of the model it belongs to.
type ApproxCounter struct {
	A       uint32
	B       uint32
	Scaling uint8

	// Max is the largest storable value; zero means math.MaxUint32. When a
	// context total reaches Max, the context is divided by Scaling before the
	// next increment.
	Max    uint32
	Rand   *rand.Rand
	Logger log.FieldLogger
}

var _ Counter = (*ApproxCounter)(nil)

// NewApproxCounter validates the counting parameters. A nil src is replaced
// by a time-seeded source.
func NewApproxCounter(a, b uint32, scaling uint8, src *rand.Rand) (*ApproxCounter, error) {
	if a < 1 {
		return nil, &ConfigError{Field: "a", Reason: "must be at least 1"}
	}
	if scaling < 1 {
		return nil, &ConfigError{Field: "scaling factor", Reason: "must be at least 1"}
	}
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ApproxCounter{A: a, B: b, Scaling: scaling, Rand: src}, nil
}

func (c *ApproxCounter) growth() float64 {
	return 1 + 1/float64(c.A)
}

func (c *ApproxCounter) admit(v uint32) bool {
	if v < c.B {
		return true
	}
	return c.Rand.Float64() < 1/math.Pow(c.growth(), float64(v))
}

func (c *ApproxCounter) Observe(ctx []byte, e *Events, ev byte) {
	max := ceiling(c.Max)
	if e.Total >= max || e.Counts[ev] >= max {
		// A scaling factor of 1 cannot make room; fall back to halving so the
		// increment below stays in range.
		factor := uint32(c.Scaling)
		if factor < 2 {
			factor = 2
		}
		logRescale(c.Logger, ctx, e.Total, factor)
		e.rescale(factor)
	}

	if !c.admit(e.Counts[ev]) {
		return
	}
	e.Counts[ev]++
	if c.admit(e.Total) {
		e.Total++
	}
}

func (c *ApproxCounter) Estimate(stored uint32) float64 {
	if stored > c.B {
		a := float64(c.A)
		return a * (math.Pow(c.growth(), float64(stored)) - 1)
	}
	return float64(stored)
}

func ceiling(max uint32) uint32 {
	if max == 0 {
		return math.MaxUint32
	}
	return max
}

func logRescale(l log.FieldLogger, ctx []byte, total uint32, factor uint32) {
	if l == nil {
		l = log.StandardLogger()
	}
	l.WithFields(log.Fields{
		"context": string(ctx),
		"total":   total,
		"scaling": factor,
	}).Warn("context count at ceiling, rescaling")
}
