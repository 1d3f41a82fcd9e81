package chatdet

import (
	"io"
	"math"
	"math/rand"
	"sort"

	log "github.com/sirupsen/logrus"
)

// ModelConfig holds the fixed configuration of a Model.
type ModelConfig struct {
	ID         string
	Order      int
	Smoothing  float32
	Alphabet   Alphabet
	IgnoreCase bool
}

func (cfg ModelConfig) validate() error {
	if cfg.Order < 1 {
		return &ConfigError{Field: "order", Reason: "must be at least 1"}
	}
	if cfg.Alphabet.Len() == 0 {
		return &ConfigError{Field: "alphabet", Reason: "must not be empty"}
	}
	if cfg.Smoothing < 0 || math.IsNaN(float64(cfg.Smoothing)) {
		return &ConfigError{Field: "smoothing", Reason: "must be a non-negative number"}
	}
	if cfg.IgnoreCase && !cfg.Alphabet.Folded() {
		return &ConfigError{Field: "alphabet", Reason: "must be upper-case when ignoring case"}
	}
	return nil
}

type modelOptions struct {
	counter Counter
	approx  *approxParams
	rand    *rand.Rand
	logger  log.FieldLogger
	ceiling uint32
}

type approxParams struct {
	a, b    uint32
	scaling uint8
}

type ModelOption func(o *modelOptions)

// ModelApproximate backs the model with an ApproxCounter.
func ModelApproximate(a, b uint32, scaling uint8) ModelOption {
	return func(o *modelOptions) {
		o.approx = &approxParams{a: a, b: b, scaling: scaling}
	}
}

// ModelRand sets the random source used by the approximate counter.
func ModelRand(src *rand.Rand) ModelOption {
	return func(o *modelOptions) { o.rand = src }
}

func ModelLogger(l log.FieldLogger) ModelOption {
	return func(o *modelOptions) { o.logger = l }
}

// ModelCountCeiling lowers the largest storable count, which is otherwise
// math.MaxUint32.
func ModelCountCeiling(max uint32) ModelOption {
	return func(o *modelOptions) { o.ceiling = max }
}

// ModelCounter installs a custom counting strategy. It takes precedence over
// ModelApproximate. Models with a custom counter persist as exact models.
func ModelCounter(c Counter) ModelOption {
	return func(o *modelOptions) { o.counter = c }
}

// Model is a finite-context model of order k: it maps each context of k
// accepted symbols to the counts of the symbols that followed it.
//
// Model is not safe for concurrent mutation. Concurrent reads (Count,
// Probability, TotalBitCost without update) are safe.
type Model struct {
	id         string
	order      int
	smoothing  float32
	alpha      Alphabet
	ignoreCase bool

	counter  Counter
	contexts map[string]*Events
}

func NewModel(cfg ModelConfig, opts ...ModelOption) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var o modelOptions
	for _, opt := range opts {
		opt(&o)
	}

	counter, err := o.build()
	if err != nil {
		return nil, err
	}

	return &Model{
		id:         cfg.ID,
		order:      cfg.Order,
		smoothing:  cfg.Smoothing,
		alpha:      cfg.Alphabet,
		ignoreCase: cfg.IgnoreCase,
		counter:    counter,
		contexts:   make(map[string]*Events),
	}, nil
}

func (o *modelOptions) build() (Counter, error) {
	if o.counter != nil {
		return o.counter, nil
	}
	if o.approx == nil {
		return &ExactCounter{Max: o.ceiling, Logger: o.logger}, nil
	}
	c, err := NewApproxCounter(o.approx.a, o.approx.b, o.approx.scaling, o.rand)
	if err != nil {
		return nil, err
	}
	c.Max = o.ceiling
	c.Logger = o.logger
	return c, nil
}

func (m *Model) ID() string { return m.id }
func (m *Model) Order() int { return m.order }
func (m *Model) Smoothing() float32 { return m.smoothing }
func (m *Model) Alphabet() Alphabet { return m.alpha }
func (m *Model) IgnoreCase() bool { return m.ignoreCase }
func (m *Model) Counter() Counter { return m.counter }
func (m *Model) Len() int { return len(m.contexts) }

// Approximate returns the approximate counter backing the model, if any.
func (m *Model) Approximate() (*ApproxCounter, bool) {
	c, ok := m.counter.(*ApproxCounter)
	return c, ok
}

// Accept folds b if the model ignores case and reports whether the result
// is part of the alphabet.
func (m *Model) Accept(b byte) (byte, bool) {
	if m.ignoreCase {
		b = foldByte(b)
	}
	return b, m.alpha.Contains(b)
}

// scan feeds every accepted byte of rdr to fn along with the context that
// precedes it. The first k accepted bytes only fill the window.
func (m *Model) scan(rdr io.Reader, fn func(ctx []byte, ev byte)) error {
	win, err := NewWindow(m.order)
	if err != nil {
		return err
	}

	scratch := make([]byte, 8192)
	ctx := make([]byte, 0, m.order)

	for {
		n, err := rdr.Read(scratch)
		for _, b := range scratch[:n] {
			b, ok := m.Accept(b)
			if !ok {
				continue
			}
			if win.Full() {
				ctx = win.AppendTo(ctx[:0])
				fn(ctx, b)
			}
			win.Push(b)
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func (m *Model) scanString(s string, fn func(ctx []byte, ev byte)) {
	win, _ := NewWindow(m.order)
	ctx := make([]byte, 0, m.order)
	for i := 0; i < len(s); i++ {
		b, ok := m.Accept(s[i])
		if !ok {
			continue
		}
		if win.Full() {
			ctx = win.AppendTo(ctx[:0])
			fn(ctx, b)
		}
		win.Push(b)
	}
}

func (m *Model) observe(ctx []byte, ev byte) {
	e, ok := m.contexts[string(ctx)]
	if !ok {
		e = newEvents()
		m.contexts[string(ctx)] = e
	}
	m.counter.Observe(ctx, e, ev)
}

// Update counts every context/symbol pair in rdr. Each call starts with an
// empty window and adds to the existing tables.
func (m *Model) Update(rdr io.Reader) error {
	return m.scan(rdr, m.observe)
}

func (m *Model) UpdateString(s string) {
	m.scanString(s, m.observe)
}

// Count returns the estimated number of times ev followed ctx.
func (m *Model) Count(ctx string, ev byte) float64 {
	e := m.contexts[ctx]
	if e == nil {
		return 0
	}
	return m.counter.Estimate(e.Counts[ev])
}

// ContextCount returns the estimated number of times ctx was followed by
// any symbol.
func (m *Model) ContextCount(ctx string) float64 {
	e := m.contexts[ctx]
	if e == nil {
		return 0
	}
	return m.counter.Estimate(e.Total)
}

// TotalCount returns the estimated number of observations in the model.
func (m *Model) TotalCount() float64 {
	var sum float64
	for _, e := range m.contexts {
		sum += m.counter.Estimate(e.Total)
	}
	return sum
}

// Probability returns the additively smoothed probability of ev following
// ctx. With zero smoothing an unseen context yields NaN.
func (m *Model) Probability(ctx string, ev byte) float64 {
	return m.probability(m.contexts[ctx], ev)
}

func (m *Model) probability(e *Events, ev byte) float64 {
	alpha := float64(m.smoothing)
	var n, total float64
	if e != nil {
		n = m.counter.Estimate(e.Counts[ev])
		total = m.counter.Estimate(e.Total)
	}
	return (n + alpha) / (total + alpha*float64(m.alpha.Len()))
}

// BitCost returns -log2(Probability(ctx, ev)), the number of bits needed to
// code ev after ctx.
func (m *Model) BitCost(ctx string, ev byte) float64 {
	return -math.Log2(m.Probability(ctx, ev))
}

func (m *Model) costFunc(bits *float64, update bool) func(ctx []byte, ev byte) {
	return func(ctx []byte, ev byte) {
		*bits += -math.Log2(m.probability(m.contexts[string(ctx)], ev))
		if update {
			m.observe(ctx, ev)
		}
	}
}

// TotalBitCost sums BitCost over every accepted symbol in rdr. Each symbol
// is costed with the model as it was before that symbol; if update is set
// the pair is then recorded.
func (m *Model) TotalBitCost(rdr io.Reader, update bool) (float64, error) {
	var bits float64
	if err := m.scan(rdr, m.costFunc(&bits, update)); err != nil {
		return 0, err
	}
	return bits, nil
}

func (m *Model) TotalBitCostString(s string, update bool) float64 {
	var bits float64
	m.scanString(s, m.costFunc(&bits, update))
	return bits
}

// Reset discards every context record; the configuration is kept.
func (m *Model) Reset() {
	m.contexts = make(map[string]*Events)
}

// Contexts returns every stored context in sorted order.
func (m *Model) Contexts() []string {
	out := make([]string, 0, len(m.contexts))
	for ctx := range m.contexts {
		out = append(out, ctx)
	}
	sort.Strings(out)
	return out
}

// Events returns a copy of the record stored for ctx.
func (m *Model) Events(ctx string) (Events, bool) {
	e := m.contexts[ctx]
	if e == nil {
		return Events{}, false
	}
	return *e.clone(), true
}

// Equal reports whether two models are observably identical: same
// configuration, same counting parameters and same stored records.
func (m *Model) Equal(other *Model) bool {
	if m.id != other.id || m.order != other.order || m.ignoreCase != other.ignoreCase {
		return false
	}
	if math.Float32bits(m.smoothing) != math.Float32bits(other.smoothing) {
		return false
	}
	if !m.alpha.Equal(other.alpha) {
		return false
	}

	ma, mok := m.Approximate()
	oa, ook := other.Approximate()
	if mok != ook {
		return false
	}
	if mok && (ma.A != oa.A || ma.B != oa.B || ma.Scaling != oa.Scaling) {
		return false
	}

	if len(m.contexts) != len(other.contexts) {
		return false
	}
	for ctx, e := range m.contexts {
		oe := other.contexts[ctx]
		if oe == nil || e.Total != oe.Total || len(e.Counts) != len(oe.Counts) {
			return false
		}
		for ev, n := range e.Counts {
			if on, ok := oe.Counts[ev]; !ok || on != n {
				return false
			}
		}
	}
	return true
}
