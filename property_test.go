package chatdet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPropertyModelRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decoded model equals the encoded one", prop.ForAll(
		func(text string, order int, smoothing float32, ignoreCase bool) bool {
			alpha := ASCIIAlpha
			if ignoreCase {
				alpha = alpha.Fold()
			}
			m, err := NewModel(ModelConfig{ID: text, Order: order, Smoothing: smoothing, Alphabet: alpha, IgnoreCase: ignoreCase})
			if err != nil {
				return false
			}
			m.UpdateString(text)

			data, err := m.MarshalBinary()
			if err != nil {
				return false
			}
			var out Model
			if err := out.UnmarshalBinary(data); err != nil {
				return false
			}
			return m.Equal(&out)
		},
		gen.AlphaString(),
		gen.IntRange(1, 4),
		gen.Float32Range(0, 2),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyDistribution(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("probabilities over the alphabet sum to one", prop.ForAll(
		func(text string, order int, smoothing float32) bool {
			m, err := NewModel(ModelConfig{Order: order, Smoothing: smoothing, Alphabet: NewAlphabet("abc")})
			if err != nil {
				return false
			}
			m.UpdateString(text)

			alpha := m.Alphabet()
			ctxs := append(m.Contexts(), "zzzz"[:order])
			for _, ctx := range ctxs {
				var sum float64
				for _, b := range alpha.Bytes() {
					p := m.Probability(ctx, b)
					if p < 0 || p > 1 {
						return false
					}
					if m.BitCost(ctx, b) < 0 {
						return false
					}
					sum += p
				}
				if math.Abs(sum-1) > 1e-9 {
					return false
				}
			}
			return true
		},
		gen.RegexMatch("[abc]{0,64}"),
		gen.IntRange(1, 3),
		gen.Float32Range(0.01, 2),
	))

	properties.Property("total bit cost is non-negative", prop.ForAll(
		func(train, text string) bool {
			m, err := NewModel(ModelConfig{Order: 2, Smoothing: 1, Alphabet: ASCIIAlpha})
			if err != nil {
				return false
			}
			m.UpdateString(train)
			bits := m.TotalBitCostString(text, false)
			return bits >= 0 && !math.IsNaN(bits)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyApproxNeverExceedsExact(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stored approximate counts never exceed true counts", prop.ForAll(
		func(text string, seed int64) bool {
			cfg := ModelConfig{Order: 1, Smoothing: 1, Alphabet: NewAlphabet("ab")}
			exact, err := NewModel(cfg)
			if err != nil {
				return false
			}
			approx, err := NewModel(cfg, ModelApproximate(2, 2, 2), ModelRand(rand.New(rand.NewSource(seed))))
			if err != nil {
				return false
			}
			exact.UpdateString(text)
			approx.UpdateString(text)

			for _, ctx := range approx.Contexts() {
				ae, _ := approx.Events(ctx)
				ee, ok := exact.Events(ctx)
				if !ok || ae.Total > ee.Total {
					return false
				}
				for ev, n := range ae.Counts {
					if n > ee.Counts[ev] {
						return false
					}
				}
			}
			return true
		},
		gen.RegexMatch("[ab]{0,200}"),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyConfusionConservation(t *testing.T) {
	properties := gopter.NewProperties(nil)
	labels := []string{"de", "en", "fr"}

	properties.Property("every sample is counted exactly once", prop.ForAll(
		func(actual, predicted []int) bool {
			c := NewConfusionMatrix()
			n := len(actual)
			if len(predicted) < n {
				n = len(predicted)
			}
			for i := 0; i < n; i++ {
				c.Add(labels[actual[i]], labels[predicted[i]])
			}

			var byLabel uint32
			for _, l := range c.Labels() {
				byLabel += c.LabelCount(l)
			}
			return c.Count() == uint32(n) &&
				byLabel == uint32(n) &&
				c.Hits()+c.Misses() == uint32(n)
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyApproxCountNonDecreasing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("estimated count never decreases as observations arrive", prop.ForAll(
		func(a, b uint32, n int, seed int64) bool {
			m, err := NewModel(ModelConfig{Order: 1, Smoothing: 1, Alphabet: NewAlphabet("ab")},
				ModelApproximate(a, b, 2),
				ModelRand(rand.New(rand.NewSource(seed))))
			if err != nil {
				return false
			}

			prev := m.Count("a", 'b')
			for i := 0; i < n; i++ {
				m.UpdateString("ab")
				cur := m.Count("a", 'b')
				if cur < prev {
					return false
				}
				prev = cur
			}
			return true
		},
		gen.UInt32Range(1, 16),
		gen.UInt32Range(0, 16),
		gen.IntRange(0, 500),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
