package chatdet

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var BenchFloatResult float64

func newTestModel(t testing.TB, order int, alpha string, smoothing float32, opts ...ModelOption) *Model {
	t.Helper()
	m, err := NewModel(ModelConfig{
		ID:        "test",
		Order:     order,
		Smoothing: smoothing,
		Alphabet:  NewAlphabet(alpha),
	}, opts...)
	require.NoError(t, err)
	return m
}

func assertEvents(t *testing.T, m *Model, ctx string, want map[byte]uint32) {
	t.Helper()
	e, ok := m.Events(ctx)
	require.True(t, ok, "context %q missing", ctx)
	assert.Equal(t, want, e.Counts, "context %q", ctx)

	var sum uint32
	for _, n := range want {
		sum += n
	}
	assert.Equal(t, sum, e.Total, "context %q total", ctx)
}

func TestModelUpdate(t *testing.T) {
	m := newTestModel(t, 2, "ab", 1)
	m.UpdateString("aabab")

	assert.Equal(t, []string{"aa", "ab", "ba"}, m.Contexts())
	assertEvents(t, m, "aa", map[byte]uint32{'b': 1})
	assertEvents(t, m, "ab", map[byte]uint32{'a': 1})
	assertEvents(t, m, "ba", map[byte]uint32{'b': 1})

	assert.InDelta(t, 2.0/3.0, m.Probability("ab", 'a'), 1e-9)
	assert.InDelta(t, 0.585, m.BitCost("ab", 'a'), 1e-3)
	assert.Equal(t, 3.0, m.TotalCount())
}

func TestModelUpdateReader(t *testing.T) {
	fromString := newTestModel(t, 2, "ab", 1)
	fromString.UpdateString("aabab")

	fromReader := newTestModel(t, 2, "ab", 1)
	require.NoError(t, fromReader.Update(strings.NewReader("aabab")))

	assert.True(t, fromString.Equal(fromReader))
}

func TestModelSkipsForeignSymbols(t *testing.T) {
	m := newTestModel(t, 2, "ab", 1)
	m.UpdateString("a-a.b?a!b")

	clean := newTestModel(t, 2, "ab", 1)
	clean.UpdateString("aabab")
	assert.True(t, m.Equal(clean))
}

func TestModelUpdateAccumulates(t *testing.T) {
	m := newTestModel(t, 1, "ab", 0)
	m.UpdateString("ab")
	m.UpdateString("ab")

	// Each call restarts the window, so no "b" -> "a" transition is seen.
	assertEvents(t, m, "a", map[byte]uint32{'b': 2})
	_, ok := m.Events("b")
	assert.False(t, ok)
}

func TestModelShortInput(t *testing.T) {
	m := newTestModel(t, 3, "ab", 1)
	m.UpdateString("ab")
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0.0, m.TotalBitCostString("ab", false))
}

func TestModelIgnoreCase(t *testing.T) {
	m, err := NewModel(ModelConfig{
		Order:      1,
		Smoothing:  1,
		Alphabet:   NewAlphabet("AB"),
		IgnoreCase: true,
	})
	require.NoError(t, err)

	m.UpdateString("aBab")
	assertEvents(t, m, "A", map[byte]uint32{'B': 2})
	assertEvents(t, m, "B", map[byte]uint32{'A': 1})

	b, ok := m.Accept('b')
	assert.True(t, ok)
	assert.Equal(t, byte('B'), b)
}

func TestModelConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		cfg   ModelConfig
		opts  []ModelOption
		field string
	}{
		{"order", ModelConfig{Order: 0, Alphabet: ASCIIAlpha}, nil, "order"},
		{"alphabet", ModelConfig{Order: 1}, nil, "alphabet"},
		{"smoothing", ModelConfig{Order: 1, Alphabet: ASCIIAlpha, Smoothing: -1}, nil, "smoothing"},
		{"unfolded", ModelConfig{Order: 1, Alphabet: ASCIIAlpha, IgnoreCase: true}, nil, "alphabet"},
		{"scaling", ModelConfig{Order: 1, Alphabet: ASCIIAlpha}, []ModelOption{ModelApproximate(1, 1, 0)}, "scaling factor"},
		{"a", ModelConfig{Order: 1, Alphabet: ASCIIAlpha}, []ModelOption{ModelApproximate(0, 1, 1)}, "a"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModel(tc.cfg, tc.opts...)
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestModelUnseenContext(t *testing.T) {
	m := newTestModel(t, 2, "abc", 1)
	assert.InDelta(t, 1.0/3.0, m.Probability("zz", 'a'), 1e-9)
	assert.InDelta(t, math.Log2(3), m.BitCost("zz", 'a'), 1e-9)

	zero := newTestModel(t, 2, "abc", 0)
	assert.True(t, math.IsNaN(zero.Probability("zz", 'a')))
}

func TestModelTotalBitCost(t *testing.T) {
	m := newTestModel(t, 1, "ab", 1)
	m.UpdateString("abababab")

	// Contexts "a" -> {b:4}, "b" -> {a:3}.
	want := -math.Log2(5.0/6.0) - math.Log2(4.0/5.0)
	assert.InDelta(t, want, m.TotalBitCostString("aba", false), 1e-9)

	got, err := m.TotalBitCost(strings.NewReader("aba"), false)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
}

func TestModelTotalBitCostUpdate(t *testing.T) {
	m := newTestModel(t, 1, "ab", 1)

	// The first "a" -> "a" is costed before it is recorded, the second after.
	bits := m.TotalBitCostString("aaa", true)
	want := -math.Log2(1.0/2.0) - math.Log2(2.0/3.0)
	assert.InDelta(t, want, bits, 1e-9)
	assertEvents(t, m, "a", map[byte]uint32{'a': 2})

	before := m.TotalCount()
	m.TotalBitCostString("aaa", false)
	assert.Equal(t, before, m.TotalCount())
}

func TestModelReset(t *testing.T) {
	m := newTestModel(t, 2, "ab", 1)
	m.UpdateString("aabab")
	m.Reset()

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 2, m.Order())
	assert.Equal(t, float32(1), m.Smoothing())
}

func TestModelEventsIsCopy(t *testing.T) {
	m := newTestModel(t, 1, "ab", 1)
	m.UpdateString("ab")

	e, ok := m.Events("a")
	require.True(t, ok)
	e.Counts['b'] = 100
	assert.Equal(t, 1.0, m.Count("a", 'b'))
}

func BenchmarkModelTotalBitCost(b *testing.B) {
	m := newTestModel(b, 3, ASCIIAlpha.String(), 1)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 100)
	m.UpdateString(text)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BenchFloatResult = m.TotalBitCostString(text, false)
	}
}
