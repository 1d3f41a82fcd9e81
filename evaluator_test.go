package chatdet

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedModels(t testing.TB) map[string]*Model {
	t.Helper()
	tr, err := NewTrainer(ModelConfig{Order: 1, Smoothing: 1, Alphabet: NewAlphabet("ab")})
	require.NoError(t, err)
	require.NoError(t, tr.AddString("a", strings.Repeat("a", 50)))
	require.NoError(t, tr.AddString("b", strings.Repeat("b", 50)))
	return tr.Models()
}

func TestEvaluatorPredict(t *testing.T) {
	ev, err := NewEvaluator(trainedModels(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ev.Labels())

	p := ev.Predict("aaaa", false)
	assert.Equal(t, "a", p.Label)
	assert.Less(t, p.Bits["a"], p.Bits["b"])

	p = ev.Predict("bbbbb", false)
	assert.Equal(t, "b", p.Label)

	assert.InDelta(t, ev.Model("a").TotalBitCostString("aaaa", false)+ev.Model("b").TotalBitCostString("bbbbb", false),
		ev.TotalBits(), 1e-9)
}

func TestEvaluatorTieBreak(t *testing.T) {
	models := make(map[string]*Model)
	for _, label := range []string{"zulu", "alpha", "mike"} {
		m := newTestModel(t, 1, "ab", 1)
		m.UpdateString("abab")
		models[label] = m
	}
	ev, err := NewEvaluator(models)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, "alpha", ev.Predict("abba", false).Label)
	}
}

func TestEvaluatorNaNNeverWins(t *testing.T) {
	zero := newTestModel(t, 1, "ab", 0)
	zero.UpdateString("aaaa")
	smooth := newTestModel(t, 1, "ab", 1)

	ev, err := NewEvaluator(map[string]*Model{"a": zero, "b": smooth})
	require.NoError(t, err)

	// Context "b" is unseen by the unsmoothed model.
	p := ev.Predict("bb", false)
	assert.Equal(t, "b", p.Label)
}

func TestEvaluatorUpdate(t *testing.T) {
	models := trainedModels(t)
	ev, err := NewEvaluator(models)
	require.NoError(t, err)

	before := models["a"].TotalCount()
	ev.Predict("aaa", true)
	assert.Equal(t, before+2, models["a"].TotalCount())
	assert.Equal(t, float64(49+2), models["b"].TotalCount())
}

func TestEvaluatorEvaluateRows(t *testing.T) {
	ev, err := NewEvaluator(trainedModels(t))
	require.NoError(t, err)

	rows := NewSliceRows([]map[string]string{
		{"text": "aaaa", "label": "a"},
		{"text": "bbbb", "label": "b"},
		{"text": "aaaaaaaa", "label": "b"},
	})
	require.NoError(t, ev.EvaluateRows(rows, "text", "label", false))

	m := ev.Matrix()
	assert.Equal(t, uint32(3), m.Count())
	assert.Equal(t, uint32(2), m.Hits())
	assert.Equal(t, uint32(1), m.Cell("b", "a"))
	assert.InDelta(t, ev.TotalBits()/3, ev.AverageBits(), 1e-9)

	var sb strings.Builder
	require.NoError(t, ev.Summary(&sb))
	out := sb.String()
	assert.Contains(t, out, "Confusion Matrix (Actual\\Predicted):\n\ta\tb\na\t1\t0\nb\t1\t1\n")
	assert.Contains(t, out, "Total: 3\nHits: 2\nMisses: 1\nAccuracy: 0.6667\n")
	assert.Contains(t, out, "a\t0.5000\t1.0000\t0.6667\t1.0000\n")
	assert.Contains(t, out, "b\t1.0000\t0.5000\t0.6667\t0.5000\n")
}

func TestEvaluatorMissingField(t *testing.T) {
	ev, err := NewEvaluator(trainedModels(t))
	require.NoError(t, err)

	rows := NewSliceRows([]map[string]string{
		{"text": "aaaa", "label": "a"},
		{"text": "bbbb"},
	})
	err = ev.EvaluateRows(rows, "text", "label", false)
	var merr *MalformedError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, int64(2), merr.Offset)
}

func TestEvaluatorSummaryUndefined(t *testing.T) {
	ev, err := NewEvaluator(trainedModels(t))
	require.NoError(t, err)
	ev.Evaluate("aaaa", "c", false)

	var sb strings.Builder
	require.NoError(t, ev.Summary(&sb))
	assert.Contains(t, sb.String(), "c\tn/a\t0.0000\tn/a\t0.0000\n")
}

func TestNewEvaluatorErrors(t *testing.T) {
	_, err := NewEvaluator(nil)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))

	_, err = NewEvaluator(map[string]*Model{"a": nil})
	require.True(t, errors.As(err, &cerr))
}

func TestLoadEvaluator(t *testing.T) {
	tr, err := NewTrainer(ModelConfig{Order: 1, Smoothing: 1, Alphabet: NewAlphabet("ab")})
	require.NoError(t, err)
	require.NoError(t, tr.AddString("a", "aaaaaa"))
	require.NoError(t, tr.AddString("b", "bbbbbb"))

	paths, err := tr.Save(t.TempDir())
	require.NoError(t, err)

	ev, err := LoadEvaluator(paths, false)
	require.NoError(t, err)
	assert.Equal(t, "b", ev.Predict("bbb", false).Label)

	files := []string{paths["a"], paths["b"]}
	ev, err = LoadEvaluatorFiles(files, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ev.Labels())

	_, err = LoadEvaluatorFiles([]string{paths["a"], paths["a"]}, false)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))

	_, err = LoadEvaluator(map[string]string{"x": filepath.Join(t.TempDir(), "nope.bin")}, false)
	assert.Error(t, err)
}

func BenchmarkEvaluatorPredict(b *testing.B) {
	ev, err := NewEvaluator(trainedModels(b))
	if err != nil {
		b.Fatal(err)
	}
	text := strings.Repeat("ab", 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ev.Predict(text, false)
	}
}

func TestEvaluatorEmptyLabelCanWin(t *testing.T) {
	models := trainedModels(t)
	ev, err := NewEvaluator(map[string]*Model{"": models["a"], "x": models["b"]})
	require.NoError(t, err)

	p := ev.Predict("aaaaaa", false)
	assert.Equal(t, "", p.Label)
	assert.Less(t, p.Bits[""], p.Bits["x"])

	p = ev.Predict("bbbbbb", false)
	assert.Equal(t, "x", p.Label)
}

func TestLoadModelFiles(t *testing.T) {
	tr, err := NewTrainer(ModelConfig{Order: 1, Smoothing: 1, Alphabet: NewAlphabet("ab")})
	require.NoError(t, err)
	require.NoError(t, tr.AddString("a", "aaaa"))
	require.NoError(t, tr.AddString("b", "bbbb"))
	paths, err := tr.Save(t.TempDir())
	require.NoError(t, err)

	models, err := LoadModelFiles([]ModelFile{
		{Label: "first", Path: paths["a"]},
		{Path: paths["b"], UseID: true},
		{Label: "", Path: paths["a"]},
	}, false)
	require.NoError(t, err)
	assert.Len(t, models, 3)
	assert.Equal(t, "a", models["first"].ID())
	assert.Equal(t, "b", models["b"].ID())
	assert.Equal(t, "a", models[""].ID())

	_, err = LoadModelFiles([]ModelFile{
		{Label: "a", Path: paths["b"]},
		{Path: paths["a"], UseID: true},
	}, false)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, "models", cerr.Field)
}
