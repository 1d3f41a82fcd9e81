package chatdet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleMatrix() *ConfusionMatrix {
	c := NewConfusionMatrix()
	for _, p := range [][2]string{
		{"en", "en"}, {"en", "en"}, {"en", "en"}, {"en", "fr"},
		{"fr", "fr"}, {"fr", "fr"}, {"fr", "en"},
		{"de", "fr"},
	} {
		c.Add(p[0], p[1])
	}
	return c
}

func TestConfusionCounts(t *testing.T) {
	c := sampleMatrix()

	assert.Equal(t, []string{"de", "en", "fr"}, c.Labels())
	assert.Equal(t, uint32(8), c.Count())
	assert.Equal(t, uint32(5), c.Hits())
	assert.Equal(t, uint32(3), c.Misses())
	assert.Equal(t, uint32(3), c.Cell("en", "en"))
	assert.Equal(t, uint32(1), c.Cell("de", "fr"))
	assert.Equal(t, uint32(0), c.Cell("de", "de"))

	assert.Equal(t, uint32(3), c.TruePositives("en"))
	assert.Equal(t, uint32(1), c.FalsePositives("en"))
	assert.Equal(t, uint32(1), c.FalseNegatives("en"))
	assert.Equal(t, uint32(2), c.TrueNegatives("en"))
	assert.Equal(t, uint32(2), c.FalsePositives("fr"))
}

func TestConfusionMetrics(t *testing.T) {
	c := sampleMatrix()

	assert.InDelta(t, 0.75, c.Precision("en"), 1e-9)
	assert.InDelta(t, 0.75, c.Recall("en"), 1e-9)
	assert.InDelta(t, 0.75, c.FScore("en", 1), 1e-9)
	assert.InDelta(t, 0.5, c.Precision("fr"), 1e-9)
	assert.InDelta(t, 2.0/3.0, c.Recall("fr"), 1e-9)
	assert.InDelta(t, 4.0/7.0, c.FScore("fr", 1), 1e-9)
	assert.InDelta(t, 2.0/3.0, c.LabelAccuracy("fr"), 1e-9)
	assert.InDelta(t, 5.0/8.0, c.Accuracy(), 1e-9)

	// F2 weights recall over precision.
	assert.InDelta(t, 5*0.5*(2.0/3.0)/(4*0.5+2.0/3.0), c.FScore("fr", 2), 1e-9)
}

func TestConfusionUndefined(t *testing.T) {
	c := sampleMatrix()

	// "de" is never predicted and never right.
	assert.True(t, math.IsNaN(c.Precision("de")))
	assert.Equal(t, 0.0, c.Recall("de"))
	assert.True(t, math.IsNaN(c.FScore("de", 1)))
	assert.True(t, math.IsNaN(c.LabelAccuracy("xx")))

	empty := NewConfusionMatrix()
	assert.True(t, math.IsNaN(empty.Accuracy()))
	assert.Empty(t, empty.Labels())
}
