package chatdet

import (
	"math"
	"sort"
)

// ConfusionMatrix counts (actual label, predicted label) pairs.
//
// Every ratio returns NaN when its denominator is zero; callers reporting
// aggregates should skip those labels.
type ConfusionMatrix struct {
	cells map[string]map[string]uint32
}

func NewConfusionMatrix() *ConfusionMatrix {
	return &ConfusionMatrix{cells: make(map[string]map[string]uint32)}
}

func (c *ConfusionMatrix) Add(actual, predicted string) {
	row := c.cells[actual]
	if row == nil {
		row = make(map[string]uint32)
		c.cells[actual] = row
	}
	row[predicted]++
}

// Cell returns how often actual was predicted as predicted.
func (c *ConfusionMatrix) Cell(actual, predicted string) uint32 {
	return c.cells[actual][predicted]
}

// Labels returns every label that appears as an actual or predicted label,
// sorted.
func (c *ConfusionMatrix) Labels() []string {
	seen := make(map[string]struct{})
	for actual, row := range c.cells {
		seen[actual] = struct{}{}
		for predicted := range row {
			seen[predicted] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of evaluated samples.
func (c *ConfusionMatrix) Count() uint32 {
	var n uint32
	for actual := range c.cells {
		n += c.LabelCount(actual)
	}
	return n
}

// LabelCount returns the number of samples whose actual label is label.
func (c *ConfusionMatrix) LabelCount(label string) uint32 {
	var n uint32
	for _, v := range c.cells[label] {
		n += v
	}
	return n
}

func (c *ConfusionMatrix) Hits() uint32 {
	var n uint32
	for actual, row := range c.cells {
		n += row[actual]
	}
	return n
}

func (c *ConfusionMatrix) Misses() uint32 {
	return c.Count() - c.Hits()
}

func (c *ConfusionMatrix) TruePositives(label string) uint32 {
	return c.cells[label][label]
}

// FalsePositives counts samples of other labels predicted as label.
func (c *ConfusionMatrix) FalsePositives(label string) uint32 {
	var n uint32
	for actual, row := range c.cells {
		if actual != label {
			n += row[label]
		}
	}
	return n
}

// TrueNegatives counts samples of other labels that were classified
// correctly.
func (c *ConfusionMatrix) TrueNegatives(label string) uint32 {
	var n uint32
	for actual, row := range c.cells {
		if actual != label {
			n += row[actual]
		}
	}
	return n
}

// FalseNegatives counts samples of label predicted as something else.
func (c *ConfusionMatrix) FalseNegatives(label string) uint32 {
	return c.LabelCount(label) - c.TruePositives(label)
}

func (c *ConfusionMatrix) Precision(label string) float64 {
	tp := c.TruePositives(label)
	return ratio(tp, tp+c.FalsePositives(label))
}

func (c *ConfusionMatrix) Recall(label string) float64 {
	tp := c.TruePositives(label)
	return ratio(tp, tp+c.FalseNegatives(label))
}

// FScore returns the F-beta score of label; beta 1 gives F1.
func (c *ConfusionMatrix) FScore(label string, beta float64) float64 {
	p, r := c.Precision(label), c.Recall(label)
	b2 := beta * beta
	d := b2*p + r
	if d == 0 {
		return math.NaN()
	}
	return (1 + b2) * p * r / d
}

// LabelAccuracy is the share of label's samples that were classified as
// label.
func (c *ConfusionMatrix) LabelAccuracy(label string) float64 {
	return ratio(c.TruePositives(label), c.LabelCount(label))
}

func (c *ConfusionMatrix) Accuracy() float64 {
	return ratio(c.Hits(), c.Count())
}

func ratio(n, d uint32) float64 {
	if d == 0 {
		return math.NaN()
	}
	return float64(n) / float64(d)
}
