package chatdet

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Prediction is the outcome of scoring one text against every model.
type Prediction struct {
	Label string

	// Bits holds the total bit cost of the text under each label's model.
	Bits map[string]float64
}

// Evaluator classifies text by picking the model that codes it in the
// fewest bits, and keeps a confusion matrix of the results.
//
// Evaluator is not safe for concurrent use.
type Evaluator struct {
	models map[string]*Model
	labels []string
	matrix *ConfusionMatrix
	bits   float64
	logger log.FieldLogger
}

type EvaluatorOption func(e *Evaluator)

func EvaluatorLogger(l log.FieldLogger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator builds an evaluator over models, keyed by label.
func NewEvaluator(models map[string]*Model, opts ...EvaluatorOption) (*Evaluator, error) {
	if len(models) == 0 {
		return nil, &ConfigError{Field: "models", Reason: "at least one model is required"}
	}

	e := &Evaluator{
		models: make(map[string]*Model, len(models)),
		labels: make([]string, 0, len(models)),
		matrix: NewConfusionMatrix(),
	}
	for label, m := range models {
		if m == nil {
			return nil, &ConfigError{Field: "models", Reason: fmt.Sprintf("model for label %q is nil", label)}
		}
		e.models[label] = m
		e.labels = append(e.labels, label)
	}
	sort.Strings(e.labels)

	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = log.StandardLogger()
	}
	return e, nil
}

// ModelFile names a model file and the label to load it under.
type ModelFile struct {
	Label string
	Path  string

	// UseID loads the model under the ID stored in the file instead of Label.
	UseID bool
}

// LoadModelFiles loads every file in files. Two files resolving to the same
// label are a ConfigError.
func LoadModelFiles(files []ModelFile, approximate bool) (map[string]*Model, error) {
	models := make(map[string]*Model, len(files))
	for _, f := range files {
		m, err := Load(f.Path, approximate)
		if err != nil {
			return nil, err
		}
		label := f.Label
		if f.UseID {
			label = m.ID()
		}
		if _, dup := models[label]; dup {
			return nil, &ConfigError{Field: "models", Reason: fmt.Sprintf("duplicate label %q in %s", label, f.Path)}
		}
		models[label] = m
	}
	return models, nil
}

// LoadEvaluator loads the model file given for each label.
func LoadEvaluator(paths map[string]string, approximate bool, opts ...EvaluatorOption) (*Evaluator, error) {
	files := make([]ModelFile, 0, len(paths))
	for label, path := range paths {
		files = append(files, ModelFile{Label: label, Path: path})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Label < files[j].Label })
	return LoadEvaluatorModelFiles(files, approximate, opts...)
}

// LoadEvaluatorFiles loads each model file under the ID stored in it.
func LoadEvaluatorFiles(paths []string, approximate bool, opts ...EvaluatorOption) (*Evaluator, error) {
	files := make([]ModelFile, len(paths))
	for i, path := range paths {
		files[i] = ModelFile{Path: path, UseID: true}
	}
	return LoadEvaluatorModelFiles(files, approximate, opts...)
}

func LoadEvaluatorModelFiles(files []ModelFile, approximate bool, opts ...EvaluatorOption) (*Evaluator, error) {
	models, err := LoadModelFiles(files, approximate)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(models, opts...)
}

// Labels returns the model labels in sorted order.
func (e *Evaluator) Labels() []string { return e.labels }

func (e *Evaluator) Model(label string) *Model { return e.models[label] }

// Matrix returns the confusion matrix. It must only be read.
func (e *Evaluator) Matrix() *ConfusionMatrix { return e.matrix }

// TotalBits is the sum of the winning bit costs of every prediction made.
func (e *Evaluator) TotalBits() float64 { return e.bits }

// AverageBits is TotalBits divided by the number of evaluated samples.
func (e *Evaluator) AverageBits() float64 {
	n := e.matrix.Count()
	if n == 0 {
		return math.NaN()
	}
	return e.bits / float64(n)
}

// Predict scores text under every model and returns the label with the
// lowest total bit cost. Ties go to the lexicographically smallest label;
// NaN costs never win. If update is set every model also learns from text.
//
// Without update the models are scored concurrently.
func (e *Evaluator) Predict(text string, update bool) Prediction {
	costs := make([]float64, len(e.labels))
	if update || len(e.labels) == 1 {
		for i, label := range e.labels {
			costs[i] = e.models[label].TotalBitCostString(text, update)
		}
	} else {
		var wg sync.WaitGroup
		for i, label := range e.labels {
			wg.Add(1)
			go func(i int, m *Model) {
				defer wg.Done()
				costs[i] = m.TotalBitCostString(text, false)
			}(i, e.models[label])
		}
		wg.Wait()
	}

	p := Prediction{Bits: make(map[string]float64, len(e.labels))}
	best := math.NaN()
	found := false
	for i, label := range e.labels {
		c := costs[i]
		p.Bits[label] = c
		if math.IsNaN(c) {
			continue
		}
		if !found || c < best {
			p.Label, best, found = label, c, true
		}
	}

	if !found {
		p.Label = e.labels[0]
		e.logger.WithField("label", p.Label).Warn("no model produced a finite cost, using first label")
	} else if !math.IsInf(best, 0) {
		e.bits += best
	}
	return p
}

// PredictReader buffers rdr and predicts on its contents, so that every
// model sees the same bytes.
func (e *Evaluator) PredictReader(rdr io.Reader, update bool) (Prediction, error) {
	data, err := io.ReadAll(rdr)
	if err != nil {
		return Prediction{}, err
	}
	return e.Predict(string(data), update), nil
}

// Evaluate predicts text and records the result against actual.
func (e *Evaluator) Evaluate(text, actual string, update bool) Prediction {
	p := e.Predict(text, update)
	e.matrix.Add(actual, p.Label)
	return p
}

// EvaluateRows evaluates every row of src.
func (e *Evaluator) EvaluateRows(src RowSource, textField, labelField string, update bool) error {
	return eachRow(src, textField, labelField, func(text, label string) error {
		e.Evaluate(text, label, update)
		return nil
	})
}

// Summary writes the confusion matrix and metrics to w, ordered by label.
func (e *Evaluator) Summary(w io.Writer) error {
	var sb strings.Builder
	labels := e.matrix.Labels()

	sb.WriteString("Confusion Matrix (Actual\\Predicted):\n")
	for _, l := range labels {
		sb.WriteString("\t" + l)
	}
	sb.WriteString("\n")
	for _, actual := range labels {
		sb.WriteString(actual)
		for _, predicted := range labels {
			fmt.Fprintf(&sb, "\t%d", e.matrix.Cell(actual, predicted))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Total: %d\n", e.matrix.Count())
	fmt.Fprintf(&sb, "Hits: %d\n", e.matrix.Hits())
	fmt.Fprintf(&sb, "Misses: %d\n", e.matrix.Misses())
	fmt.Fprintf(&sb, "Accuracy: %s\n", formatMetric(e.matrix.Accuracy()))
	sb.WriteString("\n")

	sb.WriteString("Label\tPrecision\tRecall\tF1\tAccuracy\n")
	for _, l := range labels {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\t%s\n", l,
			formatMetric(e.matrix.Precision(l)),
			formatMetric(e.matrix.Recall(l)),
			formatMetric(e.matrix.FScore(l, 1)),
			formatMetric(e.matrix.LabelAccuracy(l)))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Total bits: %.2f\n", e.bits)
	fmt.Fprintf(&sb, "Average bits: %s\n", formatMetric(e.AverageBits()))

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
