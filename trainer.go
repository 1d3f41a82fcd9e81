package chatdet

import (
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Trainer builds one Model per label, all sharing the same configuration.
// A label's model is created the first time the label is seen.
//
// Trainer is not safe for concurrent use.
type Trainer struct {
	cfg    ModelConfig
	approx *approxParams
	rand   *rand.Rand
	logger log.FieldLogger
	models map[string]*Model
}

type TrainerOption func(t *Trainer)

// TrainerApproximate makes the trainer build approximate models.
func TrainerApproximate(a, b uint32, scaling uint8) TrainerOption {
	return func(t *Trainer) {
		t.approx = &approxParams{a: a, b: b, scaling: scaling}
	}
}

// TrainerRand sets the random source shared by every approximate model the
// trainer builds.
func TrainerRand(src *rand.Rand) TrainerOption {
	return func(t *Trainer) { t.rand = src }
}

func TrainerLogger(l log.FieldLogger) TrainerOption {
	return func(t *Trainer) { t.logger = l }
}

// NewTrainer validates cfg up front so a bad configuration fails before any
// input is read. cfg.ID is ignored; each model takes its label as ID.
func NewTrainer(cfg ModelConfig, opts ...TrainerOption) (*Trainer, error) {
	t := &Trainer{
		cfg:    cfg,
		models: make(map[string]*Model),
	}
	for _, o := range opts {
		o(t)
	}
	if t.logger == nil {
		t.logger = log.StandardLogger()
	}

	if _, err := t.newModel(""); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trainer) newModel(label string) (*Model, error) {
	cfg := t.cfg
	cfg.ID = label

	opts := []ModelOption{ModelLogger(t.logger.WithField("label", label))}
	if t.approx != nil {
		opts = append(opts,
			ModelApproximate(t.approx.a, t.approx.b, t.approx.scaling),
			ModelRand(t.rand))
	}
	return NewModel(cfg, opts...)
}

func (t *Trainer) model(label string) (*Model, error) {
	if m, ok := t.models[label]; ok {
		return m, nil
	}
	m, err := t.newModel(label)
	if err != nil {
		return nil, err
	}
	t.models[label] = m
	t.logger.WithField("label", label).Debug("created model")
	return m, nil
}

// Add trains label's model on the contents of rdr.
func (t *Trainer) Add(label string, rdr io.Reader) error {
	m, err := t.model(label)
	if err != nil {
		return err
	}
	return m.Update(rdr)
}

func (t *Trainer) AddString(label, text string) error {
	m, err := t.model(label)
	if err != nil {
		return err
	}
	m.UpdateString(text)
	return nil
}

// AddRows trains on every row of src, reading the text and label from the
// named fields.
func (t *Trainer) AddRows(src RowSource, textField, labelField string) error {
	return eachRow(src, textField, labelField, t.AddString)
}

// Models returns the trained models keyed by label. The map is owned by the
// trainer.
func (t *Trainer) Models() map[string]*Model {
	return t.models
}

func (t *Trainer) Labels() []string {
	out := make([]string, 0, len(t.models))
	for label := range t.models {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Save writes every model to dir as "<label>.bin" and returns the path of
// each file by label.
func (t *Trainer) Save(dir string) (map[string]string, error) {
	paths := make(map[string]string, len(t.models))
	for label := range t.models {
		path, err := ModelPath(dir, label)
		if err != nil {
			return nil, err
		}
		paths[label] = path
	}
	if err := t.SaveAs(paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// ModelPath returns the "<label>.bin" file for label inside dir. Labels come
// from input data, so a label containing a path separator is a ConfigError.
func ModelPath(dir, label string) (string, error) {
	if strings.ContainsAny(label, `/\`) {
		return "", &ConfigError{Field: "label", Reason: fmt.Sprintf("%q contains a path separator", label)}
	}
	return filepath.Join(dir, label+".bin"), nil
}

// SaveAs writes each model to the path given for its label. Every trained
// label must have a path.
func (t *Trainer) SaveAs(paths map[string]string) error {
	for _, label := range t.Labels() {
		path, ok := paths[label]
		if !ok {
			return fmt.Errorf("chatdet: no output path for label %q", label)
		}
		if err := t.models[label].Save(path); err != nil {
			return err
		}
		t.logger.WithFields(log.Fields{"label": label, "path": path}).Info("saved model")
	}
	return nil
}
