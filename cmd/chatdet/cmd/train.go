package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shabbyrobe/chatdet"
	"github.com/shabbyrobe/chatdet/internal/store"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var trainFlags struct {
	order       int
	smoothing   float32
	alphabet    string
	ignoreCase  bool
	approximate bool
	a           uint32
	b           uint32
	scaling     uint8
	seed        int64
	textColumn  string
	labelColumn string
	outDir      string
	storePath   string
}

var trainCmd = &cobra.Command{
	Use:   "train [flags] input...",
	Short: "Train one model per label from CSV or JSONL input",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.IntVarP(&trainFlags.order, "order", "k", 0, "context order (default from config: 5)")
	f.Float32VarP(&trainFlags.smoothing, "smoothing", "s", 0, "additive smoothing factor (default from config: 1)")
	f.StringVarP(&trainFlags.alphabet, "alphabet", "a", "", "accepted symbols (default: letters and digits)")
	f.BoolVarP(&trainFlags.ignoreCase, "ignore-case", "i", false, "fold input to upper case")
	f.BoolVar(&trainFlags.approximate, "approximate", false, "use approximate counting")
	f.Uint32Var(&trainFlags.a, "count-a", 0, "approximate counting scale")
	f.Uint32Var(&trainFlags.b, "count-b", 0, "approximate counting exact threshold")
	f.Uint8Var(&trainFlags.scaling, "scaling", 0, "overflow scaling factor")
	f.Int64Var(&trainFlags.seed, "seed", 0, "random seed for approximate counting")
	f.StringVar(&trainFlags.textColumn, "text-column", "", "text column name")
	f.StringVar(&trainFlags.labelColumn, "label-column", "", "label column name")
	f.StringVarP(&trainFlags.outDir, "out", "o", ".", "directory for <label>.bin files")
	f.StringVar(&trainFlags.storePath, "store", "", "write models to a bbolt store instead of files")
}

// applyTrainFlags overrides configuration values with flags given on the
// command line.
func applyTrainFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("order") {
		cfg.Order = trainFlags.order
	}
	if f.Changed("smoothing") {
		cfg.Smoothing = trainFlags.smoothing
	}
	if f.Changed("alphabet") {
		cfg.Alphabet = trainFlags.alphabet
	}
	if f.Changed("ignore-case") {
		cfg.IgnoreCase = trainFlags.ignoreCase
	}
	if f.Changed("approximate") {
		cfg.Approximate.Enabled = trainFlags.approximate
	}
	if f.Changed("count-a") {
		cfg.Approximate.A = trainFlags.a
	}
	if f.Changed("count-b") {
		cfg.Approximate.B = trainFlags.b
	}
	if f.Changed("scaling") {
		cfg.Approximate.ScalingFactor = trainFlags.scaling
	}
	if f.Changed("seed") {
		cfg.Approximate.Seed = trainFlags.seed
	}
	if f.Changed("text-column") {
		cfg.Columns.Text = trainFlags.textColumn
	}
	if f.Changed("label-column") {
		cfg.Columns.Label = trainFlags.labelColumn
	}
	cfg.Sanitize()
	return cfg.Validate()
}

func newTrainer() (*chatdet.Trainer, error) {
	opts := []chatdet.TrainerOption{chatdet.TrainerLogger(log.StandardLogger())}
	if ap := cfg.Approximate; ap.Enabled {
		seed := ap.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		opts = append(opts,
			chatdet.TrainerApproximate(ap.A, ap.B, ap.ScalingFactor),
			chatdet.TrainerRand(rand.New(rand.NewSource(seed))))
	}
	return chatdet.NewTrainer(cfg.ModelConfig(), opts...)
}

func runTrain(cmd *cobra.Command, args []string) error {
	if err := applyTrainFlags(cmd); err != nil {
		return err
	}

	trainer, err := newTrainer()
	if err != nil {
		return err
	}

	start := time.Now()
	for _, path := range args {
		rows, closer, err := openRows(path)
		if err != nil {
			return err
		}
		err = trainer.AddRows(rows, cfg.Columns.Text, cfg.Columns.Label)
		closer.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.WithField("input", path).Debug("trained")
	}
	trained := time.Now()
	fmt.Fprintf(cmd.OutOrStdout(), "Training time: %s\n", trained.Sub(start).Round(time.Millisecond))

	if err := saveTrained(trainer); err != nil {
		return err
	}
	saved := time.Now()
	fmt.Fprintf(cmd.OutOrStdout(), "Saving time: %s\n", saved.Sub(trained).Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "Total time: %s\n", saved.Sub(start).Round(time.Millisecond))
	return nil
}

func saveTrained(trainer *chatdet.Trainer) error {
	if trainFlags.storePath == "" {
		paths, err := trainer.Save(trainFlags.outDir)
		if err != nil {
			return err
		}
		for _, label := range trainer.Labels() {
			log.WithFields(log.Fields{"label": label, "path": paths[label]}).Debug("model written")
		}
		return nil
	}

	s, err := store.Open(trainFlags.storePath)
	if err != nil {
		return err
	}
	defer s.Close()

	models := trainer.Models()
	for _, label := range trainer.Labels() {
		if err := s.Put(label, models[label]); err != nil {
			return err
		}
	}
	return nil
}
