package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var evaluateFlags struct {
	models      []string
	storePath   string
	approximate bool
	update      bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate -m model -m model [flags] input...",
	Short: "Classify labelled CSV or JSONL input and report metrics",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringArrayVarP(&evaluateFlags.models, "model", "m", nil, "model file, optionally as label=path (repeatable)")
	f.StringVar(&evaluateFlags.storePath, "store", "", "load every model from a bbolt store")
	f.BoolVar(&evaluateFlags.approximate, "approximate", false, "model files were written by approximate models")
	f.BoolVar(&evaluateFlags.update, "update", false, "let models learn from the evaluated text")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evaluateFlags.storePath == "" && len(evaluateFlags.models) < 2 {
		return fmt.Errorf("at least two model files must be provided")
	}

	ev, err := loadEvaluator(evaluateFlags.models, evaluateFlags.storePath, evaluateFlags.approximate)
	if err != nil {
		return err
	}

	start := time.Now()
	for _, path := range args {
		rows, closer, err := openRows(path)
		if err != nil {
			return err
		}
		err = ev.EvaluateRows(rows, cfg.Columns.Text, cfg.Columns.Label, evaluateFlags.update)
		closer.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.WithField("input", path).Debug("evaluated")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluation time: %s\n\n", time.Since(start).Round(time.Millisecond))
	return ev.Summary(out)
}
