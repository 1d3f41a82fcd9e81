package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var predictFlags struct {
	models      []string
	storePath   string
	approximate bool
	verbose     bool
}

var predictCmd = &cobra.Command{
	Use:   "predict -m model -m model [flags] file...",
	Short: "Print the most likely label of each file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringArrayVarP(&predictFlags.models, "model", "m", nil, "model file, optionally as label=path (repeatable)")
	f.StringVar(&predictFlags.storePath, "store", "", "load every model from a bbolt store")
	f.BoolVar(&predictFlags.approximate, "approximate", false, "model files were written by approximate models")
	f.BoolVarP(&predictFlags.verbose, "verbose", "v", false, "also print the bit cost under every model")
}

func runPredict(cmd *cobra.Command, args []string) error {
	if predictFlags.storePath == "" && len(predictFlags.models) < 2 {
		return fmt.Errorf("at least two model files must be provided")
	}

	out := cmd.OutOrStdout()

	startLoading := time.Now()
	ev, err := loadEvaluator(predictFlags.models, predictFlags.storePath, predictFlags.approximate)
	if err != nil {
		return err
	}
	startPredicting := time.Now()
	fmt.Fprintf(out, "Loading time: %.6fs\n\n", startPredicting.Sub(startLoading).Seconds())

	fmt.Fprintln(out, "Prediction results:")
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		p, err := ev.PredictReader(f, false)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Fprintf(out, "%s: %s\n", path, p.Label)
		if predictFlags.verbose {
			for _, label := range ev.Labels() {
				fmt.Fprintf(out, "\t%s\t%.2f bits\n", label, p.Bits[label])
			}
		}
	}

	elapsed := time.Since(startPredicting)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Prediction time: %.6fs\n", elapsed.Seconds())
	fmt.Fprintf(out, "Average prediction time: %.6fs\n", elapsed.Seconds()/float64(len(args)))
	fmt.Fprintf(out, "Total time: %.6fs\n", time.Since(startLoading).Seconds())
	return nil
}
