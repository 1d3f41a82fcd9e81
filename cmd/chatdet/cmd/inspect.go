package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/shabbyrobe/chatdet"
	"github.com/spf13/cobra"
)

var inspectFlags struct {
	approximate bool
	top         int
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] model",
	Short: "Show the header and context statistics of a model file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := chatdet.Load(args[0], inspectFlags.approximate)
		if err != nil {
			return err
		}
		return describeModel(cmd.OutOrStdout(), m, inspectFlags.top)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectFlags.approximate, "approximate", false, "file was written by an approximate model")
	inspectCmd.Flags().IntVarP(&inspectFlags.top, "top", "n", 10, "number of busiest contexts to list")
}

func describeModel(w io.Writer, m *chatdet.Model, top int) error {
	alpha := m.Alphabet()
	fmt.Fprintf(w, "ID: %s\n", m.ID())
	fmt.Fprintf(w, "Order: %d\n", m.Order())
	fmt.Fprintf(w, "Smoothing: %g\n", m.Smoothing())
	fmt.Fprintf(w, "Ignore case: %t\n", m.IgnoreCase())
	fmt.Fprintf(w, "Alphabet (%d): %q\n", alpha.Len(), alpha.String())
	if c, ok := m.Approximate(); ok {
		fmt.Fprintf(w, "Approximate: a=%d b=%d scaling=%d\n", c.A, c.B, c.Scaling)
	}
	fmt.Fprintf(w, "Contexts: %d\n", m.Len())
	fmt.Fprintf(w, "Observations: %.0f\n", m.TotalCount())

	contexts := m.Contexts()
	sort.SliceStable(contexts, func(i, j int) bool {
		return m.ContextCount(contexts[i]) > m.ContextCount(contexts[j])
	})
	if top > len(contexts) {
		top = len(contexts)
	}
	if top > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Context\tCount\tEvents")
	}
	for _, ctx := range contexts[:top] {
		e, _ := m.Events(ctx)
		fmt.Fprintf(w, "%q\t%.0f\t%d\n", ctx, m.ContextCount(ctx), len(e.Counts))
	}
	return nil
}
