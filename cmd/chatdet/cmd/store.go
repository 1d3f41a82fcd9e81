package cmd

import (
	"fmt"

	"github.com/shabbyrobe/chatdet"
	"github.com/shabbyrobe/chatdet/internal/store"
	"github.com/spf13/cobra"
)

var storeFlags struct {
	approximate bool
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage a bbolt model store",
}

var storeListCmd = &cobra.Command{
	Use:   "list store.db",
	Short: "List the labels held in a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		models, err := s.LoadAll()
		if err != nil {
			return err
		}
		labels, err := s.Labels()
		if err != nil {
			return err
		}
		for _, label := range labels {
			m := models[label]
			kind := "exact"
			if _, ok := m.Approximate(); ok {
				kind = "approximate"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tk=%d\tcontexts=%d\n", label, kind, m.Order(), m.Len())
		}
		return nil
	},
}

var storeImportCmd = &cobra.Command{
	Use:   "import store.db model...",
	Short: "Copy model files into a store; label=path sets the label",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		models, err := chatdet.LoadModelFiles(modelSpecs(args[1:]), storeFlags.approximate)
		if err != nil {
			return err
		}
		for label, m := range models {
			if err := s.Put(label, m); err != nil {
				return err
			}
		}
		return nil
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export store.db dir",
	Short: "Write every model in a store to dir as <label>.bin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		models, err := s.LoadAll()
		if err != nil {
			return err
		}
		for label, m := range models {
			path, err := chatdet.ModelPath(args[1], label)
			if err != nil {
				return err
			}
			if err := m.Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	storeImportCmd.Flags().BoolVar(&storeFlags.approximate, "approximate", false, "model files were written by approximate models")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeImportCmd)
	storeCmd.AddCommand(storeExportCmd)
}
