package cmd

import (
	"github.com/shabbyrobe/chatdet/internal/config"
	"github.com/shabbyrobe/chatdet/internal/logging"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugFlag  bool
	logFile    string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "chatdet",
	Short:         "Finite-context text classifier",
	Long:          "Train one character-level model per label and classify text by minimum description length.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfigOptional(configPath, !cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("debug") {
			cfg.Debug = debugFlag
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}

		logging.SetupBaseLogger()
		logging.SetDebug(cfg.Debug)
		if err := logging.ConfigureLogOutput(cfg.LogFile); err != nil {
			return err
		}
		log.WithField("config", configPath).Debug("configuration loaded")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "chatdet.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotating file")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(storeCmd)
}
