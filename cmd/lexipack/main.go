package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile   string
	debugMode    bool
	outputFormat = FormatTable
)

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lexipack",
		Short:         "Offline bilingual dictionary lookups and language pack management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug mode")
	flags.Var(&outputFormat, "format", fmt.Sprintf("Output format. Possible values are %v", allFormats))

	rootCmd.AddCommand(
		newLookupCommand(),
		newSuggestCommand(),
		newTranslateCommand(),
		newPacksCommand(),
		newProfileCommand(),
		newRegistryCommand(),
		newStateCommand(),
	)
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err)
		os.Exit(1)
	}
}
