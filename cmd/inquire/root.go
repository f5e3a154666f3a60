package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	inquire "github.com/Paranoid-AF/inquire"
)

type rootOptions struct {
	verbose    bool
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "inquire",
		Short: "Ask questions locally or through a remote peer",
		Long: `inquire asks an ordered list of questions.

Modes:
  inquire ask <file>   Ask the questions of a YAML or JSON question file
  inquire peer         Answer the questions of remote sessions`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log every message and state transition to stderr")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default "+inquire.ConfigPath()+")")

	cmd.AddCommand(newAskCmd(opts), newPeerCmd(opts), newVersionCmd())
	return cmd
}

// loadConfig reads the config file and logs its warnings.
func (o *rootOptions) loadConfig() (*inquire.Config, error) {
	var (
		cfg *inquire.Config
		err error
	)
	if o.configPath != "" {
		if _, statErr := os.Stat(o.configPath); statErr != nil {
			return nil, statErr
		}
		cfg, err = inquire.LoadConfigFile(o.configPath)
	} else {
		cfg, err = inquire.LoadConfig()
	}
	if err != nil {
		return nil, err
	}
	for _, w := range inquire.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}
	return cfg, nil
}
