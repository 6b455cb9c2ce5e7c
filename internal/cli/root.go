package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/polybot/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	EnvFile    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the polybot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "polybot",
		Short: "polybot - image effects from photo captions",
		Long: `A Telegram bot that applies the effects named in a photo caption.

Send a photo captioned "blur 8, rotate" and the bot replies with the
processed image. serve runs the bot behind a webhook; the other commands
work offline.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file (default .env if present)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewGrammarCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig reads configuration with the given flag bindings and installs
// the configured logger as the slog default. --verbose forces debug level.
func (o *RootOptions) loadConfig(cmd *cobra.Command, flags map[string]string) (*config.Config, error) {
	bound := make(map[string]*pflag.Flag, len(flags))
	for key, name := range flags {
		bound[key] = cmd.Flags().Lookup(name)
	}
	cfg, err := config.Load(config.Options{File: o.ConfigFile, EnvFile: o.EnvFile, Flags: bound})
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	slog.SetDefault(cfg.Logger(cmd.ErrOrStderr()))
	return cfg, nil
}
