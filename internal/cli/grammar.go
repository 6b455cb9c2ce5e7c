package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/polybot/internal/grammar"
)

// GrammarOptions holds flags for the grammar command.
type GrammarOptions struct {
	*RootOptions
	Source bool // print the CUE source instead of the table
}

// GrammarResult describes a loaded grammar.
type GrammarResult struct {
	Hash    string              `json:"hash"`
	Effects []grammar.EffectDef `json:"effects"`
}

// NewGrammarCommand creates the grammar command.
func NewGrammarCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GrammarOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grammar [file.cue]",
		Short: "Print or validate the command grammar",
		Long: `Print the built-in command grammar, or compile and validate a CUE
grammar file. Validation reports every problem, not just the first.

Examples:
  polybot grammar
  polybot grammar --source > grammar.cue
  polybot grammar ./my-grammar.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runGrammar(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Source, "source", false, "print the built-in CUE source")

	return cmd
}

func runGrammar(opts *GrammarOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if opts.Source {
		if path != "" {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "--source prints the built-in grammar and takes no file", nil)
		}
		_, err := cmd.OutOrStdout().Write(grammar.Source())
		return err
	}

	table, err := loadGrammar(path)
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	if err != nil {
		return f.FailList(ExitFailure, ErrCodeGrammar, "invalid grammar", grammarProblems(err))
	}

	result := GrammarResult{Hash: table.Hash(), Effects: table.Defs()}
	if f.json() {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, d := range result.Effects {
		line := fmt.Sprintf("%-14s %d-%d args", strings.ReplaceAll(d.Name, "_", "-"), d.MinArgs, d.MaxArgs)
		if d.MultiImage {
			line += "  multi-image"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "hash %s\n", result.Hash)
	return nil
}

// grammarProblems flattens a joined error into one message per problem.
func grammarProblems(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
