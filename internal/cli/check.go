package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/polybot/internal/caption"
	"github.com/roach88/polybot/internal/grammar"
	"github.com/roach88/polybot/internal/replies"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Album   bool   // caption belongs to an album
	Grammar string // external grammar file
}

// CommandSummary describes one accepted command.
type CommandSummary struct {
	Effect     string   `json:"effect"`
	Args       []string `json:"args,omitempty"`
	MultiImage bool     `json:"multi_image,omitempty"`
}

// CheckResult is the outcome of checking one caption.
type CheckResult struct {
	Caption       string           `json:"caption"`
	Normalized    string           `json:"normalized"`
	OK            bool             `json:"ok"`
	Stage         string           `json:"stage"`
	Commands      []CommandSummary `json:"commands,omitempty"`
	AwaitsPartner bool             `json:"awaits_partner,omitempty"`

	// Message is the reply the bot would send, as plain text.
	Message string `json:"message,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <caption>",
		Short: "Parse a caption and report every problem",
		Long: `Parse a caption the way the bot does and run the error sweeps.

Accepted captions list the commands with their validated arguments.
Rejected captions print the reply the bot would send.

Exit codes:
  0 - Caption accepted
  1 - Caption rejected
  2 - Command error (grammar file missing, etc.)

Examples:
  polybot check "blur 8, rotate 180"
  polybot check "concat vertical" --album
  polybot check "blur 40" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Album, "album", false, "treat the photo as part of an album")
	cmd.Flags().StringVar(&opts.Grammar, "grammar", "", "CUE grammar file (default: built-in)")

	return cmd
}

func runCheck(opts *CheckOptions, text string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	table, err := loadGrammar(opts.Grammar)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGrammar, err.Error(), nil)
	}
	f.VerboseLog("grammar %s (%d effects)", table.Hash(), len(table.Names()))

	result := CheckCaption(table, replies.Default(), text, opts.Album)

	if !result.OK {
		if f.json() {
			return f.Fail(ExitFailure, ErrCodeCaption, "caption rejected", result)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✗ caption rejected (%s)\n", result.Stage)
		for _, line := range strings.Split(result.Message, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		return NewExitError(ExitFailure, "caption rejected")
	}

	if f.json() {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ caption accepted (%d commands)\n", len(result.Commands))
	for _, c := range result.Commands {
		line := c.Effect
		if len(c.Args) > 0 {
			line += " " + strings.Join(c.Args, " ")
		}
		if c.MultiImage {
			line += "  [multi-image]"
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
	if result.AwaitsPartner {
		fmt.Fprintln(w, "  waits for the second photo of the album")
	}
	return nil
}

// CheckCaption parses and checks text against table.
func CheckCaption(table *grammar.Table, store *replies.Store, text string, album bool) CheckResult {
	v := caption.Check(caption.NewParser(table).Parse(text), album)

	result := CheckResult{
		Caption:    text,
		Normalized: caption.Normalize(text),
		OK:         v.OK(),
		Stage:      v.Stage.String(),
	}
	if !v.OK() {
		result.Message = replies.Plain(store.Verdict(v))
		return result
	}

	result.AwaitsPartner = v.AwaitsPartner()
	for _, c := range v.Commands {
		s := CommandSummary{Effect: c.Effect, MultiImage: c.MultiImage}
		for _, a := range c.Args {
			s.Args = append(s.Args, a.Value.String())
		}
		result.Commands = append(result.Commands, s)
	}
	return result
}

func loadGrammar(path string) (*grammar.Table, error) {
	if path == "" {
		return grammar.Default(), nil
	}
	return grammar.LoadFile(path)
}
