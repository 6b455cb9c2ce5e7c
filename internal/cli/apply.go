package cli

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/polybot/internal/caption"
	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/replies"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Output  string
	Seed    uint64
	Quality int
	Grammar string
}

// ApplyResult describes a written image.
type ApplyResult struct {
	Output   string   `json:"output"`
	Format   string   `json:"format"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Commands []string `json:"commands"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <caption> <image> [second-image]",
		Short: "Apply a caption to local images",
		Long: `Apply the effects named in a caption to a local image, without Telegram.

A second image is treated as the next photo of an album and feeds the
multi-image effect (concat, multiply). The output format follows the
extension of --output: .png, .bmp, anything else is JPEG.

Examples:
  polybot apply "grayscale, rotate" photo.jpg -o out.png
  polybot apply "concat vertical" top.jpg bottom.jpg -o joined.jpg
  polybot apply "salt-n-pepper 0.3" photo.jpg -o noisy.png --seed 7`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out.jpg", "output file")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "noise seed (0 picks a random one)")
	cmd.Flags().IntVar(&opts.Quality, "quality", 90, "JPEG quality (1-100)")
	cmd.Flags().StringVar(&opts.Grammar, "grammar", "", "CUE grammar file (default: built-in)")

	return cmd
}

func runApply(opts *ApplyOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	table, err := loadGrammar(opts.Grammar)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGrammar, err.Error(), nil)
	}

	album := len(args) == 3
	v := caption.Check(caption.NewParser(table).Parse(args[0]), album)
	if !v.OK() {
		msg := replies.Plain(replies.Default().Verdict(v))
		return f.Fail(ExitFailure, ErrCodeCaption, "caption rejected: "+msg, nil)
	}

	primary, err := readImage(args[1])
	if err != nil {
		return imageFailure(f, err)
	}
	f.VerboseLog("read %s (%dx%d)", args[1], primary.Width(), primary.Height())

	var secondary *imaging.Buffer
	if album {
		secondary, err = readImage(args[2])
		if err != nil {
			return imageFailure(f, err)
		}
		f.VerboseLog("read %s (%dx%d)", args[2], secondary.Width(), secondary.Height())
	}

	var rng *rand.Rand
	if opts.Seed != 0 {
		rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	}
	out, err := imaging.NewExecutor(rng).Execute(primary, secondary, v.Commands)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeImage, "processing failed: "+err.Error(), nil)
	}

	format := imaging.FormatFromPath(opts.Output)
	if err := writeImage(opts.Output, out, format, opts.Quality); err != nil {
		return f.Fail(ExitCommandError, ErrCodeImage, err.Error(), nil)
	}

	result := ApplyResult{
		Output: opts.Output,
		Format: format,
		Width:  out.Width(),
		Height: out.Height(),
	}
	for _, c := range v.Commands {
		result.Commands = append(result.Commands, c.Raw)
	}

	if f.json() {
		return f.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s (%dx%d, %s)\n", result.Output, result.Width, result.Height, result.Format)
	return nil
}

func readImage(path string) (*imaging.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b, _, err := imaging.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func writeImage(path string, b *imaging.Buffer, format string, quality int) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return imaging.Encode(file, b, format, quality)
}

func imageFailure(f *OutputFormatter, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeImage, err.Error(), nil)
}
