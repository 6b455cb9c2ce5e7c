package imaging

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/polybot/internal/ir"
)

// ErrMissingSecondary is returned when a multi-image command runs without
// a second buffer, or after the second buffer was already consumed.
var ErrMissingSecondary = errors.New("multi-image effect needs a second image")

// Executor applies parsed commands to pixel buffers.
type Executor struct {
	rng *rand.Rand
}

// NewExecutor returns an executor drawing noise from rng. A nil rng uses a
// randomly seeded source.
func NewExecutor(rng *rand.Rand) *Executor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Executor{rng: rng}
}

// Execute applies commands in order to primary. A multi-image command
// receives secondary; secondary is consumed by the first such command.
// Neither input buffer is modified. A malformed buffer is reported as a
// *ShapeError.
func (e *Executor) Execute(primary, secondary *Buffer, commands []*ir.ParsedCommand) (out *Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*ShapeError); ok {
				out, err = nil, se
				return
			}
			panic(r)
		}
	}()

	out = primary
	mustShape("execute", out)
	for _, cmd := range commands {
		var second *Buffer
		if cmd.MultiImage {
			if secondary == nil {
				return nil, fmt.Errorf("%s: %w", cmd.Effect, ErrMissingSecondary)
			}
			second, secondary = secondary, nil
		}
		out, err = e.apply(out, second, cmd)
		if err != nil {
			return nil, err
		}
	}
	if out == primary {
		out = primary.Clone()
	}
	return out, nil
}

func (e *Executor) apply(b, second *Buffer, cmd *ir.ParsedCommand) (*Buffer, error) {
	switch cmd.Kind {
	case ir.EffectBlur:
		return Blur(b, int(intArg(cmd, 0, DefaultBlurLevel))), nil
	case ir.EffectContour:
		return Contour(b), nil
	case ir.EffectRotate:
		return Rotate(b, int(intArg(cmd, 0, DefaultRotation))), nil
	case ir.EffectSaltNPepper:
		return SaltNPepper(b, e.rng,
			floatArg(cmd, 0, DefaultNoiseStrength),
			colorArg(cmd, 1, White),
			colorArg(cmd, 2, Black)), nil
	case ir.EffectColorNoise:
		return ColorNoise(b, e.rng, floatArg(cmd, 0, DefaultNoiseStrength)), nil
	case ir.EffectSegment:
		return Segment(b,
			int(intArg(cmd, 0, DefaultSegmentLevel)),
			colorArg(cmd, 1, Black),
			colorArg(cmd, 2, White)), nil
	case ir.EffectConcat:
		return Concat(b, second,
			Direction(textArg(cmd, 0, string(DefaultConcatDirection))),
			colorArg(cmd, 1, White)), nil
	case ir.EffectGrayscale:
		return Grayscale(b), nil
	case ir.EffectCanvasResize:
		return CanvasResize(b,
			int(intArg(cmd, 0, int64(b.Width()))),
			int(intArg(cmd, 1, int64(b.Height()))),
			colorArg(cmd, 2, White)), nil
	case ir.EffectRGBPosterize:
		return Posterize(b, int(intArg(cmd, 0, DefaultPosterizeLevel))), nil
	case ir.EffectMultiply:
		return Multiply(b, second), nil
	case ir.EffectUnknown:
		return nil, fmt.Errorf("command %q has no effect kind", cmd.Raw)
	default:
		return nil, fmt.Errorf("unsupported effect %s", cmd.Kind)
	}
}

func intArg(cmd *ir.ParsedCommand, i int, def int64) int64 {
	v, ok := cmd.Arg(i)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case ir.Int:
		return int64(n)
	case ir.Float:
		return int64(n)
	}
	return def
}

func floatArg(cmd *ir.ParsedCommand, i int, def float64) float64 {
	v, ok := cmd.Arg(i)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case ir.Float:
		return float64(n)
	case ir.Int:
		return float64(n)
	}
	return def
}

func colorArg(cmd *ir.ParsedCommand, i int, def Pixel) Pixel {
	v, ok := cmd.Arg(i)
	if !ok {
		return def
	}
	if c, ok := v.(ir.RGB); ok {
		return PixelOf(c)
	}
	return def
}

func textArg(cmd *ir.ParsedCommand, i int, def string) string {
	v, ok := cmd.Arg(i)
	if !ok {
		return def
	}
	if s, ok := v.(ir.Text); ok {
		return string(s)
	}
	return def
}
