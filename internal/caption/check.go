package caption

import "github.com/roach88/polybot/internal/ir"

// Stage names the sweep that stopped a caption, or StageOK.
type Stage int

const (
	StageOK Stage = iota
	StageNoCaption
	StageCommand
	StageMultiplicity
	StageArguments
)

func (s Stage) String() string {
	switch s {
	case StageOK:
		return "ok"
	case StageNoCaption:
		return "no-caption"
	case StageCommand:
		return "command"
	case StageMultiplicity:
		return "multiplicity"
	case StageArguments:
		return "arguments"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ArgumentProblems groups the failed arguments of one command.
type ArgumentProblems struct {
	Command string         `json:"command"`
	Args    []ir.ArgResult `json:"args"`
}

// Verdict is the outcome of running the error sweeps over parsed entries.
type Verdict struct {
	Stage      Stage               `json:"stage"`
	Problems   []*ir.Problem       `json:"problems,omitempty"`
	Arguments  []ArgumentProblems  `json:"arguments,omitempty"`
	Commands   []*ir.ParsedCommand `json:"commands,omitempty"`
	MultiImage []string            `json:"multi_image,omitempty"`
}

// OK reports whether the commands may be executed.
func (v Verdict) OK() bool { return v.Stage == StageOK }

// AwaitsPartner reports whether the accepted commands need a second image.
func (v Verdict) AwaitsPartner() bool { return v.OK() && len(v.MultiImage) == 1 }

// Check runs the three sweeps in order: command-level problems, the number
// of multi-image effects, then argument problems. The first sweep that
// finds anything stops the pipeline. grouped tells whether the message
// belongs to an album, which is the only way to deliver a second image.
func Check(entries []Entry, grouped bool) Verdict {
	if len(entries) == 0 {
		return Verdict{Stage: StageNoCaption, Problems: []*ir.Problem{{Kind: ir.ProblemNoCaption}}}
	}
	if p := entries[0].Problem; p != nil && p.Kind == ir.ProblemNoCaption {
		return Verdict{Stage: StageNoCaption, Problems: []*ir.Problem{p}}
	}

	var problems []*ir.Problem
	var commands []*ir.ParsedCommand
	for _, e := range entries {
		if e.Problem != nil {
			problems = append(problems, e.Problem)
			continue
		}
		commands = append(commands, e.Command)
	}
	if len(problems) > 0 {
		return Verdict{Stage: StageCommand, Problems: problems}
	}

	var multi []string
	for _, c := range commands {
		if c.MultiImage {
			multi = append(multi, c.Effect)
		}
	}
	switch {
	case len(multi) > 1:
		return Verdict{
			Stage:      StageMultiplicity,
			Problems:   []*ir.Problem{{Kind: ir.ProblemTooManyMultiImage, Effects: multi}},
			MultiImage: multi,
		}
	case len(multi) == 1 && !grouped:
		return Verdict{
			Stage:      StageMultiplicity,
			Problems:   []*ir.Problem{{Kind: ir.ProblemMissingSecondImage, Effects: multi}},
			MultiImage: multi,
		}
	}

	var args []ArgumentProblems
	for _, c := range commands {
		var failed []ir.ArgResult
		for _, a := range c.Args {
			if a.Problem != nil {
				failed = append(failed, a)
			}
		}
		if len(failed) > 0 {
			args = append(args, ArgumentProblems{Command: c.Raw, Args: failed})
		}
	}
	if len(args) > 0 {
		return Verdict{Stage: StageArguments, Arguments: args, MultiImage: multi}
	}

	return Verdict{Stage: StageOK, Commands: commands, MultiImage: multi}
}
