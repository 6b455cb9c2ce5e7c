package ir

// ArgRule validates one raw token. Implementations are pure: they never
// mutate shared state and report failures as a Problem value.
type ArgRule interface {
	// Validate coerces raw into a typed value. context is the full raw
	// command the token came from and is carried on any Problem.
	Validate(raw, context string) (Value, *Problem)

	// Describe renders the rule for help and grammar listings.
	Describe() string
}

// EffectRule is the grammar entry for one effect. Built once at startup and
// never mutated.
type EffectRule struct {
	Name       string     `json:"name"`
	Kind       EffectKind `json:"kind"`
	MinArgs    int        `json:"min_args"`
	MaxArgs    int        `json:"max_args"`
	Rules      []ArgRule  `json:"-"`
	MultiImage bool       `json:"multi_image"`
}

// AcceptsArity reports whether n positional arguments fit the rule.
func (r EffectRule) AcceptsArity(n int) bool {
	return n >= r.MinArgs && n <= r.MaxArgs
}

// ArgResult is one positional argument after validation. Exactly one of
// Value and Problem is set.
type ArgResult struct {
	Raw     string   `json:"raw"`
	Value   Value    `json:"-"`
	Problem *Problem `json:"problem,omitempty"`
}

// ParsedCommand is a single effect invocation resolved against the grammar.
// Argument problems stay in place so they can be reported together.
type ParsedCommand struct {
	Effect     string      `json:"effect"`
	Kind       EffectKind  `json:"kind"`
	Raw        string      `json:"raw"`
	Args       []ArgResult `json:"args"`
	MultiImage bool        `json:"multi_image"`
}

// Problems returns the argument problems of the command in positional order.
func (c *ParsedCommand) Problems() []*Problem {
	var out []*Problem
	for _, a := range c.Args {
		if a.Problem != nil {
			out = append(out, a.Problem)
		}
	}
	return out
}

// Valid reports whether every argument passed validation.
func (c *ParsedCommand) Valid() bool {
	for _, a := range c.Args {
		if a.Problem != nil {
			return false
		}
	}
	return true
}

// Arg returns the validated value at position i. ok is false when the
// argument was omitted or failed validation.
func (c *ParsedCommand) Arg(i int) (v Value, ok bool) {
	if i < 0 || i >= len(c.Args) || c.Args[i].Problem != nil || c.Args[i].Value == nil {
		return nil, false
	}
	return c.Args[i].Value, true
}
