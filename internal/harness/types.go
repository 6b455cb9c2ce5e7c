package harness

import (
	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/testutil"
)

// Step records one delivered message and everything the bot sent back.
type Step struct {
	Message   ir.Inbound
	RequestID string
	Replies   []testutil.Reply

	// Err is the handler error, if any.
	Err error
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Steps holds one entry per message, in delivery order.
	Steps []Step `json:"-"`

	// Pending is the number of sessions left in the cache.
	Pending int `json:"pending"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Replies returns every reply of the run in order.
func (r *Result) Replies() []testutil.Reply {
	var out []testutil.Reply
	for _, s := range r.Steps {
		out = append(out, s.Replies...)
	}
	return out
}
