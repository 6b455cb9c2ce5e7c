package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/polybot/internal/replies"
	"github.com/roach88/polybot/internal/testutil"
)

// AssertionError is returned when an expectation fails.
// It includes the replies of the step to help debug the failure.
type AssertionError struct {
	Step     int    // message index
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Replies  []testutil.Reply
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "messages[%d]: expectation failed\n", e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Replies) > 0 {
		fmt.Fprintf(&buf, "\nReplies:\n")
		for i, r := range e.Replies {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, describeReply(r))
		}
	}

	return buf.String()
}

// EvaluateExpectations checks every message expectation and the final
// session count. It returns one message per failure.
func EvaluateExpectations(scenario *Scenario, result *Result) []string {
	var errs []string

	for i, m := range scenario.Messages {
		if i >= len(result.Steps) || m.Expect == nil {
			continue
		}
		for _, err := range checkStep(i, m.Expect, result.Steps[i]) {
			errs = append(errs, err.Error())
		}
	}

	if scenario.Pending != nil && *scenario.Pending != result.Pending {
		errs = append(errs, fmt.Sprintf("pending sessions: expected %d, got %d", *scenario.Pending, result.Pending))
	}

	return errs
}

func checkStep(index int, expect *Expect, step Step) []error {
	var errs []error
	fail := func(expected, actual string) {
		errs = append(errs, &AssertionError{Step: index, Expected: expected, Actual: actual, Replies: step.Replies})
	}

	switch {
	case expect.Error && step.Err == nil:
		fail("handler error", "no error")
	case !expect.Error && step.Err != nil:
		fail("no handler error", step.Err.Error())
	}

	if expect.Count != nil && *expect.Count != len(step.Replies) {
		fail(fmt.Sprintf("%d replies", *expect.Count), fmt.Sprintf("%d replies", len(step.Replies)))
	}

	for j, want := range expect.Replies {
		if j >= len(step.Replies) {
			fail(fmt.Sprintf("reply %d: %s", j+1, want.Kind), "missing")
			continue
		}
		if msg, ok := matchReply(want, step.Replies[j]); !ok {
			fail(fmt.Sprintf("reply %d: %s", j+1, msg), describeReply(step.Replies[j]))
		}
	}

	return errs
}

// matchReply reports whether got satisfies want. On failure it returns a
// description of the failed constraint.
func matchReply(want ReplyExpect, got testutil.Reply) (string, bool) {
	if want.Kind != got.Kind {
		return "kind " + want.Kind, false
	}
	if want.ReplyTo != 0 && want.ReplyTo != got.ReplyTo {
		return fmt.Sprintf("reply to %d", want.ReplyTo), false
	}
	if want.Contains != "" && !strings.Contains(replies.Plain(got.Text), want.Contains) {
		return fmt.Sprintf("text containing %q", want.Contains), false
	}
	if want.Width != 0 && (got.Image == nil || got.Image.Width() != want.Width) {
		return fmt.Sprintf("width %d", want.Width), false
	}
	if want.Height != 0 && (got.Image == nil || got.Image.Height() != want.Height) {
		return fmt.Sprintf("height %d", want.Height), false
	}
	return "", true
}

func describeReply(r testutil.Reply) string {
	text := strings.ReplaceAll(replies.Plain(r.Text), "\n", " / ")
	if r.Kind == replyPhoto && r.Image != nil {
		return fmt.Sprintf("photo to %d (%dx%d): %s", r.ReplyTo, r.Image.Width(), r.Image.Height(), text)
	}
	return fmt.Sprintf("%s to %d: %s", r.Kind, r.ReplyTo, text)
}
