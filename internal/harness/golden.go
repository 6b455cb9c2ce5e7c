package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/replies"
	"github.com/roach88/polybot/internal/testutil"
)

// Trace renders the run as plain text for golden comparison. Replies are
// shown with MarkdownV2 markup stripped.
func (r *Result) Trace() []byte {
	var buf strings.Builder

	fmt.Fprintf(&buf, "scenario: %s\n", r.Name)
	for _, s := range r.Steps {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "> %s\n", describeMessage(s.Message))
		if len(s.Replies) == 0 && s.Err == nil {
			buf.WriteString("  (no reply)\n")
		}
		for _, reply := range s.Replies {
			writeReply(&buf, reply)
		}
		if s.Err != nil {
			fmt.Fprintf(&buf, "  ! %v\n", s.Err)
		}
	}
	fmt.Fprintf(&buf, "\npending: %d\n", r.Pending)

	return []byte(buf.String())
}

func describeMessage(m ir.Inbound) string {
	parts := []string{
		fmt.Sprintf("#%d from %d at +%s", m.MessageID, m.SenderID, m.Date.Sub(testutil.Epoch)),
	}
	switch {
	case m.IsPhoto():
		parts = append(parts, "photo="+m.Photo.FileID)
	case m.Document:
		parts = append(parts, "document")
	}
	if m.Grouped() {
		parts = append(parts, "group="+m.GroupID)
	}
	if m.HasCaption {
		parts = append(parts, fmt.Sprintf("caption=%q", m.Caption))
	}
	if m.HasText {
		parts = append(parts, fmt.Sprintf("text=%q", m.Text))
	}
	return strings.Join(parts, " ")
}

func writeReply(buf *strings.Builder, r testutil.Reply) {
	head := fmt.Sprintf("%s to %d", r.Kind, r.ReplyTo)
	if r.Kind == replyPhoto && r.Image != nil {
		head += fmt.Sprintf(" (%dx%d)", r.Image.Width(), r.Image.Height())
	}
	lines := strings.Split(replies.Plain(r.Text), "\n")
	fmt.Fprintf(buf, "  < %s: %s\n", head, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(buf, "    %s\n", line)
	}
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, result.Trace())
}
