package harness

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/polybot/internal/bot"
	"github.com/roach88/polybot/internal/engine"
	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/session"
	"github.com/roach88/polybot/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh session cache. Messages are queued
// on an engine.Engine in order and dispatched by its loop; the replies
// each message produced are captured between dispatches.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	transport := testutil.NewRecordingTransport()
	for name, spec := range scenario.Images {
		img, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", name, err)
		}
		transport.AddImage(name, img)
	}

	sessions, err := session.Open(scenario.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open session cache: %w", err)
	}
	defer sessions.Close()

	timeout := scenario.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	b := bot.New(transport, sessions,
		bot.WithTimeout(timeout),
		bot.WithClock(engine.NewClock()),
		bot.WithExecutor(imaging.NewExecutor(rand.New(rand.NewPCG(scenario.Seed, scenario.Seed)))),
	)

	result := NewResult(scenario.Name)
	handler := engine.HandlerFunc(func(ctx context.Context, msg ir.Inbound) error {
		before := len(transport.Replies())
		err := b.HandleMessage(ctx, msg)
		result.Steps = append(result.Steps, Step{
			Message:   msg,
			RequestID: engine.RequestID(ctx),
			Replies:   transport.Replies()[before:],
			Err:       err,
		})
		return err
	})

	eng := engine.New(handler, testutil.NewFixedRequestIDGenerator(scenario.RequestID))
	for i, m := range scenario.Messages {
		if _, ok := eng.Enqueue(m.Inbound()); !ok {
			return nil, fmt.Errorf("message %d: queue closed", i)
		}
	}
	eng.Stop()
	if err := eng.Run(ctx); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	if len(result.Steps) != len(scenario.Messages) {
		return nil, fmt.Errorf("dispatched %d of %d messages", len(result.Steps), len(scenario.Messages))
	}

	pending, err := sessions.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	result.Pending = pending

	for _, msg := range EvaluateExpectations(scenario, result) {
		result.AddError(msg)
	}

	return result, nil
}

// Inbound converts the step to the message the transport would deliver.
func (m MessageStep) Inbound() ir.Inbound {
	chat := m.Chat
	if chat == 0 {
		chat = m.From
	}
	msg := ir.Inbound{
		SenderID:  m.From,
		ChatID:    chat,
		MessageID: m.ID,
		Date:      testutil.Epoch.Add(m.At),
		GroupID:   m.Group,
		Document:  m.Document,
	}
	if m.Caption != nil {
		msg.HasCaption = true
		msg.Caption = *m.Caption
	}
	switch {
	case m.Photo != "":
		msg.Photo = &ir.ImageRef{FileID: m.Photo}
	case !m.Document:
		msg.HasText = true
		msg.Text = m.Text
	}
	return msg
}
