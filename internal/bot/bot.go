package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/polybot/internal/caption"
	"github.com/roach88/polybot/internal/engine"
	"github.com/roach88/polybot/internal/grammar"
	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/replies"
	"github.com/roach88/polybot/internal/session"
)

// DefaultTimeout is how long a parked multi-image session waits for its
// partner.
const DefaultTimeout = 30 * time.Second

// Transport delivers images and replies.
type Transport interface {
	FetchImage(ctx context.Context, ref ir.ImageRef) (*imaging.Buffer, error)
	SendText(ctx context.Context, chatID, replyTo int64, text string) error
	SendPhoto(ctx context.Context, chatID, replyTo int64, img *imaging.Buffer, caption string) error
}

// Bot handles one message at a time. It is not safe for concurrent use;
// the engine's Run loop serializes calls.
type Bot struct {
	transport Transport
	sessions  session.Cache
	grammar   *grammar.Table
	parser    *caption.Parser
	replies   *replies.Store
	executor  *imaging.Executor
	clock     *engine.Clock
	timeout   time.Duration
}

// Option configures a Bot.
type Option func(*Bot)

// WithGrammar replaces the embedded grammar.
func WithGrammar(t *grammar.Table) Option {
	return func(b *Bot) { b.grammar = t }
}

// WithReplies replaces the embedded reply templates.
func WithReplies(s *replies.Store) Option {
	return func(b *Bot) { b.replies = s }
}

// WithExecutor sets the kernel executor, typically one with a seeded rng.
func WithExecutor(e *imaging.Executor) Option {
	return func(b *Bot) { b.executor = e }
}

// WithClock sets the clock that sequences parked sessions.
func WithClock(c *engine.Clock) Option {
	return func(b *Bot) { b.clock = c }
}

// WithTimeout sets the session timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bot) { b.timeout = d }
}

// New creates a Bot.
func New(t Transport, sessions session.Cache, opts ...Option) *Bot {
	b := &Bot{
		transport: t,
		sessions:  sessions,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.grammar == nil {
		b.grammar = grammar.Default()
	}
	if b.replies == nil {
		b.replies = replies.Default()
	}
	if b.executor == nil {
		b.executor = imaging.NewExecutor(nil)
	}
	if b.clock == nil {
		b.clock = engine.NewClock()
	}
	b.parser = caption.NewParser(b.grammar)
	return b
}

// Grammar returns the effect table in use.
func (b *Bot) Grammar() *grammar.Table { return b.grammar }

// Sessions returns the session cache.
func (b *Bot) Sessions() session.Cache { return b.sessions }

// HandleMessage implements engine.Handler.
func (b *Bot) HandleMessage(ctx context.Context, msg ir.Inbound) error {
	log := slog.With("request_id", engine.RequestID(ctx), "sender", msg.SenderID, "message_id", msg.MessageID)
	log.Info("incoming message",
		"photo", msg.IsPhoto(),
		"document", msg.Document,
		"group", msg.GroupID,
		"caption", msg.Caption,
	)

	cached, ok, err := b.sessions.Get(ctx, msg.SenderID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if ok && msg.MessageID <= cached.MessageID {
		log.Debug("dropping duplicate delivery", "cached_message_id", cached.MessageID)
		return nil
	}

	removed, err := b.sessions.Sweep(ctx, msg.Date, b.timeout)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	if removed > 0 {
		log.Debug("swept expired sessions", "removed", removed)
	}

	switch {
	case msg.IsPhoto():
		return b.handlePhoto(ctx, log, msg)
	case msg.Document:
		return b.replyError(ctx, msg, b.replies.Render(replies.Photo, replies.KeyDocument))
	default:
		return b.handleText(ctx, msg)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, log *slog.Logger, msg ir.Inbound) error {
	if msg.HasCaption {
		return b.handleCaptioned(ctx, log, msg)
	}

	if msg.Grouped() {
		s, res, err := b.sessions.Claim(ctx, msg.SenderID, msg.GroupID)
		if err != nil {
			return fmt.Errorf("claim session: %w", err)
		}
		switch res {
		case session.ClaimConsumed:
			log.Debug("dropping photo of a finished album", "group", msg.GroupID)
			return nil
		case session.ClaimOK:
			if len(s.Commands) == 0 {
				return b.replyProblem(ctx, msg, &ir.Problem{Kind: ir.ProblemNoCaption})
			}
			log.Debug("paired album photos", "first_message_id", s.MessageID, "seq", s.Seq)
			return b.process(ctx, log, msg, s.Commands, s.Image, msg.Photo)
		}
	}

	return b.replyProblem(ctx, msg, &ir.Problem{Kind: ir.ProblemNoCaption})
}

func (b *Bot) handleCaptioned(ctx context.Context, log *slog.Logger, msg ir.Inbound) error {
	v := caption.Check(b.parser.Parse(msg.Caption), msg.Grouped())

	if msg.Grouped() {
		pending, ok, err := b.pendingCaption(ctx, msg)
		if err != nil {
			return err
		}
		if ok {
			return b.secondCaption(ctx, log, msg, v, pending)
		}
	}

	if !v.OK() {
		log.Info("caption rejected", "stage", v.Stage.String())
		if v.Stage == caption.StageMultiplicity && len(v.MultiImage) > 1 && msg.Grouped() {
			// Later photos of this album are dropped until the marker expires.
			if err := b.sessions.Put(ctx, b.park(msg, nil, true)); err != nil {
				return fmt.Errorf("store consumed marker: %w", err)
			}
		}
		return b.replyError(ctx, msg, b.replies.Verdict(v))
	}

	if v.AwaitsPartner() {
		s := b.park(msg, v.Commands, false)
		if err := b.sessions.Put(ctx, s); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		log.Debug("waiting for second image", "effect", v.MultiImage[0], "seq", s.Seq)
		return nil
	}

	return b.process(ctx, log, msg, v.Commands, *msg.Photo, nil)
}

// pendingCaption returns the sender's captioned photo from msg's album that
// still waits for its partner.
func (b *Bot) pendingCaption(ctx context.Context, msg ir.Inbound) (session.Session, bool, error) {
	s, ok, err := b.sessions.Get(ctx, msg.SenderID)
	if err != nil {
		return session.Session{}, false, fmt.Errorf("load session: %w", err)
	}
	if !ok || s.Consumed || !s.HasCaption || s.GroupID != msg.GroupID {
		return session.Session{}, false, nil
	}
	return s, true, nil
}

// secondCaption handles a captioned photo arriving while an earlier
// captioned photo of the same album waits. The multi-image effects of both
// captions count against the album; either way the album is closed.
func (b *Bot) secondCaption(ctx context.Context, log *slog.Logger, msg ir.Inbound, v caption.Verdict, pending session.Session) error {
	var multi []string
	for _, c := range pending.Commands {
		if c.MultiImage {
			multi = append(multi, c.Effect)
		}
	}
	multi = append(multi, v.MultiImage...)

	if err := b.sessions.Put(ctx, b.park(msg, nil, true)); err != nil {
		return fmt.Errorf("store consumed marker: %w", err)
	}

	if len(multi) > 1 {
		log.Info("album captions request several multi-image effects",
			"effects", multi,
			"first_message_id", pending.MessageID,
			"first_seq", pending.Seq,
		)
		return b.replyProblem(ctx, msg, &ir.Problem{Kind: ir.ProblemTooManyMultiImage, Effects: multi})
	}

	// The parked effect lost its partner to a photo with a caption of its own.
	log.Info("album partner carries its own caption", "first_message_id", pending.MessageID, "first_seq", pending.Seq)
	first := ir.Inbound{SenderID: pending.SenderID, ChatID: pending.ChatID, MessageID: pending.MessageID}
	if err := b.replyProblem(ctx, first, &ir.Problem{Kind: ir.ProblemMissingSecondImage, Effects: multi}); err != nil {
		return err
	}
	if !v.OK() {
		log.Info("caption rejected", "stage", v.Stage.String())
		return b.replyError(ctx, msg, b.replies.Verdict(v))
	}
	return b.process(ctx, log, msg, v.Commands, *msg.Photo, nil)
}

func (b *Bot) park(msg ir.Inbound, commands []*ir.ParsedCommand, consumed bool) session.Session {
	return session.Session{
		SenderID:   msg.SenderID,
		ChatID:     msg.ChatID,
		MessageID:  msg.MessageID,
		GroupID:    msg.GroupID,
		HasCaption: msg.HasCaption,
		Caption:    msg.Caption,
		Commands:   commands,
		Image:      *msg.Photo,
		Seq:        b.clock.Next(),
		CreatedAt:  msg.Date,
		Consumed:   consumed,
	}
}

// process downloads the images, runs the commands and replies to msg.
func (b *Bot) process(ctx context.Context, log *slog.Logger, msg ir.Inbound, commands []*ir.ParsedCommand, primary ir.ImageRef, secondary *ir.ImageRef) error {
	if err := b.replyText(ctx, msg, b.replies.Render(replies.Photo, replies.KeyProcessing)); err != nil {
		return err
	}

	first, err := b.transport.FetchImage(ctx, primary)
	if err != nil {
		return b.failProcessing(ctx, msg, fmt.Errorf("fetch image %s: %w", primary.FileID, err))
	}
	var second *imaging.Buffer
	if secondary != nil {
		second, err = b.transport.FetchImage(ctx, *secondary)
		if err != nil {
			return b.failProcessing(ctx, msg, fmt.Errorf("fetch image %s: %w", secondary.FileID, err))
		}
	}

	start := time.Now()
	out, err := b.executor.Execute(first, second, commands)
	if err != nil {
		var shape *imaging.ShapeError
		if errors.As(err, &shape) {
			if shape.Empty {
				log.Info("result would be empty", "op", shape.Op, "reason", shape.Reason)
				effect := strings.ReplaceAll(shape.Op, "_", "-")
				return b.replyError(ctx, msg, b.replies.Render(replies.Photo, replies.KeyEmptyResult, effect))
			}
			log.Error("kernel shape defect", "op", shape.Op, "reason", shape.Reason)
		}
		return b.failProcessing(ctx, msg, fmt.Errorf("execute: %w", err))
	}
	log.Info("image processed",
		"effects", len(commands),
		"width", out.Width(),
		"height", out.Height(),
		"elapsed", time.Since(start),
	)

	if err := b.transport.SendPhoto(ctx, msg.ChatID, msg.MessageID, out, b.replies.Render(replies.Photo, replies.KeySend)); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (b *Bot) failProcessing(ctx context.Context, msg ir.Inbound, cause error) error {
	if err := b.replyError(ctx, msg, b.replies.Render(replies.Photo, replies.KeyProcessingFailed)); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (b *Bot) handleText(ctx context.Context, msg ir.Inbound) error {
	fields := strings.Fields(strings.ToLower(msg.Text))
	if len(fields) > 0 && fields[0] == "help" {
		topic := strings.Join(fields[1:], " ")
		text := b.replies.Help(topic)
		if topic != "" {
			if _, ok := b.grammar.Lookup(strings.ReplaceAll(topic, "-", "_")); !ok {
				if s := b.parser.Suggest(strings.ReplaceAll(topic, "-", "_")); s != "" {
					text += "\n" + b.replies.Render(replies.Photo, replies.KeyDidYouMean, s)
				}
			}
		}
		return b.replyText(ctx, msg, text)
	}
	return b.replyText(ctx, msg, b.replies.Text(msg.Text))
}

func (b *Bot) replyProblem(ctx context.Context, msg ir.Inbound, p *ir.Problem) error {
	return b.replyError(ctx, msg, b.replies.Problem(p))
}

func (b *Bot) replyError(ctx context.Context, msg ir.Inbound, body string) error {
	return b.replyText(ctx, msg, b.replies.ErrorText(body))
}

func (b *Bot) replyText(ctx context.Context, msg ir.Inbound, text string) error {
	if err := b.transport.SendText(ctx, msg.ChatID, msg.MessageID, text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}
