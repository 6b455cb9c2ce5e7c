package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/polybot/internal/ir"
)

// Session is the parked first half of a multi-image request.
type Session struct {
	SenderID   int64               `json:"sender_id"`
	ChatID     int64               `json:"chat_id"`
	MessageID  int64               `json:"message_id"`
	GroupID    string              `json:"group_id,omitempty"`
	HasCaption bool                `json:"has_caption"`
	Caption    string              `json:"caption,omitempty"`
	Commands   []*ir.ParsedCommand `json:"-"`
	Image      ir.ImageRef         `json:"image"`
	Seq        int64               `json:"seq"`
	CreatedAt  time.Time           `json:"created_at"`
	Consumed   bool                `json:"consumed"`
}

// Expired reports whether the session is older than timeout at now.
func (s Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.CreatedAt) > timeout
}

// pairs reports whether a caption-less photo in groupID belongs to s.
func (s Session) pairs(groupID string) bool {
	return s.HasCaption && s.GroupID != "" && s.GroupID == groupID
}

// ClaimResult is the outcome of Cache.Claim.
type ClaimResult int

const (
	// ClaimMissing means no session pairs with the photo.
	ClaimMissing ClaimResult = iota
	// ClaimOK means the session paired and is now consumed.
	ClaimOK
	// ClaimConsumed means the session paired earlier; drop the photo.
	ClaimConsumed
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimOK:
		return "ok"
	case ClaimConsumed:
		return "consumed"
	default:
		return "missing"
	}
}

// Cache stores at most one Session per sender.
type Cache interface {
	// Get returns the sender's session, if any.
	Get(ctx context.Context, senderID int64) (Session, bool, error)

	// Put stores s, replacing any session of the same sender.
	Put(ctx context.Context, s Session) error

	// Claim atomically looks up the sender's session and, if it pairs with
	// groupID and is not consumed, marks it consumed and returns it.
	Claim(ctx context.Context, senderID int64, groupID string) (Session, ClaimResult, error)

	// Sweep removes every session older than timeout at now and returns
	// how many were removed.
	Sweep(ctx context.Context, now time.Time, timeout time.Duration) (int, error)

	// Len returns the number of stored sessions.
	Len(ctx context.Context) (int, error)

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open creates a cache for the named backend.
func Open(backend string) (Cache, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(":memory:")
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

type storedArg struct {
	Raw   string          `json:"raw"`
	Value json.RawMessage `json:"value"`
}

type storedCommand struct {
	Effect     string      `json:"effect"`
	Raw        string      `json:"raw"`
	MultiImage bool        `json:"multi_image"`
	Args       []storedArg `json:"args"`
}

// encodeCommands serializes validated commands. Commands that still carry
// argument problems are rejected; only executable commands are parked.
func encodeCommands(cmds []*ir.ParsedCommand) ([]byte, error) {
	out := make([]storedCommand, len(cmds))
	for i, c := range cmds {
		sc := storedCommand{Effect: c.Effect, Raw: c.Raw, MultiImage: c.MultiImage}
		for j, a := range c.Args {
			if a.Problem != nil || a.Value == nil {
				return nil, fmt.Errorf("command %q argument %d is not valid", c.Raw, j)
			}
			v, err := ir.EncodeValue(a.Value)
			if err != nil {
				return nil, fmt.Errorf("command %q argument %d: %w", c.Raw, j, err)
			}
			sc.Args = append(sc.Args, storedArg{Raw: a.Raw, Value: v})
		}
		out[i] = sc
	}
	return json.Marshal(out)
}

func decodeCommands(data []byte) ([]*ir.ParsedCommand, error) {
	var stored []storedCommand
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode commands: %w", err)
	}
	out := make([]*ir.ParsedCommand, len(stored))
	for i, sc := range stored {
		kind, ok := ir.ParseEffectKind(sc.Effect)
		if !ok {
			return nil, fmt.Errorf("decode commands: unknown effect %q", sc.Effect)
		}
		cmd := &ir.ParsedCommand{Effect: sc.Effect, Kind: kind, Raw: sc.Raw, MultiImage: sc.MultiImage}
		for _, a := range sc.Args {
			v, err := ir.DecodeValue(a.Value)
			if err != nil {
				return nil, fmt.Errorf("decode commands: %w", err)
			}
			cmd.Args = append(cmd.Args, ir.ArgResult{Raw: a.Raw, Value: v})
		}
		out[i] = cmd
	}
	return out, nil
}
