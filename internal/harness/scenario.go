package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/session"
	"github.com/roach88/polybot/internal/testutil"
)

// DefaultTimeout is the session timeout used when a scenario sets none.
const DefaultTimeout = 30 * time.Second

// Scenario is one scripted conversation.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timeout is the session timeout. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Backend selects the session cache: memory (default) or sqlite.
	Backend string `yaml:"backend,omitempty"`

	// Seed seeds the noise generator.
	Seed uint64 `yaml:"seed,omitempty"`

	// RequestID is stamped on every message. Empty means "test-request".
	RequestID string `yaml:"request_id,omitempty"`

	// Images are the synthetic pictures messages refer to by name.
	Images map[string]ImageSpec `yaml:"images,omitempty"`

	// Messages are delivered in order.
	Messages []MessageStep `yaml:"messages"`

	// Pending, if set, is the number of sessions expected in the cache
	// after the last message.
	Pending *int `yaml:"pending,omitempty"`
}

// Image kinds.
const (
	ImageSolid    = "solid"
	ImageGradient = "gradient"
)

// ImageSpec describes a synthetic image.
type ImageSpec struct {
	Kind   string `yaml:"kind"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Color is a hex color for solid images. Empty means black.
	Color string `yaml:"color,omitempty"`
}

// Build renders the image.
func (s ImageSpec) Build() (*imaging.Buffer, error) {
	switch s.Kind {
	case ImageGradient:
		return testutil.Gradient(s.Width, s.Height), nil
	case ImageSolid:
		var p imaging.Pixel
		if s.Color != "" {
			c, err := colorful.Hex(s.Color)
			if err != nil {
				return nil, fmt.Errorf("color %q: %w", s.Color, err)
			}
			p.R, p.G, p.B = c.RGB255()
		}
		return testutil.Solid(s.Width, s.Height, p), nil
	default:
		return nil, fmt.Errorf("unknown image kind %q", s.Kind)
	}
}

// MessageStep is one inbound message and what it should produce.
type MessageStep struct {
	From int64 `yaml:"from"`

	// Chat defaults to From, as in a private chat.
	Chat int64 `yaml:"chat,omitempty"`

	ID int64         `yaml:"id"`
	At time.Duration `yaml:"at"`

	// Caption is nil when the message has no caption at all.
	Caption *string `yaml:"caption,omitempty"`

	Group    string `yaml:"group,omitempty"`
	Photo    string `yaml:"photo,omitempty"`
	Document bool   `yaml:"document,omitempty"`
	Text     string `yaml:"text,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect constrains the replies to one message.
type Expect struct {
	// Count, if set, is the exact number of replies.
	Count *int `yaml:"count,omitempty"`

	// Replies are matched in order against the first len(Replies) replies.
	Replies []ReplyExpect `yaml:"replies,omitempty"`

	// Error expects the handler to return an error.
	Error bool `yaml:"error,omitempty"`
}

// ReplyExpect constrains one reply. Zero fields are not checked.
type ReplyExpect struct {
	Kind     string `yaml:"kind"`
	ReplyTo  int64  `yaml:"reply_to,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Width    int    `yaml:"width,omitempty"`
	Height   int    `yaml:"height,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Messages) == 0 {
		return fmt.Errorf("messages list is required and must be non-empty")
	}

	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	switch s.Backend {
	case "", session.BackendMemory, session.BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	for name, img := range s.Images {
		if img.Width < 0 || img.Height < 0 {
			return fmt.Errorf("images.%s: size must not be negative", name)
		}
		if _, err := img.Build(); err != nil {
			return fmt.Errorf("images.%s: %w", name, err)
		}
	}

	for i, m := range s.Messages {
		if err := validateMessage(s, i, m); err != nil {
			return err
		}
	}

	if s.Pending != nil && *s.Pending < 0 {
		return fmt.Errorf("pending must be non-negative")
	}

	return nil
}

func validateMessage(s *Scenario, i int, m MessageStep) error {
	if m.From == 0 {
		return fmt.Errorf("messages[%d]: from is required", i)
	}
	if m.ID <= 0 {
		return fmt.Errorf("messages[%d]: id must be positive", i)
	}
	if m.Photo != "" {
		if _, ok := s.Images[m.Photo]; !ok {
			return fmt.Errorf("messages[%d]: unknown image %q", i, m.Photo)
		}
	}
	if m.Photo != "" && m.Document {
		return fmt.Errorf("messages[%d]: photo and document are exclusive", i)
	}
	if m.Expect == nil {
		return nil
	}
	if m.Expect.Count != nil && *m.Expect.Count < 0 {
		return fmt.Errorf("messages[%d].expect: count must be non-negative", i)
	}
	for j, r := range m.Expect.Replies {
		switch r.Kind {
		case replyText, replyPhoto:
		default:
			return fmt.Errorf("messages[%d].expect.replies[%d]: unknown kind %q", i, j, r.Kind)
		}
		if r.Kind == replyText && (r.Width != 0 || r.Height != 0) {
			return fmt.Errorf("messages[%d].expect.replies[%d]: width and height apply to photos", i, j)
		}
	}
	return nil
}

const (
	replyText  = testutil.ReplyText
	replyPhoto = testutil.ReplyPhoto
)
