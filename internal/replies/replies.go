package replies

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/slongfield/pyfmt"
	"github.com/tidwall/jsonc"

	"github.com/roach88/polybot/internal/caption"
	"github.com/roach88/polybot/internal/ir"
)

// Categories.
const (
	General = "general"
	Text    = "text"
	Photo   = "photo"
	Help    = "help"
)

// Keys that are not problem kinds.
const (
	KeyErrorEnding      = "error-ending"
	KeyUnknown          = "unknown"
	KeyProcessing       = "processing"
	KeySend             = "send"
	KeyDocument         = "document"
	KeyProcessingFailed = "processing-failed"
	KeyEmptyResult      = "empty-result"
	KeyDidYouMean       = "did-you-mean"
	KeyArgError         = "arg-error"
	KeyHelp             = "help"
)

//go:embed replies.jsonc
var defaultSource []byte

// Store holds the reply templates.
type Store struct {
	templates map[string]map[string]string
}

// Load parses a JSONC template table.
func Load(data []byte) (*Store, error) {
	var templates map[string]map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(data), &templates); err != nil {
		return nil, fmt.Errorf("parse replies: %w", err)
	}
	if templates == nil {
		templates = map[string]map[string]string{}
	}
	return &Store{templates: templates}, nil
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the embedded template table.
func Default() *Store {
	defaultOnce.Do(func() {
		s, err := Load(defaultSource)
		if err != nil {
			panic(fmt.Sprintf("embedded replies: %v", err))
		}
		defaultStore = s
	})
	return defaultStore
}

// Lookup returns the raw template for category/key.
func (s *Store) Lookup(category, key string) (string, bool) {
	t, ok := s.templates[category][key]
	return t, ok
}

// Keys lists the keys of a category in sorted order.
func (s *Store) Keys(category string) []string {
	keys := make([]string, 0, len(s.templates[category]))
	for k := range s.templates[category] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Missing reports which of the required category/key pairs have no
// template.
func (s *Store) Missing(required map[string][]string) []string {
	var missing []string
	for category, keys := range required {
		for _, k := range keys {
			if _, ok := s.Lookup(category, k); !ok {
				missing = append(missing, category+"/"+k)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Render fills the template category/key with args. Markdown arguments are
// inserted as is; everything else is escaped. A missing template renders
// as its escaped path so the user still gets an answer.
func (s *Store) Render(category, key string, args ...any) string {
	tmpl, ok := s.Lookup(category, key)
	if !ok {
		return Escape(category + "/" + key)
	}
	if len(args) == 0 {
		return tmpl
	}
	subst := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case Markdown:
			subst[i] = string(v)
		case string:
			subst[i] = Escape(v)
		default:
			subst[i] = Escape(fmt.Sprint(v))
		}
	}
	out, err := pyfmt.Fmt(tmpl, subst...)
	if err != nil {
		return Escape(category + "/" + key)
	}
	return out
}

// ErrorText appends the standard error ending to body.
func (s *Store) ErrorText(body string) string {
	return body + "\n" + s.Render(General, KeyErrorEnding)
}

// Problem renders one problem. Unknown effects carry a suggestion line when
// a close name exists.
func (s *Store) Problem(p *ir.Problem) string {
	args := p.Args()
	anyArgs := make([]any, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}
	out := s.Render(Photo, string(p.Kind), anyArgs...)
	if p.Kind == ir.ProblemEffectNotFound && p.Suggestion != "" {
		out += "\n" + s.Render(Photo, KeyDidYouMean, p.Suggestion)
	}
	return out
}

// Verdict renders the body of a rejected caption, without the error ending.
// It returns "" for an accepted verdict.
func (s *Store) Verdict(v caption.Verdict) string {
	switch v.Stage {
	case caption.StageOK:
		return ""
	case caption.StageArguments:
		blocks := make([]string, 0, len(v.Arguments))
		for _, ap := range v.Arguments {
			lines := make([]string, 0, len(ap.Args))
			for _, a := range ap.Args {
				token := a.Raw
				if a.Problem.Token != "" {
					token = a.Problem.Token
				}
				lines = append(lines, Escape(token)+": "+s.Problem(a.Problem))
			}
			blocks = append(blocks, s.Render(Photo, KeyArgError, ap.Command, Markdown(strings.Join(lines, "\n"))))
		}
		return strings.Join(blocks, "\n\n")
	default:
		lines := make([]string, 0, len(v.Problems))
		for _, p := range v.Problems {
			lines = append(lines, s.Problem(p))
		}
		return strings.Join(lines, "\n")
	}
}

// Help answers "help" and "help <effect>". Hyphens in the topic are read as
// underscores.
func (s *Store) Help(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return s.Render(Help, KeyHelp)
	}
	key := strings.ReplaceAll(strings.ToLower(topic), "-", "_")
	if key != KeyHelp && key != KeyUnknown {
		if t, ok := s.Lookup(Help, key); ok {
			return t
		}
	}
	return s.Render(Help, KeyUnknown, topic)
}

// Text answers a plain text message: canned replies are matched on the
// lowercased, trimmed text.
func (s *Store) Text(msg string) string {
	key := strings.ToLower(strings.TrimSpace(msg))
	if key != KeyUnknown {
		if t, ok := s.Lookup(Text, key); ok {
			return t
		}
	}
	return s.Render(Text, KeyUnknown)
}
