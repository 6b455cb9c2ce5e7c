package grammar

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/rules"
)

//go:embed grammar.cue
var embedded []byte

// hashDomain prefixes the grammar hash. Format: SHA256(domain + 0x00 + json).
const hashDomain = "polybot/grammar/v1"

// Table is an immutable, validated grammar.
type Table struct {
	defs    []EffectDef
	effects []ir.EffectRule
	byName  map[string]int
	hash    string
}

// Lookup returns the rule for an effect name.
func (t *Table) Lookup(name string) (ir.EffectRule, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ir.EffectRule{}, false
	}
	return t.effects[i], true
}

// Names returns effect names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.effects))
	for i, e := range t.effects {
		names[i] = e.Name
	}
	return names
}

// Effects returns the compiled rules in declaration order.
func (t *Table) Effects() []ir.EffectRule {
	return append([]ir.EffectRule(nil), t.effects...)
}

// Defs returns the definitions the table was built from.
func (t *Table) Defs() []EffectDef {
	out := make([]EffectDef, len(t.defs))
	for i, d := range t.defs {
		d.Rules = append([]RuleDef(nil), d.Rules...)
		out[i] = d
	}
	return out
}

// Hash identifies the grammar content.
func (t *Table) Hash() string {
	return t.hash
}

// Build validates defs and binds each rule to its validator.
// All validation errors are joined into the returned error.
func Build(defs []EffectDef) (*Table, error) {
	if verrs := Validate(defs); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}

	t := &Table{
		defs:   defs,
		byName: make(map[string]int, len(defs)),
	}
	for i, def := range defs {
		kind, _ := ir.ParseEffectKind(def.Name)
		rule := ir.EffectRule{
			Name:       def.Name,
			Kind:       kind,
			MinArgs:    def.MinArgs,
			MaxArgs:    def.MaxArgs,
			MultiImage: def.MultiImage,
		}
		for _, rd := range def.Rules {
			r, err := bindRule(rd)
			if err != nil {
				return nil, fmt.Errorf("effect %s: %w", def.Name, err)
			}
			rule.Rules = append(rule.Rules, r)
		}
		t.effects = append(t.effects, rule)
		t.byName[def.Name] = i
	}

	data, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("hash grammar: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	t.hash = hex.EncodeToString(h.Sum(nil))

	return t, nil
}

func bindRule(rd RuleDef) (ir.ArgRule, error) {
	coerce, err := rules.ParseCoerce(rd.Coerce)
	if err != nil {
		return nil, err
	}
	switch rd.Kind {
	case "range":
		if coerce == rules.CoerceNone {
			coerce = rules.CoerceInt
		}
		return rules.Range{Lower: *rd.Lower, Upper: *rd.Upper, Coerce: coerce}, nil
	case "options":
		values := make([]ir.Value, len(rd.Options))
		for i, opt := range rd.Options {
			v, err := optionToValue(opt, coerce)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return rules.Options{Values: values, Coerce: coerce}, nil
	case "positive_int":
		return rules.PositiveInt{}, nil
	case "color":
		return rules.Color{}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rd.Kind)
	}
}

// Load compiles, validates and builds a grammar from CUE source.
func Load(src []byte, filename string) (*Table, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	defs, err := Compile(v)
	if err != nil {
		return nil, err
	}
	return Build(defs)
}

// LoadFile compiles a grammar from a CUE file on disk.
func LoadFile(path string) (*Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	return Load(src, path)
}

// Source returns the embedded grammar source.
func Source() []byte {
	return append([]byte(nil), embedded...)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded grammar. A broken embedded grammar is a
// programming error and panics.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(embedded, "grammar.cue")
		if err != nil {
			panic(fmt.Sprintf("embedded grammar: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}
