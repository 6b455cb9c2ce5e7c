package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/roach88/polybot/internal/ir"
)

// Color accepts a named color or a CSS style literal:
// #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba(), hsl(), hsv() and hsb().
// Alpha components are parsed and discarded.
type Color struct{}

// Validate implements ir.ArgRule.
func (Color) Validate(raw, context string) (ir.Value, *ir.Problem) {
	c, err := ParseColor(raw)
	if err != nil {
		return nil, &ir.Problem{Kind: ir.ProblemNotAColor, Command: context, Token: raw}
	}
	return c, nil
}

// Describe implements ir.ArgRule.
func (Color) Describe() string { return "color" }

var (
	rgbPattern = regexp.MustCompile(`^rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)$`)
	rgbPercent = regexp.MustCompile(`^rgba?\(\s*(\d+(?:\.\d+)?)%\s*,\s*(\d+(?:\.\d+)?)%\s*,\s*(\d+(?:\.\d+)?)%\s*(?:,\s*(\d+)\s*)?\)$`)
	hsxPattern = regexp.MustCompile(`^(hsl|hsv|hsb)\(\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)%\s*,\s*(\d+(?:\.\d+)?)%\s*\)$`)
)

// ParseColor converts a color literal to RGB. Matching is case-insensitive.
func ParseColor(s string) (ir.RGB, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ir.RGB{}, fmt.Errorf("empty color")
	}

	if c, ok := colornames.Map[s]; ok {
		return ir.RGB{R: c.R, G: c.G, B: c.B}, nil
	}

	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}

	if m := rgbPattern.FindStringSubmatch(s); m != nil {
		var out [3]uint8
		for i := range 3 {
			n, err := strconv.Atoi(m[i+1])
			if err != nil || n > 255 {
				return ir.RGB{}, fmt.Errorf("channel %q out of range", m[i+1])
			}
			out[i] = uint8(n)
		}
		return ir.RGB{R: out[0], G: out[1], B: out[2]}, nil
	}

	if m := rgbPercent.FindStringSubmatch(s); m != nil {
		var out [3]uint8
		for i := range 3 {
			f, err := strconv.ParseFloat(m[i+1], 64)
			if err != nil || f > 100 {
				return ir.RGB{}, fmt.Errorf("channel %q out of range", m[i+1])
			}
			out[i] = uint8(f*255/100 + 0.5)
		}
		return ir.RGB{R: out[0], G: out[1], B: out[2]}, nil
	}

	if m := hsxPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.ParseFloat(m[2], 64)
		sat, _ := strconv.ParseFloat(m[3], 64)
		third, _ := strconv.ParseFloat(m[4], 64)
		if sat > 100 || third > 100 {
			return ir.RGB{}, fmt.Errorf("percentage out of range in %q", s)
		}
		var c colorful.Color
		if m[1] == "hsl" {
			c = colorful.Hsl(h, sat/100, third/100)
		} else {
			c = colorful.Hsv(h, sat/100, third/100)
		}
		r, g, b := c.Clamped().RGB255()
		return ir.RGB{R: r, G: g, B: b}, nil
	}

	return ir.RGB{}, fmt.Errorf("unknown color %q", s)
}

func parseHex(s string) (ir.RGB, error) {
	digits := s[1:]
	for _, r := range digits {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return ir.RGB{}, fmt.Errorf("invalid hex color %q", s)
		}
	}
	switch len(digits) {
	case 3, 6:
	case 4, 8:
		digits = digits[:len(digits)*3/4]
	default:
		return ir.RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return ir.RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return ir.RGB{R: r, G: g, B: b}, nil
}
