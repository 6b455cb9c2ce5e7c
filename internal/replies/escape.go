package replies

import "strings"

const specialChars = "_*[]()~`>#+-=|{}.!"

// Markdown is text that is already valid MarkdownV2. Render inserts it
// verbatim.
type Markdown string

// Escape prefixes every MarkdownV2 special character with a backslash,
// leaving characters that are already escaped alone.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := rune(0)
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) && prev != '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// Plain strips MarkdownV2 markup for terminals and logs: escapes are
// resolved and unescaped emphasis markers dropped.
func Plain(md string) string {
	rs := []rune(md)
	var b strings.Builder
	b.Grow(len(md))
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs) && (rs[i+1] == '\\' || strings.ContainsRune(specialChars, rs[i+1])):
			i++
			b.WriteRune(rs[i])
		case r == '*' || r == '~' || r == '`':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
