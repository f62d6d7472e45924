package openrouter

import (
	"strings"
	"unicode"
)

// maxActionPromptRunes caps how much text an unclosed '[' may hold back
// before it is released as plain text.
const maxActionPromptRunes = 48

// actionPromptFilter removes "[...]" directives and the whitespace following
// them from a stream of fragments. A directive may span several fragments.
type actionPromptFilter struct {
	held      strings.Builder
	heldRunes int
	inside    bool
	skipSpace bool
}

func (f *actionPromptFilter) Filter(fragment string) string {
	var out strings.Builder
	for _, r := range fragment {
		if f.inside {
			f.held.WriteRune(r)
			f.heldRunes++
			switch {
			case r == ']':
				f.reset()
				f.skipSpace = true
			case r == '\n' || f.heldRunes > maxActionPromptRunes:
				out.WriteString(f.held.String())
				f.reset()
			}
			continue
		}

		if r == '[' {
			f.inside = true
			f.skipSpace = false
			f.held.WriteRune(r)
			f.heldRunes = 1
			continue
		}

		if f.skipSpace && unicode.IsSpace(r) {
			continue
		}
		f.skipSpace = false
		out.WriteRune(r)
	}
	return out.String()
}

// Flush returns any text held back by an unclosed bracket.
func (f *actionPromptFilter) Flush() string {
	rest := f.held.String()
	f.reset()
	f.skipSpace = false
	return rest
}

func (f *actionPromptFilter) reset() {
	f.held.Reset()
	f.heldRunes = 0
	f.inside = false
}
