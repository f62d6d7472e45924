package screenplay

import (
	"strings"
	"unicode"
)

const (
	// minClauseRunes is the number of runes that must precede a comma before
	// the comma is allowed to end a unit.
	minClauseRunes = 10
	// maxDirectiveRunes bounds how far a '[' may be from its ']' before the
	// bracket is treated as plain text.
	maxDirectiveRunes = 32
)

type directiveState int

const (
	directivePending directiveState = iota
	directiveClosed
	directiveLiteral
)

// Segmenter incrementally splits a streamed reply into Screenplays. It keeps
// the not yet emitted text and the currently active expression.
//
// A Segmenter is not safe for concurrent use and is meant to live for exactly
// one reply.
type Segmenter struct {
	buffer     []rune
	activeTag  EmotionTag
	initialTag EmotionTag
	speaker    Speaker
}

type SegmenterOption func(*Segmenter)

// WithSpeaker sets the speaker coordinates copied into every Talk.
func WithSpeaker(speaker Speaker) SegmenterOption {
	return func(s *Segmenter) { s.speaker = speaker }
}

// WithInitialTag sets the expression used until the first directive is seen.
// Unknown tags are ignored.
func WithInitialTag(tag EmotionTag) SegmenterOption {
	return func(s *Segmenter) {
		if tag.IsValid() {
			s.initialTag = tag
		}
	}
}

func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		initialTag: EmotionNeutral,
		speaker:    DefaultSpeaker,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.activeTag = s.initialTag
	return s
}

// ActiveTag returns the expression that the next emitted unit would carry.
func (s *Segmenter) ActiveTag() EmotionTag {
	return s.activeTag
}

// Pending returns the buffered text that has not been emitted yet.
func (s *Segmenter) Pending() string {
	return string(s.buffer)
}

// Feed appends delta to the buffer and returns every unit that became
// complete, in order.
func (s *Segmenter) Feed(delta string) []Screenplay {
	s.buffer = append(s.buffer, []rune(delta)...)
	return s.drain(false)
}

// Flush emits whatever is left in the buffer and resets the segmenter so it
// can be reused for another reply.
func (s *Segmenter) Flush() []Screenplay {
	screenplays := s.drain(true)
	s.buffer = nil
	s.activeTag = s.initialTag
	return screenplays
}

func (s *Segmenter) drain(final bool) []Screenplay {
	var screenplays []Screenplay
	for {
		s.buffer = trimLeftSpace(s.buffer)
		if len(s.buffer) == 0 {
			return screenplays
		}

		if s.buffer[0] == '[' {
			end, state := s.directiveAt(0, final)
			if state == directivePending {
				return screenplays
			}
			if state == directiveClosed {
				if tag, ok := ParseEmotionTag(string(s.buffer[1:end])); ok {
					s.activeTag = tag
				}
				s.buffer = s.buffer[end+1:]
				continue
			}
		}

		end, ok := s.unitEnd(final)
		if !ok {
			return screenplays
		}

		unit := string(s.buffer[:end])
		s.buffer = s.buffer[end:]
		if screenplay, ok := s.newScreenplay(unit); ok {
			screenplays = append(screenplays, screenplay)
		}
	}
}

// unitEnd finds the end of the first complete unit at the buffer front. A
// recognized directive after some text also ends the unit, so that the text
// following it picks up the new expression.
func (s *Segmenter) unitEnd(final bool) (int, bool) {
	spoken := 0
	for i := 0; i < len(s.buffer); i++ {
		r := s.buffer[i]
		switch {
		case r == '[' && i > 0:
			end, state := s.directiveAt(i, final)
			switch state {
			case directivePending:
				return 0, false
			case directiveClosed:
				if _, ok := ParseEmotionTag(string(s.buffer[i+1 : end])); ok {
					return i, true
				}
				i = end
			default:
				spoken++
			}
		case isTerminator(r):
			end := i + 1
			for end < len(s.buffer) && (isTerminator(s.buffer[end]) || isCloser(s.buffer[end])) {
				end++
			}
			// A trailing period may be the start of "...", so it waits for
			// the next delta. Other terminators end the unit right away.
			if end == len(s.buffer) && !final && isPeriod(s.buffer[end-1]) {
				return 0, false
			}
			return end, true
		case isClauseSeparator(r) && spoken >= minClauseRunes:
			end := i + 1
			for end < len(s.buffer) && isCloser(s.buffer[end]) {
				end++
			}
			return end, true
		default:
			spoken++
		}
	}

	if final {
		return len(s.buffer), true
	}
	return 0, false
}

func (s *Segmenter) directiveAt(start int, final bool) (int, directiveState) {
	for i := start + 1; i < len(s.buffer); i++ {
		r := s.buffer[i]
		if r == ']' {
			return i, directiveClosed
		}
		if r == '[' || isTerminator(r) || i-start > maxDirectiveRunes {
			return 0, directiveLiteral
		}
	}

	if final || len(s.buffer)-start > maxDirectiveRunes {
		return 0, directiveLiteral
	}
	return 0, directivePending
}

func (s *Segmenter) newScreenplay(unit string) (Screenplay, bool) {
	message := strings.TrimSpace(StripDirectives(unit))
	if isUnspeakable(message) {
		return Screenplay{}, false
	}

	return Screenplay{
		Expression: s.activeTag,
		Talk: Talk{
			Style:    s.activeTag.TalkStyle(),
			SpeakerX: s.speaker.X,
			SpeakerY: s.speaker.Y,
			Message:  message,
		},
	}, true
}

// StripDirectives removes every closed "[...]" group from text. An unclosed
// '[' is kept as it is.
func StripDirectives(text string) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		j := strings.IndexAny(text[i+1:], "[]")
		if j < 0 {
			break
		}
		if text[i+1+j] == '[' {
			i += j
			continue
		}
		b.WriteString(text[last:i])
		i += j + 1
		last = i + 1
	}
	b.WriteString(text[last:])
	return b.String()
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '．', '！', '？', '\n':
		return true
	}
	return false
}

func isPeriod(r rune) bool {
	return r == '.' || r == '．'
}

func isClauseSeparator(r rune) bool {
	return r == ',' || r == '、'
}

func isCloser(r rune) bool {
	switch r {
	case ')', ']', '}', '」', '』', '】', '）', '］', '｝', '〉', '》', '〕', '»', '›', '"', '\'', '”', '’':
		return true
	}
	return false
}

func isBracket(r rune) bool {
	switch r {
	case '[', '(', '{', '「', '［', '（', '【', '『', '〈', '《', '〔', '｛', '«', '‹', '〘', '〚',
		'〛', '〙', '›', '»', '〕', '》', '〉', '』', '】', '）', '］', '」', '}', ')', ']':
		return true
	}
	return false
}

func isUnspeakable(message string) bool {
	for _, r := range message {
		if !unicode.IsSpace(r) && !isBracket(r) {
			return false
		}
	}
	return true
}

func trimLeftSpace(buffer []rune) []rune {
	i := 0
	for i < len(buffer) && unicode.IsSpace(buffer[i]) {
		i++
	}
	return buffer[i:]
}
