// Package screenplay turns streamed assistant text into emotion-tagged
// utterance units that can be voiced and acted out one at a time.
package screenplay

import "strings"

// EmotionTag is the facial expression the avatar should show while speaking
// an utterance.
type EmotionTag string

const (
	EmotionNeutral EmotionTag = "neutral"
	EmotionHappy   EmotionTag = "happy"
	EmotionAngry   EmotionTag = "angry"
	EmotionSad     EmotionTag = "sad"
	EmotionRelaxed EmotionTag = "relaxed"
)

// EmotionTags lists every recognized expression in prompt order.
func EmotionTags() []EmotionTag {
	return []EmotionTag{EmotionNeutral, EmotionHappy, EmotionAngry, EmotionSad, EmotionRelaxed}
}

func (e EmotionTag) IsValid() bool {
	switch e {
	case EmotionNeutral, EmotionHappy, EmotionAngry, EmotionSad, EmotionRelaxed:
		return true
	}
	return false
}

// TalkStyle maps the expression onto the speech style used for synthesis.
func (e EmotionTag) TalkStyle() TalkStyle {
	switch e {
	case EmotionAngry:
		return TalkStyleAngry
	case EmotionHappy:
		return TalkStyleHappy
	case EmotionSad:
		return TalkStyleSad
	default:
		return TalkStyleTalk
	}
}

// ParseEmotionTag resolves a directive label such as "Happy " into a
// recognized tag. The second return value is false for unknown labels.
func ParseEmotionTag(label string) (EmotionTag, bool) {
	tag := EmotionTag(strings.ToLower(strings.TrimSpace(label)))
	if !tag.IsValid() {
		return "", false
	}
	return tag, true
}

type TalkStyle string

const (
	TalkStyleTalk      TalkStyle = "talk"
	TalkStyleHappy     TalkStyle = "happy"
	TalkStyleSad       TalkStyle = "sad"
	TalkStyleAngry     TalkStyle = "angry"
	TalkStyleFear      TalkStyle = "fear"
	TalkStyleSurprised TalkStyle = "surprised"
)

type Talk struct {
	Style    TalkStyle `json:"style"`
	SpeakerX float64   `json:"speakerX"`
	SpeakerY float64   `json:"speakerY"`
	// Message is the spoken text with all directive markup removed. It is
	// never empty.
	Message string `json:"message"`
}

// Screenplay is a single utterance together with the expression that should
// accompany it.
type Screenplay struct {
	Expression EmotionTag `json:"expression"`
	Talk       Talk       `json:"talk"`
}

// Speaker holds the per-utterance speaker coordinates copied into every
// emitted Talk.
type Speaker struct {
	X float64
	Y float64
}

// DefaultSpeaker is the neutral point of the speaker style space.
var DefaultSpeaker = Speaker{X: 3, Y: 3}
