package screenplay

import (
	"strings"
	"testing"
	"unicode"
)

func feedAll(s *Segmenter, deltas ...string) []Screenplay {
	var screenplays []Screenplay
	for _, delta := range deltas {
		screenplays = append(screenplays, s.Feed(delta)...)
	}
	return append(screenplays, s.Flush()...)
}

func messages(screenplays []Screenplay) []string {
	out := make([]string, 0, len(screenplays))
	for _, sp := range screenplays {
		out = append(out, sp.Talk.Message)
	}
	return out
}

func withoutSpace(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

func TestSegmenterSwitchesExpressionOnDirectives(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "[happy]Hello there.[sad]I am sorry.")

	if len(screenplays) != 2 {
		t.Fatalf("expected 2 screenplays, got %d: %+v", len(screenplays), screenplays)
	}
	if got := screenplays[0]; got.Expression != EmotionHappy || got.Talk.Message != "Hello there." {
		t.Fatalf("expected happy %q, got %s %q", "Hello there.", got.Expression, got.Talk.Message)
	}
	if got := screenplays[1]; got.Expression != EmotionSad || got.Talk.Message != "I am sorry." {
		t.Fatalf("expected sad %q, got %s %q", "I am sorry.", got.Expression, got.Talk.Message)
	}
	if screenplays[0].Talk.Style != TalkStyleHappy || screenplays[1].Talk.Style != TalkStyleSad {
		t.Fatalf("expected talk styles to follow expressions, got %q and %q", screenplays[0].Talk.Style, screenplays[1].Talk.Style)
	}
}

func TestSegmenterEmitsLongClauseBeforeRemainderArrives(t *testing.T) {
	s := NewSegmenter()

	early := s.Feed("This is fine,")
	if len(early) != 1 {
		t.Fatalf("expected the clause to be emitted on the comma, got %d screenplays", len(early))
	}
	if got := early[0].Talk.Message; got != "This is fine," {
		t.Fatalf("expected message %q, got %q", "This is fine,", got)
	}

	rest := s.Feed(" really!")
	if len(rest) != 1 || rest[0].Talk.Message != "really!" {
		t.Fatalf("expected %q as soon as it ends, got %+v", "really!", rest)
	}
	if left := s.Flush(); len(left) != 0 {
		t.Fatalf("expected nothing left on flush, got %+v", left)
	}
}

func TestSegmenterEmitsCompleteSentenceImmediately(t *testing.T) {
	for _, input := range []string{"Hello there!", "Are you there?", "Line one\n", "元気です！"} {
		got := NewSegmenter().Feed(input)
		if len(got) != 1 {
			t.Fatalf("expected %q to be emitted without waiting, got %+v", input, got)
		}
	}
}

func TestSegmenterWaitsOnTrailingPeriod(t *testing.T) {
	s := NewSegmenter()

	if got := s.Feed("Hello there."); len(got) != 0 {
		t.Fatalf("expected a trailing period to wait for a possible ellipsis, got %+v", got)
	}
	got := s.Feed(" How are you?")
	if len(got) != 2 || got[0].Talk.Message != "Hello there." || got[1].Talk.Message != "How are you?" {
		t.Fatalf("expected both sentences once more text arrived, got %+v", got)
	}
}

func TestSegmenterHoldsShortClause(t *testing.T) {
	s := NewSegmenter()

	if got := s.Feed("Well, "); len(got) != 0 {
		t.Fatalf("expected short clause to be held, got %+v", got)
	}
	got := s.Feed("that is that. ")
	if len(got) != 1 || got[0].Talk.Message != "Well, that is that." {
		t.Fatalf("expected one combined sentence, got %+v", got)
	}
}

func TestSegmenterUnknownDirectiveKeepsActiveTag(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "[unknown]Test.")
	if len(screenplays) != 1 {
		t.Fatalf("expected 1 screenplay, got %d", len(screenplays))
	}
	if got := screenplays[0].Expression; got != EmotionNeutral {
		t.Fatalf("expected %q, got %q", EmotionNeutral, got)
	}

	screenplays = feedAll(NewSegmenter(), "[relaxed]Ahh. [waves]Hi there.")
	if len(screenplays) != 2 {
		t.Fatalf("expected 2 screenplays, got %d", len(screenplays))
	}
	if got := screenplays[1].Expression; got != EmotionRelaxed {
		t.Fatalf("expected unknown directive to keep %q, got %q", EmotionRelaxed, got)
	}
	if got := screenplays[1].Talk.Message; got != "Hi there." {
		t.Fatalf("expected directive to be stripped, got %q", got)
	}
}

func TestSegmenterDirectiveSplitAcrossDeltas(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "[ha", "ppy", "] Great", " news!", " [Sad]", "Bad news.")

	if len(screenplays) != 2 {
		t.Fatalf("expected 2 screenplays, got %d: %+v", len(screenplays), screenplays)
	}
	if screenplays[0].Expression != EmotionHappy || screenplays[0].Talk.Message != "Great news!" {
		t.Fatalf("unexpected first screenplay: %+v", screenplays[0])
	}
	if screenplays[1].Expression != EmotionSad || screenplays[1].Talk.Message != "Bad news." {
		t.Fatalf("unexpected second screenplay: %+v", screenplays[1])
	}
}

func TestSegmenterRecognizedDirectiveEndsUnit(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "I was worried [happy]but it worked out.")

	if got := messages(screenplays); len(got) != 2 || got[0] != "I was worried" || got[1] != "but it worked out." {
		t.Fatalf("expected the directive to split the text, got %q", got)
	}
	if screenplays[0].Expression != EmotionNeutral || screenplays[1].Expression != EmotionHappy {
		t.Fatalf("expected neutral then happy, got %s then %s", screenplays[0].Expression, screenplays[1].Expression)
	}
}

func TestSegmenterDiscardsUnspeakableUnits(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "[happy]\n\n[sad]「」\nOkay.")

	if len(screenplays) != 1 {
		t.Fatalf("expected only the spoken unit, got %+v", screenplays)
	}
	if screenplays[0].Talk.Message != "Okay." || screenplays[0].Expression != EmotionSad {
		t.Fatalf("unexpected screenplay: %+v", screenplays[0])
	}
}

func TestSegmenterCJKPunctuation(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "[happy]こんにちは。元気ですか？")

	if got := messages(screenplays); len(got) != 2 || got[0] != "こんにちは。" || got[1] != "元気ですか？" {
		t.Fatalf("expected two CJK sentences, got %q", got)
	}
}

func TestSegmenterKeepsEllipsisTogether(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "Hmm.", "..", " Maybe.")

	if got := messages(screenplays); len(got) != 2 || got[0] != "Hmm..." || got[1] != "Maybe." {
		t.Fatalf("expected ellipsis to stay with its sentence, got %q", got)
	}
}

func TestSegmenterUnclosedBracketIsLiteral(t *testing.T) {
	screenplays := feedAll(NewSegmenter(), "[oops. Fine.")

	if got := messages(screenplays); len(got) != 2 || got[0] != "[oops." || got[1] != "Fine." {
		t.Fatalf("expected unclosed bracket to be spoken as text, got %q", got)
	}
}

func TestSegmenterCopiesSpeaker(t *testing.T) {
	speaker := Speaker{X: 1.5, Y: -2}
	screenplays := feedAll(NewSegmenter(WithSpeaker(speaker)), "Hi.")

	if len(screenplays) != 1 {
		t.Fatalf("expected 1 screenplay, got %d", len(screenplays))
	}
	if got := screenplays[0].Talk; got.SpeakerX != speaker.X || got.SpeakerY != speaker.Y {
		t.Fatalf("expected speaker %+v, got %v/%v", speaker, got.SpeakerX, got.SpeakerY)
	}
}

func TestSegmenterFlushResetsState(t *testing.T) {
	s := NewSegmenter()
	feedAll(s, "[angry]No.")

	if got := s.ActiveTag(); got != EmotionNeutral {
		t.Fatalf("expected active tag to reset to %q, got %q", EmotionNeutral, got)
	}
	if got := s.Pending(); got != "" {
		t.Fatalf("expected empty buffer after flush, got %q", got)
	}
}

func TestSegmenterIsLosslessModuloDirectives(t *testing.T) {
	inputs := []string{
		"[happy]Hello there.[sad]I am sorry.",
		"This is fine, really. Truly, honestly, and completely fine!",
		"[relaxed] Let me think... okay.\nNext line? Yes! [angry]Stop, please, right now.",
		"No punctuation at all",
		"[neutral]Numbers like 3.14 are fine, aren't they? [waves] Sure.",
		"日本語の文章です。[happy]楽しいですね、本当に楽しいです！",
	}

	for _, input := range inputs {
		want := withoutSpace(StripDirectives(input))

		whole := strings.Join(messages(feedAll(NewSegmenter(), input)), "")
		if got := withoutSpace(whole); got != want {
			t.Fatalf("single feed: expected %q, got %q", want, got)
		}

		var deltas []string
		for _, r := range input {
			deltas = append(deltas, string(r))
		}
		byRune := strings.Join(messages(feedAll(NewSegmenter(), deltas...)), "")
		if got := withoutSpace(byRune); got != want {
			t.Fatalf("rune by rune: expected %q, got %q", want, got)
		}
	}
}

func TestSegmenterRuneByRuneMatchesSingleFeed(t *testing.T) {
	input := "[happy]First sentence here. Second one is longer, with a clause. [sad]Third."

	whole := feedAll(NewSegmenter(), input)

	s := NewSegmenter()
	var byRune []Screenplay
	for _, r := range input {
		byRune = append(byRune, s.Feed(string(r))...)
	}
	byRune = append(byRune, s.Flush()...)

	if len(whole) != len(byRune) {
		t.Fatalf("expected %d screenplays, got %d", len(whole), len(byRune))
	}
	for i := range whole {
		if whole[i] != byRune[i] {
			t.Fatalf("screenplay %d differs: %+v vs %+v", i, whole[i], byRune[i])
		}
	}
}

func TestStripDirectives(t *testing.T) {
	cases := map[string]string{
		"[happy]Hi":       "Hi",
		"a[b]c[d]e":       "ace",
		"[a[b]":           "[a",
		"no tags":         "no tags",
		"open [bracket":   "open [bracket",
		"[x] [y] spaced ": "  spaced ",
	}
	for input, want := range cases {
		if got := StripDirectives(input); got != want {
			t.Fatalf("StripDirectives(%q): expected %q, got %q", input, want, got)
		}
	}
}

func TestParseEmotionTag(t *testing.T) {
	if tag, ok := ParseEmotionTag(" Happy "); !ok || tag != EmotionHappy {
		t.Fatalf("expected happy, got %q (%v)", tag, ok)
	}
	if _, ok := ParseEmotionTag("pleased"); ok {
		t.Fatalf("expected pleased to be rejected")
	}
	if got := EmotionRelaxed.TalkStyle(); got != TalkStyleTalk {
		t.Fatalf("expected relaxed to map to %q, got %q", TalkStyleTalk, got)
	}
}
