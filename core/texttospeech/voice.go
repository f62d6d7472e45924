// Package texttospeech holds the provider independent description of how
// utterances should be voiced.
package texttospeech

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koscakluka/ema-avatar/core/audio"
)

const (
	// DefaultVoiceID is the ElevenLabs "Rachel" voice.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModelID = "eleven_multilingual_v2"

	DefaultStability       = 0.5
	DefaultSimilarityBoost = 0.75
)

// VoiceParameters describes the voice used for every utterance of a
// scheduling session. Nil fields are left to the provider default.
type VoiceParameters struct {
	VoiceID         string   `json:"voiceId" mapstructure:"voice_id"`
	ModelID         string   `json:"modelId,omitempty" mapstructure:"model_id"`
	Stability       *float64 `json:"stability,omitempty" mapstructure:"stability"`
	SimilarityBoost *float64 `json:"similarityBoost,omitempty" mapstructure:"similarity_boost"`
	Style           *float64 `json:"style,omitempty" mapstructure:"style"`
	SpeakerBoost    *bool    `json:"speakerBoost,omitempty" mapstructure:"speaker_boost"`
}

func DefaultVoiceParameters() VoiceParameters {
	stability := DefaultStability
	similarityBoost := DefaultSimilarityBoost
	return VoiceParameters{
		VoiceID:         DefaultVoiceID,
		ModelID:         DefaultModelID,
		Stability:       &stability,
		SimilarityBoost: &similarityBoost,
	}
}

// WithDefaults fills the voice and model IDs when they are missing.
func (v VoiceParameters) WithDefaults() VoiceParameters {
	if strings.TrimSpace(v.VoiceID) == "" {
		v.VoiceID = DefaultVoiceID
	}
	if strings.TrimSpace(v.ModelID) == "" {
		v.ModelID = DefaultModelID
	}
	return v
}

// Fingerprint is a stable textual form of the parameters, suitable as part of
// a cache key.
func (v VoiceParameters) Fingerprint() string {
	v = v.WithDefaults()
	parts := []string{v.VoiceID, v.ModelID, floatOrDash(v.Stability), floatOrDash(v.SimilarityBoost), floatOrDash(v.Style)}
	if v.SpeakerBoost == nil {
		parts = append(parts, "-")
	} else {
		parts = append(parts, strconv.FormatBool(*v.SpeakerBoost))
	}
	return strings.Join(parts, "|")
}

// Validate checks that the tuning values are within the 0 to 1 range the
// provider accepts.
func (v VoiceParameters) Validate() error {
	for name, value := range map[string]*float64{
		"stability":        v.Stability,
		"similarity boost": v.SimilarityBoost,
		"style":            v.Style,
	} {
		if value != nil && (*value < 0 || *value > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, *value)
		}
	}
	return nil
}

func floatOrDash(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// OutputFormat is the audio encoding requested from the synthesis service.
type OutputFormat string

const (
	OutputFormatMP3      OutputFormat = "mp3_44100_128"
	OutputFormatPCM16000 OutputFormat = "pcm_16000"
	OutputFormatPCM24000 OutputFormat = "pcm_24000"
	OutputFormatPCM44100 OutputFormat = "pcm_44100"

	DefaultOutputFormat = OutputFormatMP3
)

// EncodingInfo returns the raw PCM layout of the format. The second return
// value is false for compressed formats.
func (f OutputFormat) EncodingInfo() (audio.EncodingInfo, bool) {
	rate, ok := strings.CutPrefix(string(f), "pcm_")
	if !ok {
		return audio.EncodingInfo{}, false
	}
	sampleRate, err := strconv.Atoi(rate)
	if err != nil || sampleRate <= 0 {
		return audio.EncodingInfo{}, false
	}
	return audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16}, true
}

func (f OutputFormat) MIMEType() string {
	switch {
	case strings.HasPrefix(string(f), "mp3_"):
		return "audio/mpeg"
	case strings.HasPrefix(string(f), "pcm_"):
		return "audio/pcm"
	case strings.HasPrefix(string(f), "ulaw_"):
		return "audio/basic"
	}
	return "application/octet-stream"
}
