package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
)

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
	Style           *float64 `json:"style,omitempty"`
	UseSpeakerBoost *bool    `json:"use_speaker_boost,omitempty"`
}

// Synthesize converts text into a complete audio clip in the client's output
// format.
func (c *Client) Synthesize(ctx context.Context, text string, voice texttospeech.VoiceParameters) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	resp, err := c.post(ctx, "", text, voice)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	start := time.Now()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading audio: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("response.audio_bytes", len(audio)),
		attribute.Float64("response.read_time", time.Since(start).Seconds()),
	)
	logger.Debug("synthesized speech", "chars", len(text), "bytes", len(audio), "voice", voice.VoiceID)
	return audio, nil
}

// Stream is like Synthesize but uses the streaming endpoint and hands the
// audio body to the caller as it arrives. The caller must close it.
func (c *Client) Stream(ctx context.Context, text string, voice texttospeech.VoiceParameters) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "stream speech")
	defer span.End()

	resp, err := c.post(ctx, "/stream", text, voice)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, suffix string, text string, voice texttospeech.VoiceParameters) (*http.Response, error) {
	if !c.HasCredentials() {
		return nil, ErrNoCredentials
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	voice = voice.WithDefaults()

	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: voice.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       voice.Stability,
			SimilarityBoost: voice.SimilarityBoost,
			Style:           voice.Style,
			UseSpeakerBoost: voice.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	endpoint := c.baseURL + "/text-to-speech/" + url.PathEscape(voice.VoiceID) + suffix +
		"?output_format=" + url.QueryEscape(string(c.outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", c.outputFormat.MIMEType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return resp, nil
}
