package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

type Voice struct {
	VoiceID    string            `json:"voice_id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Labels     map[string]string `json:"labels"`
	PreviewURL string            `json:"preview_url"`
}

type Model struct {
	ModelID             string     `json:"model_id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	CanDoTextToSpeech   bool       `json:"can_do_text_to_speech"`
	MaxCharactersPerReq int        `json:"max_characters_request_free_user"`
	Languages           []Language `json:"languages"`
}

type Language struct {
	LanguageID string `json:"language_id"`
	Name       string `json:"name"`
}

// Voices lists the voices available to the account.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var response struct {
		Voices []Voice `json:"voices"`
	}
	if err := c.get(ctx, "list voices", "/voices", &response); err != nil {
		return nil, err
	}
	return response.Voices, nil
}

// Models lists the synthesis models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var models []Model
	if err := c.get(ctx, "list models", "/models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *Client) get(ctx context.Context, spanName, path string, out any) error {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	if !c.HasCredentials() {
		span.RecordError(ErrNoCredentials)
		return ErrNoCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := parseError(resp)
		span.RecordError(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = fmt.Errorf("error decoding response: %w", err)
		span.RecordError(err)
		return err
	}
	return nil
}
