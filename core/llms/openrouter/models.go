package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

type Model struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	ContextLength int          `json:"context_length"`
	Pricing       ModelPricing `json:"pricing"`
}

// ModelPricing is the price per token in USD, as reported by OpenRouter.
type ModelPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

type modelsResponse struct {
	Data []Model `json:"data"`
}

// Models lists the models available through OpenRouter.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	ctx, span := tracer.Start(ctx, "list models")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	if c.apiKey != "" {
		c.setHeaders(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, body)
		span.RecordError(err)
		return nil, err
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		err = fmt.Errorf("error decoding models: %w", err)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("response.models", len(models.Data)))

	return models.Data, nil
}
