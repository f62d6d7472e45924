package openrouter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-avatar/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"

	chatCompletionsPath = "/chat/completions"
	modelsPath          = "/models"

	DefaultModel       = "anthropic/claude-3.5-sonnet:beta"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 200
)

var ErrMissingAPIKey = errors.New("openrouter api key is not set")

// Client talks to the OpenRouter chat completions API.
type Client struct {
	apiKey  string
	model   string
	baseURL string

	// siteURL and siteName are sent as HTTP-Referer and X-Title so the app
	// shows up in OpenRouter rankings.
	siteURL  string
	siteName string

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithSite(url, name string) ClientOption {
	return func(c *Client) {
		c.siteURL = url
		c.siteName = name
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   DefaultModel,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string {
	return c.model
}

// PromptWithStream prepares a streaming chat completion. The request is only
// sent once the returned stream is iterated.
func (c *Client) PromptWithStream(_ context.Context, prompt *string, opts ...llms.StreamingPromptOption) llms.Stream {
	options := llms.StreamingPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToStreaming(&options)
	}

	messages := toMessages(options.Instructions, options.Messages)
	if prompt != nil {
		messages = append(messages, message{
			Role:    string(llms.MessageRoleUser),
			Content: *prompt,
		})
	}

	temperature := DefaultTemperature
	if options.Temperature != nil {
		temperature = *options.Temperature
	}
	maxTokens := DefaultMaxTokens
	if options.MaxTokens != nil {
		maxTokens = *options.MaxTokens
	}

	return &Stream{
		client:            c,
		model:             c.model,
		messages:          messages,
		temperature:       temperature,
		maxTokens:         maxTokens,
		hideActionPrompts: options.HideActionPrompts,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}
