package elevenlabs

import (
	"net/http"
	"strings"

	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// Client is an ElevenLabs text-to-speech client.
type Client struct {
	apiKey       string
	baseURL      string
	outputFormat texttospeech.OutputFormat
	httpClient   *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithOutputFormat selects the audio encoding, e.g. pcm_24000 for local
// playback. Defaults to mp3_44100_128.
func WithOutputFormat(format texttospeech.OutputFormat) ClientOption {
	return func(c *Client) {
		if format != "" {
			c.outputFormat = format
		}
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
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      defaultBaseURL,
		outputFormat: texttospeech.DefaultOutputFormat,
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

// HasCredentials reports whether an API key is configured. Without one no
// request is ever sent.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) OutputFormat() texttospeech.OutputFormat {
	return c.outputFormat
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("xi-api-key", c.apiKey)
}
