// Package remote talks to the chat-completion, transcription and speech-synthesis collaborators.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/zhouzirui/z-tavern/portal/internal/config"
	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
)

// maxResponseSize bounds how much of a collaborator body is read into memory.
const maxResponseSize = 32 << 20

// codec 与 encoding/json 行为一致
var codec = sonic.ConfigStd

// Client issues the three collaborator calls. It never retries.
type Client struct {
	httpClient    *http.Client
	chatURL       string
	transcribeURL string
	speechURL     string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a client for the endpoints described by cfg.
func NewClient(cfg config.RemoteConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		chatURL:       cfg.ChatURL(),
		transcribeURL: cfg.TranscribeURL(),
		speechURL:     cfg.SpeechURL(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

// decodeErrorMessage extracts the {error} field of a failure body, if any.
func decodeErrorMessage(body []byte) string {
	var payload speech.ErrorResponse
	if err := codec.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
