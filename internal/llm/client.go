package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// SystemPrompt mandates the domain-term-preserving correction contract
// spec.md §4.G requires of every chunk request.
const SystemPrompt = `You are a grammar and spelling correction assistant for fantasy role-playing game chat logs.

Rules:
- Fix spelling mistakes.
- Correct grammar errors.
- Preserve every proper noun and fantasy term exactly as given.
- Do not add or remove sentences.
- Do not translate.
- Reply with only the corrected chunk, nothing else.`

// Client is a minimal OpenRouter chat-completions client. Grounded on
// the source implementation's openrouter::complete helper; no HTTP
// client library exists anywhere in the retrieved example pack, so
// this uses net/http directly like every other outbound-HTTP call in
// the corpus.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		Model:      model,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Correct submits a single chunk for correction, returning the
// model's reply verbatim (the caller strips markdown fencing). Errors
// are always an *Error with a Phase classifying the failure so
// WithRetry and the stage's fallback logic can react appropriately.
func (c *Client) Correct(ctx context.Context, chunk string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: chunk},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", &Error{Phase: PhaseNetwork, Cause: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterURL, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Phase: PhaseNetwork, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", &Error{Phase: PhaseTimeout, Cause: ctx.Err()}
		}
		return "", &Error{Phase: PhaseNetwork, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Phase: PhaseNetwork, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &Error{Phase: PhaseAuth, Cause: fmt.Errorf("openrouter: %s", resp.Status)}
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return "", &Error{Phase: PhaseTimeout, Cause: fmt.Errorf("openrouter: %s", resp.Status)}
	case resp.StatusCode >= 500:
		return "", &Error{Phase: PhaseServer, Cause: fmt.Errorf("openrouter: %s", resp.Status)}
	case resp.StatusCode >= 400:
		return "", &Error{Phase: PhaseNetwork, Cause: fmt.Errorf("openrouter: %s: %s", resp.Status, string(raw))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Phase: PhaseServer, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &Error{Phase: PhaseServer, Cause: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Phase: PhaseServer, Cause: errors.New("openrouter: empty choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}
