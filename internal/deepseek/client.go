// Package deepseek implements the chat-completion client that turns one
// prompt pair into validated story stages. One network call per attempt;
// transient failures are retried with linear backoff, everything else is
// classified and surfaced immediately.
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/lifetale/internal/story"
)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"

	requestTimeout = 30 * time.Second
	maxRetries     = 3
	retryStep      = time.Second

	temperature = 0.7
	maxTokens   = 4000
)

// Message is one entry of the two-message request array.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body for POST /chat/completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// chatResponse mirrors the success envelope; only the nested message
// content is consumed.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client communicates with a DeepSeek-compatible completion endpoint.
// The credential is per-client; concurrent clients with different keys
// are independent.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client

	mu     sync.RWMutex
	apiKey string

	// sleep waits between retry attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client with the given API key against the default
// endpoint.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		apiKey:  apiKey,
		// Timeout is enforced per attempt via context.
		httpClient: &http.Client{},
		sleep:      waitFor,
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL
// (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// SetAPIKey replaces the credential at runtime.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

// HasAPIKey reports whether a non-empty credential is configured.
func (c *Client) HasAPIKey() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// Generate sends the prompt pair and returns the validated stages in the
// order the model emitted them, each stamped with the receipt time.
// Transient failures are retried up to three extra times with delays of
// 1s, 2s, and 3s before the attempt; all other failures return at once.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) ([]story.Stage, error) {
	key := c.key()
	if strings.TrimSpace(key) == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastTransient *TransientError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, time.Duration(attempt)*retryStep); err != nil {
				return nil, err
			}
		}

		stages, err := c.attempt(ctx, key, body)
		if err == nil {
			return stages, nil
		}

		var te *TransientError
		if !errors.As(err, &te) {
			return nil, err
		}
		lastTransient = te
	}

	lastTransient.Attempts = maxRetries + 1
	return nil, lastTransient
}

// TestConnection issues one minimal completion to verify the credential
// and endpoint. It makes a single attempt with no retries; the returned
// error carries the same classification Generate would produce.
func (c *Client) TestConnection(ctx context.Context) error {
	key := c.key()
	if strings.TrimSpace(key) == "" {
		return ErrNoAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: "Reply with the single word: ready"}},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	_, err = c.roundTrip(ctx, key, body)
	return err
}

// attempt performs exactly one network call and fully classifies its
// outcome.
func (c *Client) attempt(ctx context.Context, key string, body []byte) ([]story.Stage, error) {
	content, err := c.roundTrip(ctx, key, body)
	if err != nil {
		return nil, err
	}
	return decodeStages(content, time.Now())
}

// roundTrip sends one request and returns the message content of the
// first choice. A missing or empty content is an envelope defect, not a
// parse failure.
func (c *Client) roundTrip(ctx context.Context, key string, body []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The caller cancelled; do not reclassify as transient.
			return "", ctx.Err()
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", &TransientError{Timeout: true, Attempts: 1}
		}
		return "", &TransientError{Attempts: 1}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", &AuthError{}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RateLimitError{}
	case resp.StatusCode != http.StatusOK:
		return "", &APIError{Status: resp.StatusCode}
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", &EnvelopeError{}
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return "", &EnvelopeError{}
	}

	return envelope.Choices[0].Message.Content, nil
}

// decodeStages parses the model's message content, gates it through the
// schema validator, and stamps every stage with receivedAt. Model order
// is preserved; no implicit re-sorting.
func decodeStages(content string, receivedAt time.Time) ([]story.Stage, error) {
	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, &OutputError{}
	}
	if !validResponse(payload) {
		return nil, &OutputError{}
	}

	var parsed struct {
		Stages []struct {
			Age     float64 `json:"age"`
			Title   string  `json:"title"`
			Content string  `json:"content"`
		} `json:"stages"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &OutputError{}
	}

	stages := make([]story.Stage, len(parsed.Stages))
	for i, st := range parsed.Stages {
		stages[i] = story.Stage{
			Age:       int(st.Age),
			Title:     st.Title,
			Content:   st.Content,
			CreatedAt: receivedAt,
		}
	}
	return stages, nil
}

// waitFor blocks for d or until the context is done.
func waitFor(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
