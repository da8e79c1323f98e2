// Package chat is the natural-language front end: it sends a manager's
// question plus a bounded summary of current aggregates to an OpenAI-style
// chat gateway and returns the model's answer.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/insights"
	"spa-insights-go/internal/logger"
)

const (
	httpTimeout  = 25 * time.Second
	maxRetryTime = 45 * time.Second
	// maxContextLen caps the aggregate summary injected into the prompt.
	maxContextLen = 4000
)

const systemPromptTemplate = `You are a business intelligence assistant for Feel Good Spas, a spa management company.
You help managers analyze customer service conversation data to make informed business decisions.

CONTEXT:
%s

RESPONSE GUIDELINES:
1. Be conversational but professional
2. Use specific data and numbers when available
3. Provide actionable insights and recommendations
4. Always ground your responses in the context above; do not invent numbers
`

// Answer is one chat turn's result.
type Answer struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}

// HTTPDoer lets tests fake the transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	cfg        config.LLMConfig
	httpClient HTTPDoer
}

func New(cfg config.LLMConfig, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpTimeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Ask sends the question with the aggregate context and returns the model
// answer. Mock mode returns a deterministic canned answer so the endpoint
// works offline.
func (c *Client) Ask(ctx context.Context, question, dataContext string) (Answer, error) {
	log := logger.New().WithComponent("chat")

	if len(dataContext) > maxContextLen {
		cut := maxContextLen
		for cut > 0 && !utf8.RuneStart(dataContext[cut]) {
			cut--
		}
		dataContext = dataContext[:cut]
	}

	if c.cfg.UseMock {
		log.Info("mock LLM mode ON - returning deterministic answer")
		headline := dataContext
		if lines := strings.SplitN(dataContext, "\n", 3); len(lines) > 1 {
			headline = lines[1]
		}
		return Answer{
			Response: fmt.Sprintf(
				"Based on the current data: %s\nYou asked: %q. Ask about locations, agents, sentiment, or topics for specifics.",
				headline, question),
			Suggestions: insights.DefaultSuggestions,
		}, nil
	}

	if c.cfg.GatewayURL == "" || c.cfg.APIKey == "" {
		return Answer{}, fmt.Errorf("llm gateway not configured")
	}

	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": fmt.Sprintf(systemPromptTemplate, dataContext)},
			{"role": "user", "content": question},
		},
		"temperature": 0.7,
		"max_tokens":  1000,
	}
	data, _ := json.Marshal(reqBody)

	var content string
	var lastErr error
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		log.WithField("http_status", resp.StatusCode).Debug("llm raw response received")

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			lastErr = fmt.Errorf("llm client error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return backoff.Permanent(lastErr)
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llm server error %d", resp.StatusCode)
			return lastErr
		}

		content, err = extractContent(body)
		if err != nil {
			lastErr = err
			return err
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxRetryTime
	if err := backoff.Retry(op, b); err != nil {
		return Answer{}, fmt.Errorf("chat request failed: %w", lastErr)
	}

	return Answer{Response: content, Suggestions: insights.DefaultSuggestions}, nil
}

func extractContent(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if parsed.Error.Message != "" {
		return "", fmt.Errorf("llm error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm returned empty content")
	}
	return content, nil
}
