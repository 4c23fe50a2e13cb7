package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poextract/poextract/internal/entity"
	"github.com/poextract/poextract/internal/llm"
)

// Extract implements llm.Extractor over chat/completions with structured
// output. Each call gets its own timeout scaled to the prompt size and is
// retried per the configured policy; auth failures are never retried.
func (c *Client) Extract(ctx context.Context, req llm.Request) (llm.Reply, error) {
	rid := uuid.New().String()
	start := time.Now()
	promptChars := req.PromptChars()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_chars", promptChars,
		"messages", len(req.Messages),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        requestMessages(req),
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	budget := c.callBudget(promptChars)

	reply, err := llm.DoWithRetry(ctx, c.logger, c.cfg.Retry, func(ctx context.Context) (llm.Reply, error) {
		callCtx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()
		return c.call(callCtx, endpoint, body)
	})
	if err != nil {
		c.logger.Error("llm.extract.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Reply{}, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"reply_chars", len(reply.Content),
		"prompt_tokens", reply.Usage.PromptTokens,
		"completion_tokens", reply.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// callBudget scales the base timeout with prompt size: +1s per 8KiB, capped at 4x.
func (c *Client) callBudget(promptChars int) time.Duration {
	budget := c.cfg.Timeout + time.Duration(promptChars/8192)*time.Second
	if limit := 4 * c.cfg.Timeout; budget > limit {
		budget = limit
	}
	return budget
}

func (c *Client) call(ctx context.Context, url string, body map[string]any) (llm.Reply, error) {
	raw, err := c.post(ctx, url, body)
	if err != nil {
		return llm.Reply{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.Reply{}, fmt.Errorf("%w: decode response: %v", llm.ErrServer, err)
	}
	if len(cc.Choices) == 0 {
		return llm.Reply{}, fmt.Errorf("%w: no choices in response", llm.ErrServer)
	}
	return llm.Reply{
		Content: strings.TrimSpace(cc.Choices[0].Message.Content),
		Usage: entity.TokenUsage{
			PromptTokens:     cc.Usage.PromptTokens,
			CompletionTokens: cc.Usage.CompletionTokens,
			TotalTokens:      cc.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llm.ClassifyTransport(err)
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.logger.Warn("llm.http.body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, llm.ClassifyStatus(resp.StatusCode, truncate(string(raw), 512))
	}
	return raw, nil
}

func requestMessages(req llm.Request) []map[string]any {
	msgs := make([]map[string]any, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]any{"role": m.Role, "content": m.Content})
	}
	if req.Schema != nil {
		msgs = append(msgs, map[string]any{
			"role":    "system",
			"content": "JSON Schema (" + req.SchemaName + "):\n" + mustJSON(req.Schema),
		})
	}
	return msgs
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
