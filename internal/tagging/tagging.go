// Package tagging enriches products with category tags. Services here are
// failure-safe by contract: Categorize never returns an error, it returns no
// tags instead. A run must never fail because tagging was unavailable.
package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

const maxTagLength = 20

// Service categorizes one product.
type Service interface {
	Categorize(ctx context.Context, p models.Product) []string
}

// NoOp intentionally returns no tags. Used when no LLM key is configured.
type NoOp struct{}

func (NoOp) Categorize(ctx context.Context, p models.Product) []string { return nil }

// LLMService calls an OpenAI-compatible chat-completions endpoint. The
// response must be exactly {"tags": [...]}; anything else yields no tags.
type LLMService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type LLMOptions struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func NewLLMService(apiKey string, opts LLMOptions) *LLMService {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &LLMService{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		model:   opts.Model,
		client:  client,
		logger:  slog.Default().With("component", "tagging"),
	}
}

// FromConfig picks the LLM service when a key is present, NoOp otherwise.
func FromConfig(apiKey string, opts LLMOptions) Service {
	if strings.TrimSpace(apiKey) == "" {
		return NoOp{}
	}
	return NewLLMService(apiKey, opts)
}

func (s *LLMService) Categorize(ctx context.Context, p models.Product) []string {
	tags, err := s.call(ctx, p)
	if err != nil {
		s.logger.Warn("tagging failed, continuing without tags", "product", p.Name, "error", err)
		return nil
	}
	return tags
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature int           `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *LLMService) call(ctx context.Context, p models.Product) ([]string, error) {
	prompt := `Return JSON exactly in this schema: {"tags": [string, ...]}. ` +
		"Use concise lowercase category tags for this product text: " + p.SearchableText()
	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, nil
	}
	return parseTags(parsed.Choices[0].Message.Content), nil
}

// parseTags validates the model output strictly: a JSON object whose only
// key is "tags".
func parseTags(content string) []string {
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil
	}
	raw, ok := data["tags"]
	if !ok || len(data) != 1 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return cleanTags(tags)
}

func cleanTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || len(t) > maxTagLength || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
