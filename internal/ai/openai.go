package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/reorder"
)

// ChatCompleter is the subset of *openai.Client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI summarizes and orders blocks with a chat completion model. All calls
// share one rate limiter.
type OpenAI struct {
	client        ChatCompleter
	model         string
	summaryLength int
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// OpenAIConfig configures NewOpenAI.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	SummaryLength     int
}

// NewOpenAI builds a client from cfg.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return NewOpenAIWithClient(openai.NewClientWithConfig(oc), cfg, logger)
}

// NewOpenAIWithClient builds an OpenAI around an existing client.
func NewOpenAIWithClient(client ChatCompleter, cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.SummaryLength <= 0 {
		cfg.SummaryLength = 200
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	logger.Info("ai: openai client ready", slog.String("model", cfg.Model), slog.Int("rpm", cfg.RequestsPerMinute))
	return &OpenAI{
		client:        client,
		model:         cfg.Model,
		summaryLength: cfg.SummaryLength,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        logger,
	}
}

const (
	summarySystemPrompt = "You summarize fragments of a personal knowledge base. Reply with the summary only."
	reorderSystemPrompt = "You arrange fragments of a document into the best reading order. " +
		"Reply with a JSON array of fragment numbers only, each number exactly once."
)

// Summarize implements Summarizer.
func (o *OpenAI) Summarize(ctx context.Context, b models.Block) (string, error) {
	prompt := fmt.Sprintf("Summarize this %s in at most %d characters:\n\n%s", b.Type, o.summaryLength, b.Content)
	out, err := o.complete(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Score implements reorder.ScoreFunc.
func (o *OpenAI) Score(ctx context.Context, blocks []models.Block, opts reorder.Options) ([]int, error) {
	var sb strings.Builder
	if opts.Strategy != "" {
		fmt.Fprintf(&sb, "Strategy: %s\n", opts.Strategy)
	}
	if opts.Goal != "" {
		fmt.Fprintf(&sb, "Goal: %s\n", opts.Goal)
	}
	sb.WriteString("Fragments:\n")
	for i, b := range blocks {
		fmt.Fprintf(&sb, "[%d] (%s) %s\n", i, b.Type, strings.Join(strings.Fields(b.Content), " "))
	}
	out, err := o.complete(ctx, reorderSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}
	return parseOrder(out)
}

func (o *OpenAI) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ai: rate limit: %w", err)
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		o.logger.Error("ai: completion failed", slog.String("model", o.model), slog.String("error", err.Error()))
		return "", fmt.Errorf("ai: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: completion returned no choices")
	}
	o.logger.Debug("ai: completion", slog.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}

// parseOrder reads the first JSON array of integers in s.
func parseOrder(s string) ([]int, error) {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("ai: no order array in reply %q", s)
	}
	var order []int
	if err := json.Unmarshal([]byte(s[start:end+1]), &order); err != nil {
		return nil, fmt.Errorf("ai: decode order: %w", err)
	}
	return order, nil
}
