package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/reorder"
)

type fakeChat struct {
	reply string
	err   error
	reqs  []openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}},
	}}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTruncate(t *testing.T) {
	s, err := Truncate{MaxRunes: 10}.Summarize(context.Background(), models.Block{Content: "one two\nthree four five"})
	require.NoError(t, err)
	assert.Equal(t, "one two th...", s)

	s, _ = Truncate{}.Summarize(context.Background(), models.Block{Content: "short"})
	assert.Equal(t, "short", s)
}

func TestOpenAI_Summarize(t *testing.T) {
	chat := &fakeChat{reply: "  A tidy summary. \n"}
	o := NewOpenAIWithClient(chat, OpenAIConfig{Model: "test-model", SummaryLength: 80}, discard())
	s, err := o.Summarize(context.Background(), models.Block{Type: models.TypeInsight, Content: "long insight text"})
	require.NoError(t, err)
	assert.Equal(t, "A tidy summary.", s)

	require.Len(t, chat.reqs, 1)
	assert.Equal(t, "test-model", chat.reqs[0].Model)
	assert.Contains(t, chat.reqs[0].Messages[1].Content, "at most 80 characters")
	assert.Contains(t, chat.reqs[0].Messages[1].Content, "long insight text")
}

func TestOpenAI_ScoreFeedsAdvisor(t *testing.T) {
	chat := &fakeChat{reply: "Here you go: [1, 0]"}
	o := NewOpenAIWithClient(chat, OpenAIConfig{}, discard())
	blocks := []models.Block{
		{ID: "a", Reorderable: true, Content: "conclusion"},
		{ID: "fixed", Content: "heading"},
		{ID: "b", Reorderable: true, Content: "premise"},
	}
	got, err := reorder.NewAdvisor(o.Score).Suggest(context.Background(), blocks, reorder.Options{Strategy: "logical"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, got)
	assert.True(t, strings.Contains(chat.reqs[0].Messages[1].Content, "Strategy: logical"))
}

func TestOpenAI_Errors(t *testing.T) {
	o := NewOpenAIWithClient(&fakeChat{err: errors.New("429")}, OpenAIConfig{}, discard())
	_, err := o.Summarize(context.Background(), models.Block{Content: "x"})
	assert.ErrorContains(t, err, "429")

	o = NewOpenAIWithClient(&fakeChat{reply: "no idea"}, OpenAIConfig{}, discard())
	_, err = o.Score(context.Background(), []models.Block{{}, {}}, reorder.Options{})
	assert.Error(t, err)
}

func TestOpenAI_RateLimitHonoursContext(t *testing.T) {
	o := NewOpenAIWithClient(&fakeChat{reply: "ok"}, OpenAIConfig{RequestsPerMinute: 1}, discard())
	ctx := context.Background()
	_, err := o.Summarize(ctx, models.Block{Content: "first"})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = o.Summarize(cancelled, models.Block{Content: "second"})
	assert.ErrorContains(t, err, "rate limit")
}

func TestParseOrder(t *testing.T) {
	got, err := parseOrder("```json\n[2,0,1]\n```")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, got)

	_, err = parseOrder("[a, b]")
	assert.Error(t, err)
}
