package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var dentalChunks = []domain.RetrievedChunk{
	{ChunkID: "section_0", Text: "1. Coverage includes dental.", Score: 1, Rank: 1},
	{ChunkID: "section_1", Text: "2. Coverage excludes cosmetic surgery.", Score: 0.4, Rank: 2},
}

func testPrompts() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptAnswer:       "Q: %s\nC:\n%s\nA:",
		driven.PromptAnswerSystem: "You are a policy analysis expert.",
	}}
}

func TestSynthesizer_NoChunksSkipsModel(t *testing.T) {
	llm := &mockLLM{}
	s := NewSynthesizer(llm, testPrompts(), SynthesizerConfig{})

	answer, err := s.Synthesize(context.Background(), "Is travel insurance included?", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.InsufficientInformationAnswer, answer)
	assert.Zero(t, llm.calls.Load())
}

func TestSynthesizer_BuildsPromptFromChunks(t *testing.T) {
	llm := &mockLLM{}
	s := NewSynthesizer(llm, testPrompts(), SynthesizerConfig{Temperature: 0.1, MaxTokens: 500})

	_, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)
	require.NoError(t, err)

	messages := llm.lastMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, driven.RoleSystem, messages[0].Role)
	assert.Equal(t, "You are a policy analysis expert.", messages[0].Content)
	assert.Equal(t, driven.RoleUser, messages[1].Role)
	assert.Equal(t,
		"Q: Is dental covered?\nC:\n"+
			"Section section_0: 1. Coverage includes dental.\n\n"+
			"Section section_1: 2. Coverage excludes cosmetic surgery.\nA:",
		messages[1].Content)

	require.Len(t, llm.opts, 1)
	assert.InDelta(t, 0.1, llm.opts[0].Temperature, 1e-9)
	assert.Equal(t, 500, llm.opts[0].MaxTokens)
}

func TestSynthesizer_TrimsAnswer(t *testing.T) {
	llm := &mockLLM{reply: func(context.Context, []driven.ChatMessage) (string, error) {
		return "\n  Yes, dental is covered (Section section_0).  \n", nil
	}}
	s := NewSynthesizer(llm, testPrompts(), SynthesizerConfig{})

	answer, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)

	require.NoError(t, err)
	assert.Equal(t, "Yes, dental is covered (Section section_0).", answer)
}

func TestSynthesizer_EmptyCompletionIsError(t *testing.T) {
	llm := &mockLLM{reply: func(context.Context, []driven.ChatMessage) (string, error) {
		return "   ", nil
	}}
	s := NewSynthesizer(llm, testPrompts(), SynthesizerConfig{Retry: NoRetry()})

	_, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
}

func TestSynthesizer_ModelErrorWrapped(t *testing.T) {
	llm := &mockLLM{reply: func(context.Context, []driven.ChatMessage) (string, error) {
		return "", errors.New("500 internal server error")
	}}
	s := NewSynthesizer(llm, testPrompts(), SynthesizerConfig{Retry: fastRetry()})

	_, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
	assert.Contains(t, err.Error(), "500 internal server error")
	assert.Equal(t, int32(3), llm.calls.Load())
}

func TestSynthesizer_RetriesTransientFailure(t *testing.T) {
	llm := &mockLLM{}
	llm.reply = func(context.Context, []driven.ChatMessage) (string, error) {
		if llm.calls.Load() == 1 {
			return "", errors.New("429 too many requests")
		}
		return "Yes.", nil
	}
	s := NewSynthesizer(llm, testPrompts(), SynthesizerConfig{Retry: fastRetry()})

	answer, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)

	require.NoError(t, err)
	assert.Equal(t, "Yes.", answer)
	assert.Equal(t, int32(2), llm.calls.Load())
}

func TestSynthesizer_FallsBackOnBadTemplate(t *testing.T) {
	tests := []struct {
		name    string
		prompts driven.PromptStore
	}{
		{"nil store", nil},
		{"load error", &mockPromptStore{err: errors.New("permission denied")}},
		{"one placeholder", &mockPromptStore{prompts: map[string]string{
			driven.PromptAnswer: "Question only: %s",
		}}},
		{"stray verb", &mockPromptStore{prompts: map[string]string{
			driven.PromptAnswer: "%s %s %d",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{}
			s := NewSynthesizer(llm, tt.prompts, SynthesizerConfig{})

			_, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)
			require.NoError(t, err)

			messages := llm.lastMessages()
			require.Len(t, messages, 2)
			assert.Equal(t, fallbackSystemPrompt, messages[0].Content)
			assert.Contains(t, messages[1].Content, "Question: Is dental covered?")
			assert.Contains(t, messages[1].Content, "Section section_0: 1. Coverage includes dental.")
		})
	}
}

func TestSynthesizer_NoLLM(t *testing.T) {
	s := NewSynthesizer(nil, nil, SynthesizerConfig{})

	_, err := s.Synthesize(context.Background(), "Is dental covered?", dentalChunks)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestBuildContext(t *testing.T) {
	assert.Empty(t, BuildContext(nil))
	assert.Equal(t, "Section a: x", BuildContext([]domain.RetrievedChunk{{ChunkID: "a", Text: "x"}}))
}
