package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Generation defaults.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 500
)

// fallbackAnswerPrompt is used when the prompt store is missing or returns
// a template that does not take the question and the clauses.
const fallbackAnswerPrompt = `Question: %s

Retrieved Clauses:
%s

Answer using only the clauses above. If they are insufficient, say so.

Answer:`

const fallbackSystemPrompt = "You are a policy analysis expert. Provide accurate, evidence-based answers citing specific clauses."

// SynthesizerConfig tunes answer generation.
type SynthesizerConfig struct {
	Temperature float64
	MaxTokens   int
	Retry       RetryPolicy
}

// Synthesizer produces a grounded answer from a question and retrieved chunks.
type Synthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     SynthesizerConfig
}

// NewSynthesizer creates a synthesizer. prompts may be nil.
func NewSynthesizer(llm driven.LLMService, prompts driven.PromptStore, cfg SynthesizerConfig) *Synthesizer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = NewRetryPolicy(domain.RetrySettings{})
	}
	return &Synthesizer{llm: llm, prompts: prompts, cfg: cfg}
}

// Synthesize answers question from chunks. With no chunks it returns
// domain.InsufficientInformationAnswer without calling the model.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	if len(chunks) == 0 {
		return domain.InsufficientInformationAnswer, nil
	}
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: s.systemPrompt()},
		{Role: driven.RoleUser, Content: fmt.Sprintf(s.answerPrompt(), question, BuildContext(chunks))},
	}
	opts := driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	var completion string
	err := s.cfg.Retry.Do(ctx, "generate answer", func(ctx context.Context) error {
		var cerr error
		completion, cerr = s.llm.Chat(ctx, messages, opts)
		return cerr
	})
	if err != nil {
		if isContextErr(err) || errors.Is(err, domain.ErrGenerationService) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationService, err)
	}

	answer := strings.TrimSpace(completion)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationService)
	}
	return answer, nil
}

// BuildContext renders chunks as "Section <id>: <text>" blocks separated by blank lines.
func BuildContext(chunks []domain.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("Section %s: %s", c.ChunkID, c.Text))
	}
	return strings.Join(parts, "\n\n")
}

func (s *Synthesizer) answerPrompt() string {
	if s.prompts == nil {
		return fallbackAnswerPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		logger.Warn("loading answer prompt: %v", err)
		return fallbackAnswerPrompt
	}
	if strings.Count(tmpl, "%s") != 2 || strings.Count(tmpl, "%") != 2 {
		logger.Warn("answer prompt must contain exactly two %%s placeholders, using built-in prompt")
		return fallbackAnswerPrompt
	}
	return tmpl
}

func (s *Synthesizer) systemPrompt() string {
	if s.prompts == nil {
		return fallbackSystemPrompt
	}
	p, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil || strings.TrimSpace(p) == "" {
		return fallbackSystemPrompt
	}
	return p
}
