package ratelimit

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.LLMService       = (*LLMService)(nil)
)

// EmbeddingService throttles an embedding service.
type EmbeddingService struct {
	next    driven.EmbeddingService
	limiter *Limiter
}

// NewEmbeddingService wraps next with limiter.
func NewEmbeddingService(next driven.EmbeddingService, limiter *Limiter) *EmbeddingService {
	return &EmbeddingService{next: next, limiter: limiter}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.next.Embed(ctx, text)
	s.limiter.Observe(err)
	return v, err
}

func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.next.EmbedBatch(ctx, texts)
	s.limiter.Observe(err)
	return v, err
}

func (s *EmbeddingService) Dimensions() int                { return s.next.Dimensions() }
func (s *EmbeddingService) ModelName() string              { return s.next.ModelName() }
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }
func (s *EmbeddingService) Close() error                   { return s.next.Close() }

// LLMService throttles an LLM service.
type LLMService struct {
	next    driven.LLMService
	limiter *Limiter
}

// NewLLMService wraps next with limiter.
func NewLLMService(next driven.LLMService, limiter *Limiter) *LLMService {
	return &LLMService{next: next, limiter: limiter}
}

func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.next.Generate(ctx, prompt, opts)
	s.limiter.Observe(err)
	return out, err
}

func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.next.Chat(ctx, messages, opts)
	s.limiter.Observe(err)
	return out, err
}

func (s *LLMService) ModelName() string              { return s.next.ModelName() }
func (s *LLMService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }
func (s *LLMService) Close() error                   { return s.next.Close() }
