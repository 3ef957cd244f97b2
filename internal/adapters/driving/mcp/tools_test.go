package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestServer_handleAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answers in question order", func(t *testing.T) {
		mockAnswer := &mockAnswerService{
			result: &domain.AnswerResult{
				RunID:      "run-1",
				ChunkCount: 2,
				Answers: []domain.QueryAnswer{
					{Question: "Is dental covered?", Answer: "Yes."},
					{Question: "Is travel covered?", Answer: domain.InsufficientInformationAnswer},
				},
			},
		}
		server, err := NewServer(&Ports{Answer: mockAnswer})
		require.NoError(t, err)

		input := AnswerInput{
			DocumentURL: "https://example.com/policy.pdf",
			Questions:   []string{"Is dental covered?", "Is travel covered?"},
		}
		_, output, err := server.handleAnswer(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/policy.pdf", mockAnswer.got.DocumentURL)
		assert.Equal(t, input.Questions, mockAnswer.got.Questions)
		assert.Equal(t, "run-1", output.RunID)
		assert.Equal(t, 2, output.ChunkCount)
		require.Len(t, output.Answers, 2)
		assert.Equal(t, "Yes.", output.Answers[0].Answer)
		assert.Equal(t, "Is travel covered?", output.Answers[1].Question)
		assert.Empty(t, output.Answers[0].Error)
	})

	t.Run("reports per-question errors", func(t *testing.T) {
		mockAnswer := &mockAnswerService{
			result: &domain.AnswerResult{
				Answers: []domain.QueryAnswer{
					{Question: "q", Err: domain.ErrGenerationService},
				},
			},
		}
		server, err := NewServer(&Ports{Answer: mockAnswer})
		require.NoError(t, err)

		_, output, err := server.handleAnswer(ctx, nil, AnswerInput{DocumentURL: "u", Questions: []string{"q"}})

		require.NoError(t, err)
		assert.Equal(t, domain.ErrGenerationService.Error(), output.Answers[0].Error)
	})

	t.Run("returns error on pipeline failure", func(t *testing.T) {
		mockAnswer := &mockAnswerService{err: errors.New("document acquisition failed")}
		server, err := NewServer(&Ports{Answer: mockAnswer})
		require.NoError(t, err)

		_, _, err = server.handleAnswer(ctx, nil, AnswerInput{DocumentURL: "u", Questions: []string{"q"}})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "document acquisition failed")
	})
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked chunks", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{
			chunks: []domain.RetrievedChunk{
				{ChunkID: "section_0", Text: "1. Coverage includes dental.", Score: 0.9, Rank: 1},
			},
		}
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Retrieval: mockRetrieval})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{RunID: "run-1", Question: "dental?", TopK: 3})

		require.NoError(t, err)
		assert.Equal(t, "run-1", mockRetrieval.namespace)
		assert.Equal(t, 3, mockRetrieval.topK)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "section_0", output.Chunks[0].ChunkID)
		assert.Equal(t, 1, output.Chunks[0].Rank)
	})

	t.Run("requires run id", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Question: "dental?"})

		assert.Error(t, err)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{err: domain.ErrIndexUnavailable}
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Retrieval: mockRetrieval})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{RunID: "r", Question: "q"})

		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})
}
