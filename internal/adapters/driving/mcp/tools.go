package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AnswerInput is the input schema for the answer_questions tool.
type AnswerInput struct {
	DocumentURL string   `json:"document_url" jsonschema:"URL of the PDF, Word or text document to read"`
	Questions   []string `json:"questions" jsonschema:"questions to answer from the document"`
}

// AnswerOutput is the output schema for the answer_questions tool.
type AnswerOutput struct {
	RunID      string               `json:"run_id"`
	ChunkCount int                  `json:"chunk_count"`
	Answers    []QuestionAnswerItem `json:"answers"`
}

// QuestionAnswerItem is one answered question.
type QuestionAnswerItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Error    string `json:"error,omitempty"`
}

// RetrieveInput is the input schema for the retrieve_chunks tool.
type RetrieveInput struct {
	RunID    string `json:"run_id" jsonschema:"run ID returned by answer_questions (requires retained index entries)"`
	Question string `json:"question" jsonschema:"question to find evidence for"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve_chunks tool.
type RetrieveOutput struct {
	Chunks []ChunkItem `json:"chunks"`
	Count  int         `json:"count"`
}

// ChunkItem represents a single retrieved chunk.
type ChunkItem struct {
	ChunkID string  `json:"chunk_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_questions",
		Description: "Answer questions about a document using only evidence retrieved from it",
	}, s.handleAnswer)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "retrieve_chunks",
			Description: "Retrieve the document chunks most similar to a question from a retained run",
		}, s.handleRetrieve)
	}
}

// handleAnswer handles the answer_questions tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	result, err := s.ports.Answer.Answer(ctx, domain.AnswerRequest{
		DocumentURL: input.DocumentURL,
		Questions:   input.Questions,
	})
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	output := AnswerOutput{
		RunID:      result.RunID,
		ChunkCount: result.ChunkCount,
		Answers:    make([]QuestionAnswerItem, len(result.Answers)),
	}
	for i, a := range result.Answers {
		output.Answers[i] = QuestionAnswerItem{
			Question: a.Question,
			Answer:   a.Answer,
		}
		if a.Err != nil {
			output.Answers[i].Error = a.Err.Error()
		}
	}

	return nil, output, nil
}

// handleRetrieve handles the retrieve_chunks tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.RunID == "" {
		return nil, RetrieveOutput{}, errors.New("run_id is required")
	}

	chunks, err := s.ports.Retrieval.Retrieve(ctx, input.RunID, input.Question, input.TopK)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkItem, len(chunks)),
		Count:  len(chunks),
	}
	for i, c := range chunks {
		output.Chunks[i] = ChunkItem{
			ChunkID: c.ChunkID,
			Rank:    c.Rank,
			Score:   c.Score,
			Text:    c.Text,
		}
	}

	return nil, output, nil
}
