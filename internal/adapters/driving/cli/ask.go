package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driven/fetch"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	askQuestions []string
	askJSON      bool
	askTopK      int
)

var askCmd = &cobra.Command{
	Use:   "ask <url|file>",
	Short: "Answer questions about a document",
	Long: `Fetches the document, indexes it and answers each question.

A local path is read as a file:// URL. Repeat -q for several questions;
answers are printed in the order the questions were given.`,
	Example: `  docqa ask https://example.com/policy.pdf -q "What is the grace period?"
  docqa ask ./policy.docx -q "Is dental covered?" -q "What is the waiting period?" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askQuestions, "question", "q", nil, "question to answer (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output results as JSON")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "chunks retrieved per question (default from pipeline.top_k)")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	documentURL, err := resolveDocumentURL(args[0])
	if err != nil {
		return err
	}

	rt, err := loadRuntime(cmd, func(s *domain.AppSettings) {
		if askTopK > 0 {
			s.Pipeline.TopK = askTopK
		}
		if n := len(askQuestions); n > s.Pipeline.MaxQuestions {
			s.Pipeline.MaxQuestions = n
		}
	}, allowLocalFiles)
	if err != nil {
		return err
	}
	if rt.Answer == nil {
		return fmt.Errorf("answer service not configured")
	}

	result, err := rt.Answer.Answer(cmd.Context(), domain.AnswerRequest{
		DocumentURL: documentURL,
		Questions:   askQuestions,
	})
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	if askJSON {
		return outputAnswersJSON(cmd, result)
	}
	outputAnswersText(cmd, result)
	return nil
}

type answerJSON struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Error    string `json:"error,omitempty"`
}

type resultJSON struct {
	RunID      string       `json:"run_id"`
	ChunkCount int          `json:"chunk_count"`
	Answers    []answerJSON `json:"answers"`
}

func outputAnswersJSON(cmd *cobra.Command, result *domain.AnswerResult) error {
	out := resultJSON{
		RunID:      result.RunID,
		ChunkCount: result.ChunkCount,
		Answers:    make([]answerJSON, len(result.Answers)),
	}
	for i, a := range result.Answers {
		out.Answers[i] = answerJSON{Question: a.Question, Answer: a.Answer}
		if a.Err != nil {
			out.Answers[i].Error = a.Err.Error()
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswersText(cmd *cobra.Command, result *domain.AnswerResult) {
	cmd.Printf("Indexed %d chunks (run %s)\n\n", result.ChunkCount, result.RunID)
	for i, a := range result.Answers {
		cmd.Printf("Q%d: %s\n", i+1, a.Question)
		if a.Failed() {
			cmd.Printf("  error: %v\n\n", a.Err)
			continue
		}
		cmd.Printf("  %s\n\n", strings.ReplaceAll(a.Answer, "\n", "\n  "))
	}
}

// resolveDocumentURL turns a local path into a file:// URL and leaves URLs alone.
func resolveDocumentURL(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	u, err := fetch.FileURL(arg)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", arg, err)
	}
	return u, nil
}
