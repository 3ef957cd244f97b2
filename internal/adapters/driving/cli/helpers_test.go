package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
)

// --- Mock implementations ---

type mockAnswerService struct {
	mu       sync.Mutex
	requests []domain.AnswerRequest
	err      error
	failAt   int // question index that fails, -1 for none
}

func (m *mockAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	answers := make([]domain.QueryAnswer, len(req.Questions))
	for i, q := range req.Questions {
		answers[i] = domain.QueryAnswer{Question: q, Answer: "answer to " + q}
		if i == m.failAt {
			answers[i] = domain.QueryAnswer{Question: q, Err: errors.New("llm down")}
		}
	}
	return &domain.AnswerResult{RunID: "run-test", Answers: answers, ChunkCount: 7}, nil
}

func (m *mockAnswerService) last() domain.AnswerRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

type mockSessionService struct {
	opened []string
}

func (m *mockSessionService) Open(_ context.Context, url string) (driving.Session, error) {
	m.opened = append(m.opened, url)
	return nil, errors.New("not used")
}

type mockRetrievalService struct{}

func (m *mockRetrievalService) Retrieve(_ context.Context, _, _ string, _ int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

type mockAIValidator struct {
	err error
}

func (m *mockAIValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	return m.err
}

func (m *mockAIValidator) ValidateLLM(_ context.Context, _ *domain.LLMSettings) error {
	return nil
}

func (m *mockAIValidator) ValidateVectorIndex(_ context.Context, _ *domain.VectorIndexSettings) error {
	return nil
}

// --- Helpers ---

// testServices holds the fakes installed by setupTestServices.
type testServices struct {
	answer    *mockAnswerService
	sessions  *mockSessionService
	validator *mockAIValidator
	settings  *services.SettingsService
	store     *memory.ConfigStore
}

var testSvc *testServices

// setupTestServices installs in-memory settings and a fake pipeline runtime.
// The returned function restores the previous state.
func setupTestServices() func() {
	oldFactory, oldSettings, oldRuntime := factory, settingsService, activeRuntime

	store := memory.NewConfigStore()
	validator := &mockAIValidator{}
	settings := services.NewSettingsService(store, validator)
	settings.SetEnvLookup(func(string) string { return "" })

	testSvc = &testServices{
		answer:    &mockAnswerService{failAt: -1},
		sessions:  &mockSessionService{},
		validator: validator,
		settings:  settings,
		store:     store,
	}

	factory = nil
	settingsService = settings
	activeRuntime = &Runtime{
		Answer:    testSvc.answer,
		Sessions:  testSvc.sessions,
		Retrieval: &mockRetrievalService{},
	}
	resetFlags(rootCmd)
	resetContexts(rootCmd)

	return func() {
		factory, settingsService, activeRuntime = oldFactory, oldSettings, oldRuntime
		resetFlags(rootCmd)
		resetContexts(rootCmd)
		testSvc = nil
	}
}

// resetContexts clears the context cobra stored on each command. A subcommand
// only inherits the root context while its own is nil, so a stale one would
// outlive the execution that set it.
func resetContexts(cmd *cobra.Command) {
	cmd.SetContext(nil) //nolint:staticcheck // nil is how cobra marks "inherit from parent"
	for _, c := range cmd.Commands() {
		resetContexts(c)
	}
}

// resetFlags restores every flag to its default so commands can run repeatedly.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs rootCmd with args and returns the combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
