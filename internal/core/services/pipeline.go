package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure PipelineService implements the interfaces.
var (
	_ driving.AnswerService  = (*PipelineService)(nil)
	_ driving.SessionService = (*PipelineService)(nil)
)

// Pipeline defaults.
const (
	DefaultConcurrency    = 4
	DefaultMaxQuestions   = 50
	DefaultCleanupTimeout = 30 * time.Second
)

// stagePipeline labels whole-request timings.
const stagePipeline = "pipeline"

// PipelineDeps are the ports the pipeline drives.
// Prompts and Metrics are optional.
type PipelineDeps struct {
	Source    driven.DocumentSource
	Extractor driven.TextExtractor
	Chunker   driven.Chunker
	Embedder  driven.EmbeddingService
	Index     driven.VectorIndex
	LLM       driven.LLMService
	Prompts   driven.PromptStore
	Metrics   driven.MetricsRecorder
}

// PipelineConfig tunes one PipelineService.
type PipelineConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// Concurrency bounds how many questions are answered at once.
	Concurrency int

	// MaxQuestions caps the questions in one request.
	MaxQuestions int

	// EmbedBatchSize is the number of chunk texts per embedding call.
	EmbedBatchSize int

	// FailurePolicy decides whether one failed question fails the request.
	FailurePolicy domain.FailurePolicy

	// RetainIndex keeps a run's namespace after the request.
	RetainIndex bool

	Temperature float64
	MaxTokens   int

	Retry RetryPolicy

	// CleanupTimeout bounds namespace deletion after a run.
	CleanupTimeout time.Duration
}

// PipelineConfigFromSettings maps application settings onto a PipelineConfig.
func PipelineConfigFromSettings(s *domain.AppSettings) PipelineConfig {
	return PipelineConfig{
		TopK:          s.Pipeline.TopK,
		Concurrency:   s.Pipeline.Concurrency,
		MaxQuestions:  s.Pipeline.MaxQuestions,
		FailurePolicy: s.Pipeline.FailurePolicy,
		RetainIndex:   s.VectorIndex.Retain,
		Temperature:   s.Pipeline.Temperature,
		MaxTokens:     s.Pipeline.MaxTokens,
		Retry:         NewRetryPolicy(s.Retry),
	}
}

// PipelineService runs fetch, chunk, index and answer for a document.
type PipelineService struct {
	deps      PipelineDeps
	cfg       PipelineConfig
	retriever *Retriever
	synth     *Synthesizer
	metrics   driven.MetricsRecorder
	newID     func() string
}

// NewPipelineService creates a pipeline. Every port except Prompts and
// Metrics is required.
func NewPipelineService(deps PipelineDeps, cfg PipelineConfig) (*PipelineService, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: document source is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: text extractor is required")
	case deps.Chunker == nil:
		return nil, errors.New("pipeline: chunker is required")
	case deps.Embedder == nil:
		return nil, domain.ErrEmbeddingUnavailable
	case deps.Index == nil:
		return nil, fmt.Errorf("%w: no vector index", domain.ErrIndexUnavailable)
	case deps.LLM == nil:
		return nil, domain.ErrLLMUnavailable
	}

	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if !cfg.FailurePolicy.IsValid() {
		cfg.FailurePolicy = domain.FailFast
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = NewRetryPolicy(domain.RetrySettings{})
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = DefaultCleanupTimeout
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &PipelineService{
		deps:      deps,
		cfg:       cfg,
		retriever: NewRetriever(deps.Embedder, deps.Index, WithRetrieverRetry(cfg.Retry)),
		synth: NewSynthesizer(deps.LLM, deps.Prompts, SynthesizerConfig{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Retry:       cfg.Retry,
		}),
		metrics: metrics,
		newID:   uuid.NewString,
	}, nil
}

// Config returns the effective configuration.
func (p *PipelineService) Config() PipelineConfig {
	return p.cfg
}

// Answer ingests the document and answers every question.
// Answers are positionally aligned with req.Questions.
func (p *PipelineService) Answer(ctx context.Context, req domain.AnswerRequest) (result *domain.AnswerResult, err error) {
	logger.Section("Answer Pipeline")

	if err := p.validate(req); err != nil {
		return nil, err
	}

	runID := p.newID()
	start := time.Now()
	logger.Info("run %s: %d question(s) for %s", runID, len(req.Questions), req.DocumentURL)

	defer func() {
		p.observe(stagePipeline, start, err)
		if err != nil {
			p.transition(runID, domain.StateFailed)
			logger.Error("run %s failed: %v", runID, err)
		}
	}()
	defer p.cleanup(ctx, runID)

	chunkCount, err := p.ingest(ctx, runID, req.DocumentURL)
	if err != nil {
		return nil, err
	}

	answers, err := p.answerAll(ctx, runID, req.Questions)
	if err != nil {
		return nil, err
	}

	p.transition(runID, domain.StateDone)
	logger.Info("run %s done in %s", runID, time.Since(start).Round(time.Millisecond))

	return &domain.AnswerResult{
		RunID:      runID,
		Answers:    answers,
		ChunkCount: chunkCount,
	}, nil
}

// Open ingests a document once so that questions can be asked one at a time.
func (p *PipelineService) Open(ctx context.Context, documentURL string) (driving.Session, error) {
	if strings.TrimSpace(documentURL) == "" {
		return nil, fmt.Errorf("%w: document URL is required", domain.ErrValidation)
	}

	runID := p.newID()
	count, err := p.ingest(ctx, runID, documentURL)
	if err != nil {
		p.cleanup(ctx, runID)
		return nil, err
	}
	return &session{pipeline: p, id: runID, chunks: count}, nil
}

func (p *PipelineService) validate(req domain.AnswerRequest) error {
	if strings.TrimSpace(req.DocumentURL) == "" {
		return fmt.Errorf("%w: document URL is required", domain.ErrValidation)
	}
	if len(req.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", domain.ErrValidation)
	}
	if len(req.Questions) > p.cfg.MaxQuestions {
		return fmt.Errorf("%w: %d questions exceeds the limit of %d",
			domain.ErrValidation, len(req.Questions), p.cfg.MaxQuestions)
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: question %d is empty", domain.ErrValidation, i+1)
		}
	}
	return nil
}

// ingest fetches, chunks and indexes the document into namespace runID.
// It returns the number of chunks indexed.
func (p *PipelineService) ingest(ctx context.Context, runID, documentURL string) (int, error) {
	p.transition(runID, domain.StateFetching)
	start := time.Now()
	text, err := p.acquire(ctx, documentURL)
	p.observe(domain.StateFetching.String(), start, err)
	if err != nil {
		return 0, domain.NewStageError(domain.StateFetching, err)
	}

	p.transition(runID, domain.StateChunking)
	start = time.Now()
	chunks := p.deps.Chunker.Chunk(text)
	p.observe(domain.StateChunking.String(), start, nil)
	logger.Debug("run %s: %d chunk(s) from %d characters", runID, len(chunks), len(text))

	p.transition(runID, domain.StateIndexing)
	start = time.Now()
	err = p.index(ctx, runID, chunks)
	p.observe(domain.StateIndexing.String(), start, err)
	if err != nil {
		return 0, domain.NewStageError(domain.StateIndexing, err)
	}
	return len(chunks), nil
}

func (p *PipelineService) acquire(ctx context.Context, documentURL string) (string, error) {
	raw, err := p.deps.Source.Fetch(ctx, documentURL)
	if err != nil {
		return "", acquisitionErr(err)
	}
	text, err := p.deps.Extractor.Extract(ctx, raw)
	if err != nil {
		return "", acquisitionErr(err)
	}
	return text, nil
}

func acquisitionErr(err error) error {
	if isContextErr(err) || errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrAcquisition) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrAcquisition, err)
}

func (p *PipelineService) index(ctx context.Context, runID string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := EmbedChecked(ctx, p.deps.Embedder, texts, p.cfg.EmbedBatchSize, p.cfg.Retry)
	if err != nil {
		return err
	}

	entries := make([]domain.IndexedEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.EntryFromChunk(c, vectors[i])
	}

	return p.cfg.Retry.Do(ctx, "vector upsert", func(ctx context.Context) error {
		_, err := p.deps.Index.Upsert(ctx, runID, entries)
		return err
	})
}

// answerAll answers questions with bounded concurrency. Results are
// placed by question index so completion order does not matter.
func (p *PipelineService) answerAll(ctx context.Context, runID string, questions []string) ([]domain.QueryAnswer, error) {
	p.transition(runID, domain.StateAnswering)
	start := time.Now()

	answers := make([]domain.QueryAnswer, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, question := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			answer, err := p.ask(gctx, runID, question)
			answers[i] = domain.QueryAnswer{Question: question, Answer: answer}
			if err == nil {
				p.metrics.IncQuestions(driven.OutcomeSuccess)
				return nil
			}

			p.metrics.IncQuestions(driven.OutcomeError)
			stageErr := &domain.StageError{Stage: domain.StateAnswering, Question: i, Err: err}
			if p.cfg.FailurePolicy == domain.PerQuestion && ctx.Err() == nil {
				logger.Warn("run %s: question %d failed: %v", runID, i+1, err)
				answers[i].Err = stageErr
				return nil
			}
			return stageErr
		})
	}

	err := g.Wait()
	p.observe(domain.StateAnswering.String(), start, err)
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (p *PipelineService) ask(ctx context.Context, runID, question string) (string, error) {
	chunks, err := p.retriever.Retrieve(ctx, runID, question, p.cfg.TopK)
	if err != nil {
		return "", err
	}
	return p.synth.Synthesize(ctx, question, chunks)
}

// cleanup deletes the run's namespace. It uses a context detached from
// cancellation so an aborted request still releases its entries.
func (p *PipelineService) cleanup(ctx context.Context, runID string) {
	if p.cfg.RetainIndex {
		logger.Debug("run %s: retaining index entries", runID)
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CleanupTimeout)
	defer cancel()
	if err := p.deps.Index.DeleteNamespace(cctx, runID); err != nil {
		logger.Warn("run %s: deleting index entries: %v", runID, err)
	}
}

func (p *PipelineService) transition(runID string, state domain.PipelineState) {
	logger.Debug("run %s: -> %s", runID, state)
}

func (p *PipelineService) observe(stage string, start time.Time, err error) {
	outcome := driven.OutcomeSuccess
	if err != nil {
		outcome = driven.OutcomeError
	}
	p.metrics.ObserveStage(stage, outcome, time.Since(start))
}

// session is one ingested document answering questions on demand.
type session struct {
	pipeline *PipelineService
	id       string
	chunks   int
	closed   atomic.Bool
}

func (s *session) ID() string {
	return s.id
}

func (s *session) ChunkCount() int {
	return s.chunks
}

func (s *session) Ask(ctx context.Context, question string) (string, error) {
	if s.closed.Load() {
		return "", fmt.Errorf("%w: session is closed", domain.ErrValidation)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", domain.ErrValidation)
	}

	answer, err := s.pipeline.ask(ctx, s.id, question)
	if err != nil {
		s.pipeline.metrics.IncQuestions(driven.OutcomeError)
		return "", &domain.StageError{Stage: domain.StateAnswering, Question: -1, Err: err}
	}
	s.pipeline.metrics.IncQuestions(driven.OutcomeSuccess)
	return answer, nil
}

// Close is safe to call more than once.
func (s *session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.pipeline.cleanup(ctx, s.id)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(string, string, time.Duration) {}

func (nopMetrics) IncQuestions(string) {}
