package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// --- Mock implementations ---

// MockSessionService implements driving.SessionService for testing.
type MockSessionService struct {
	OpenFunc func(ctx context.Context, url string) (driving.Session, error)
	opened   []string
}

func (m *MockSessionService) Open(ctx context.Context, url string) (driving.Session, error) {
	m.opened = append(m.opened, url)
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, url)
	}
	return &MockSession{IDValue: "run-1", Chunks: 4}, nil
}

// MockSession implements driving.Session for testing.
type MockSession struct {
	IDValue string
	Chunks  int
	AskFunc func(ctx context.Context, question string) (string, error)

	mu     sync.Mutex
	asked  []string
	closed int
}

func (m *MockSession) ID() string      { return m.IDValue }
func (m *MockSession) ChunkCount() int { return m.Chunks }

func (m *MockSession) Ask(ctx context.Context, question string) (string, error) {
	m.mu.Lock()
	m.asked = append(m.asked, question)
	m.mu.Unlock()
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question)
	}
	return "answer: " + question, nil
}

func (m *MockSession) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// --- Tests ---

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"nil ports", nil, ErrInvalidPorts},
		{"missing sessions", &Ports{}, ErrMissingSessionService},
		{"valid", &Ports{Sessions: &MockSessionService{}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}
