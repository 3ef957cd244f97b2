package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineState_IsTerminal(t *testing.T) {
	assert.True(t, StateDone.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	for _, s := range []PipelineState{StateFetching, StateChunking, StateIndexing, StateAnswering} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestFailurePolicy_IsValid(t *testing.T) {
	assert.True(t, FailFast.IsValid())
	assert.True(t, PerQuestion.IsValid())
	assert.False(t, FailurePolicy("best_effort").IsValid())
	assert.Equal(t, "per_question", PerQuestion.String())
}
