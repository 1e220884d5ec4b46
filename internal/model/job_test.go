package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusCreated, JobStatusSubmitted, true},
		{JobStatusCreated, JobStatusFailed, true},
		{JobStatusCreated, JobStatusCompleted, false},
		{JobStatusSubmitted, JobStatusCompleted, true},
		{JobStatusSubmitted, JobStatusFailed, true},
		{JobStatusSubmitted, JobStatusCreated, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusSubmitted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusCreated.Terminal())
	assert.False(t, JobStatusSubmitted.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}
