package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingRetries(t *testing.T) {
	tests := []struct {
		name       string
		err        *StandardError
		jobRetries int32
		want       int
	}{
		{"policy below job budget", NewProviderCallFailedError("nlu", "genai", stderrors.New("503")), 5, 3},
		{"job budget caps policy", NewPipelineFailedError(stderrors.New("boom")), 2, 1},
		{"last attempt", NewPipelineFailedError(stderrors.New("boom")), 1, 0},
		{"generation timeout retries once", NewGenerationTimeoutError(stderrors.New("slow")), 3, 1},
		{"validation is never retried", NewValidationFailedError("bad"), 3, 0},
		{"invalid input is never retried", NewInvalidInputError("empty text"), 3, 0},
		{"unknown errors are not retried", Normalize(stderrors.New("panic")), 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingRetries(tt.err, tt.jobRetries))
		})
	}
}

func TestGetRetryBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetRetryBackoff(ErrCodeGenerationTimeout))
	assert.Equal(t, 10*time.Second, GetRetryBackoff(ErrCodePipelineFailed))
	assert.Equal(t, 2*time.Second, GetRetryBackoff(ErrCodeProviderCallFailed))
}
