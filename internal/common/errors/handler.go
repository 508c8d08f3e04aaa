// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports a failed job back to the broker.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Outcome says what HandleJobError asked the broker to do.
type Outcome string

const (
	OutcomeRetry  Outcome = "retry"
	OutcomeThrown Outcome = "bpmn_error"
)

// HandleJobError fails the job with a retry budget and backoff when the error
// is transient and the job still has retries left; otherwise it throws a
// BPMN error carrying the mapped code so the process model can route it.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) Outcome {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	remaining := RemainingRetries(stdErr, job.GetRetries())
	outcome := OutcomeThrown
	if remaining > 0 {
		outcome = OutcomeRetry
	}
	h.logError(job, stdErr, bpmnErr, outcome, remaining)

	var sendErr error
	if outcome == OutcomeRetry {
		sendErr = h.failJob(ctx, client, job, bpmnErr, remaining, GetRetryBackoff(stdErr.Code))
	} else {
		sendErr = h.throwBPMNError(ctx, client, job, bpmnErr)
	}
	if sendErr != nil {
		h.logger.Error("reporting job failure to broker failed", map[string]interface{}{
			"jobKey":  job.GetKey(),
			"outcome": string(outcome),
			"error":   sendErr.Error(),
		})
	}
	return outcome
}

// RemainingRetries is the retry count to hand back to the broker: the
// policy for the code, capped by what the job has left after this attempt.
func RemainingRetries(stdErr *StandardError, jobRetries int32) int {
	if !stdErr.Retryable {
		return 0
	}
	left := int(jobRetries) - 1
	policy := GetRetryCount(stdErr.Code)
	if left < policy {
		return max(left, 0)
	}
	return policy
}

// Normalize returns the first StandardError in err's chain, or wraps err as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   detailsOf(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int, backoff time.Duration) error {
	cmd := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(int32(retries)).
		RetryBackoff(backoff).
		ErrorMessage(bpmnErr.Message)

	vars, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	withVars, err := cmd.VariablesFromString(string(vars))
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	_, err = withVars.Send(ctx)
	return err
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) error {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.GetKey()).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	vars, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	withVars, err := cmd.VariablesFromString(string(vars))
	if err != nil {
		_, err = cmd.Send(ctx)
		return err
	}
	_, err = withVars.Send(ctx)
	return err
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, outcome Outcome, remaining int) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.GetKey(),
		"jobType":          job.GetType(),
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"outcome":          string(outcome),
		"retriesLeft":      remaining,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.GetProcessInstanceKey(),
	})
}
