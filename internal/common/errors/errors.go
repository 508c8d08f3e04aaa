// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderCallFailed  ErrorCode = "PROVIDER_CALL_FAILED"
	ErrCodeUnknownProvider     ErrorCode = "UNKNOWN_PROVIDER"

	ErrCodeParseFailure     ErrorCode = "PARSE_FAILURE"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodePipelineStageFailed ErrorCode = "PIPELINE_STAGE_FAILED"
	ErrCodePipelineFailed      ErrorCode = "PIPELINE_FAILED"

	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"

	ErrCodeCatalogLoadFailed      ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeProfileRegistryInvalid ErrorCode = "PROFILE_REGISTRY_INVALID"

	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed          ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeCacheUnavailable              ErrorCode = "CACHE_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

// NewProviderUnavailableError is returned when a configured provider cannot serve requests.
func NewProviderUnavailableError(kind, name string) *StandardError {
	return newError(ErrCodeProviderUnavailable,
		fmt.Sprintf("%s provider '%s' is unavailable", kind, name), "", true, nil).
		WithMetadata("kind", kind).
		WithMetadata("provider", name)
}

// NewProviderCallFailedError wraps a failed provider invocation.
func NewProviderCallFailedError(kind, name string, err error) *StandardError {
	return newError(ErrCodeProviderCallFailed,
		fmt.Sprintf("%s provider '%s' call failed", kind, name), detailsOf(err), true, err).
		WithMetadata("kind", kind).
		WithMetadata("provider", name)
}

// NewUnknownProviderError is returned for names that were never registered.
func NewUnknownProviderError(kind, name string, known []string) *StandardError {
	return newError(ErrCodeUnknownProvider,
		fmt.Sprintf("unknown %s provider '%s'", kind, name),
		fmt.Sprintf("registered: %s", strings.Join(known, ", ")), false, nil).
		WithMetadata("kind", kind).
		WithMetadata("provider", name)
}

func NewParseFailureError(what string, err error) *StandardError {
	return newError(ErrCodeParseFailure, fmt.Sprintf("failed to parse %s", what), detailsOf(err), false, err)
}

func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Validation failed", details, false, nil)
}

func NewPipelineStageFailedError(stage string, err error) *StandardError {
	return newError(ErrCodePipelineStageFailed,
		fmt.Sprintf("pipeline stage '%s' failed", stage), detailsOf(err), true, err).
		WithMetadata("stage", stage)
}

func NewPipelineFailedError(err error) *StandardError {
	return newError(ErrCodePipelineFailed, "Pipeline run failed", detailsOf(err), true, err)
}

func NewGenerationTimeoutError(err error) *StandardError {
	return newError(ErrCodeGenerationTimeout, "Response generation timed out", detailsOf(err), true, err)
}

func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Response generation failed", detailsOf(err), true, err)
}

func NewCatalogLoadFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCatalogLoadFailed,
		fmt.Sprintf("failed to load catalog from %s", source), detailsOf(err), true, err)
}

func NewProfileRegistryInvalidError(details string) *StandardError {
	return newError(ErrCodeProfileRegistryInvalid, "Profile registry is invalid", details, false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", detailsOf(err), true, err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed,
		fmt.Sprintf("Query execution failed: %s", queryType), detailsOf(err), true, err)
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection failed", detailsOf(err), true, err)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed,
		fmt.Sprintf("Search query failed on index %s", index), detailsOf(err), true, err)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable", detailsOf(err), true, err)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR",
		fmt.Sprintf("External service '%s' error", service), detailsOf(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR",
		fmt.Sprintf("Service '%s' timeout", service), detailsOf(err), true, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes used in
// the tourism process models.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:                  "INVALID_INPUT",
	ErrCodeProviderUnavailable:           "PROVIDER_UNAVAILABLE",
	ErrCodeProviderCallFailed:            "PROVIDER_CALL_FAILED",
	ErrCodeUnknownProvider:               "UNKNOWN_PROVIDER",
	ErrCodeParseFailure:                  "PARSE_FAILURE",
	ErrCodeValidationFailed:              "VALIDATION_FAILED",
	ErrCodePipelineStageFailed:           "PIPELINE_STAGE_FAILED",
	ErrCodePipelineFailed:                "PIPELINE_FAILED",
	ErrCodeGenerationTimeout:             "GENERATION_TIMEOUT",
	ErrCodeGenerationFailed:              "GENERATION_FAILED",
	ErrCodeCatalogLoadFailed:             "CATALOG_LOAD_FAILED",
	ErrCodeProfileRegistryInvalid:        "PROFILE_REGISTRY_INVALID",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeCacheUnavailable:              "CACHE_UNAVAILABLE",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProviderCallFailed,
		ErrCodePipelineFailed,
		ErrCodeGenerationFailed,
		ErrCodeCatalogLoadFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed:
		return 3

	case ErrCodeProviderUnavailable,
		ErrCodePipelineStageFailed,
		ErrCodeCacheUnavailable:
		return 2

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0 // business and validation errors
	}
}

// GetRetryBackoff is the delay the broker waits before re-activating a job
// failed with code.
func GetRetryBackoff(code ErrorCode) time.Duration {
	switch code {
	case ErrCodeGenerationTimeout, ErrCodeProviderUnavailable:
		return 30 * time.Second
	case ErrCodePipelineFailed, ErrCodeGenerationFailed, ErrCodeCatalogLoadFailed:
		return 10 * time.Second
	default:
		return 2 * time.Second
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "PIPELINE"):
		return "PIPELINE"
	case strings.Contains(codeStr, "GENERATION"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CATALOG"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
