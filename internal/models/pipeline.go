// internal/models/pipeline.go
package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

const MaxSummaryLength = 240

type PipelineStep struct {
	Name       string     `json:"name"`
	Tool       string     `json:"tool"`
	Status     StepStatus `json:"status"`
	DurationMs *int64     `json:"duration_ms"`
	Summary    string     `json:"summary"`
}

// NewPipelineStep applies the step invariants: unknown statuses become
// pending, negative durations are dropped and the summary is trimmed to
// MaxSummaryLength characters.
func NewPipelineStep(name, tool string, status StepStatus, duration time.Duration, summary string) PipelineStep {
	switch status {
	case StepPending, StepProcessing, StepCompleted, StepError:
	default:
		status = StepPending
	}

	step := PipelineStep{
		Name:    name,
		Tool:    tool,
		Status:  status,
		Summary: Truncate(strings.TrimSpace(summary), MaxSummaryLength),
	}
	if ms := duration.Milliseconds(); duration >= 0 {
		step.DurationMs = &ms
	}
	return step
}

// StageOutput is one entry of the ordered context handed to the generator.
type StageOutput struct {
	Name string `json:"name"`
	Raw  string `json:"raw"`
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
