package analyzequery

import (
	"context"
	"time"

	"tourism-workers/internal/models"
	"tourism-workers/internal/pipeline"
)

type Input struct {
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	ProfileID string `json:"profileId,omitempty"`
}

type Output struct {
	RunID         string                       `json:"runId"`
	ResponseText  string                       `json:"responseText"`
	Intent        string                       `json:"intent"`
	Entities      models.ResolvedEntities      `json:"entities"`
	TourismData   *models.CanonicalTourismData `json:"tourismData"`
	PipelineSteps []models.PipelineStep        `json:"pipelineSteps"`
	ToolResults   map[string]string            `json:"toolResults"`
	ProfileID     string                       `json:"profileId,omitempty"`
	Degraded      bool                         `json:"degraded"`
}

// Processor is satisfied by *pipeline.Agent.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// JobRecorder is satisfied by *observability.Observability.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
	RecordJobDuration(ctx context.Context, duration time.Duration, status string)
}
