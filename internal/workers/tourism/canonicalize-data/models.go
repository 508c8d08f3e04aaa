package canonicalizedata

import (
	"context"
	"time"

	"tourism-workers/internal/models"
)

// Input carries either RawData (a tool-shaped record) or LLMText with an
// optional Existing record to merge the extracted block into.
type Input struct {
	RawData  map[string]interface{} `json:"rawData,omitempty"`
	LLMText  string                 `json:"llmText,omitempty"`
	Existing map[string]interface{} `json:"existing,omitempty"`
}

func (i *Input) fromText() bool {
	return i.RawData == nil
}

type Output struct {
	TourismData *models.CanonicalTourismData `json:"tourismData"`
	CleanText   string                       `json:"cleanText,omitempty"`
	Valid       bool                         `json:"valid"`
}

// JobRecorder is satisfied by *observability.Observability.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
	RecordJobDuration(ctx context.Context, duration time.Duration, status string)
}
