package nlu

import (
	"context"
	"sync/atomic"
	"time"

	"tourism-workers/internal/models"
)

// stubProvider returns a fixed result, optionally after a delay.
type stubProvider struct {
	name      string
	available bool
	result    models.ExtractionResult
	delay     time.Duration
	calls     int32
}

func (s *stubProvider) AnalyzeText(ctx context.Context, _, language string, _ *models.ProfileContext) models.ExtractionResult {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.NewErrorResult(s.name, "stub", language, ctx.Err())
		}
	}
	res := s.result
	res.Provider = s.name
	res.Language = language
	return res
}

func (s *stubProvider) IsAvailable() bool            { return s.available }
func (s *stubProvider) SupportedLanguages() []string { return []string{"es"} }
func (s *stubProvider) Info() map[string]interface{} {
	return map[string]interface{}{"provider": s.name, "model": "stub", "default_language": "es"}
}

func (s *stubProvider) callCount() int { return int(atomic.LoadInt32(&s.calls)) }
