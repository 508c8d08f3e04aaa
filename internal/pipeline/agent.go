package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/genai"
	"tourism-workers/internal/models"
	"tourism-workers/internal/tools"
)

var (
	ErrInvalidInput   = errors.New("INVALID_INPUT")
	ErrPipelineFailed = errors.New("PIPELINE_FAILED")
)

const (
	ResponseStepName = "Response"
	ResponseStepTool = "llm_synthesis"

	responseSummaryLength = 200
	degradedNotice        = "Lo siento, no he podido generar una respuesta completa en este momento. Esta es la información disponible:"
)

type ProfileResolver interface {
	Resolve(id string) *models.ProfileContext
}

type RunRecorder interface {
	RecordPipelineRun(ctx context.Context, duration time.Duration, intent string, degraded bool)
}

type Request struct {
	Text      string
	Language  string
	ProfileID string
}

type Response struct {
	RunID             string                       `json:"runId"`
	ResponseText      string                       `json:"responseText"`
	Intent            string                       `json:"intent"`
	Entities          models.ResolvedEntities      `json:"entities"`
	TourismData       *models.CanonicalTourismData `json:"tourismData"`
	PipelineSteps     []models.PipelineStep        `json:"pipelineSteps"`
	ToolResults       map[string]string            `json:"toolResults"`
	ToolResultsParsed map[string]interface{}       `json:"-"`
	Profile           *models.ProfileContext       `json:"profile,omitempty"`
	Degraded          bool                         `json:"degraded"`
}

type AgentConfig struct {
	GenerationTimeout time.Duration
	DefaultLanguage   string
}

// Agent runs the pipeline, the generator and the block extractor for one
// query. Generation failures degrade the answer instead of failing it.
type Agent struct {
	orchestrator *Orchestrator
	generator    genai.Generator
	fallback     genai.Generator
	extractor    *Extractor
	profiles     ProfileResolver
	recorder     RunRecorder
	config       AgentConfig
	logger       logger.Logger
	newID        func() string
}

func NewAgent(o *Orchestrator, g genai.Generator, e *Extractor, profiles ProfileResolver, recorder RunRecorder, config AgentConfig, log logger.Logger) *Agent {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = tools.DefaultLanguage
	}
	return &Agent{
		orchestrator: o,
		generator:    g,
		fallback:     genai.NewTemplateGenerator(),
		extractor:    e,
		profiles:     profiles,
		recorder:     recorder,
		config:       config,
		logger:       log.With(map[string]interface{}{"component": "agent"}),
		newID:        uuid.NewString,
	}
}

func (a *Agent) Process(ctx context.Context, req Request) (*Response, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = a.config.DefaultLanguage
	}

	start := time.Now()
	runID := a.newID()
	log := a.logger.With(map[string]interface{}{"run_id": runID})

	var profile *models.ProfileContext
	if a.profiles != nil {
		profile = a.profiles.Resolve(req.ProfileID)
	}

	ctx = tools.WithLanguage(ctx, language)
	ctx = tools.WithProfile(ctx, profile)

	result, err := a.orchestrator.Run(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipelineFailed, err)
	}

	genReq := genai.Request{
		UserInput: text,
		Language:  language,
		Stages:    result.Stages,
		Profile:   profile,
	}

	genStart := time.Now()
	generated, genErr := a.generate(ctx, genReq)
	genDuration := time.Since(genStart)

	resp := &Response{
		RunID:             runID,
		Intent:            result.Intent,
		Entities:          result.Entities,
		TourismData:       result.TourismData,
		PipelineSteps:     result.Steps,
		ToolResults:       result.ToolResults,
		ToolResultsParsed: result.ToolResultsParsed,
		Profile:           profile,
	}

	if genErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrPipelineFailed, ctx.Err())
		}
		log.Warn("generation failed, returning degraded response", map[string]interface{}{
			"generator": a.generator.Name(),
			"error":     genErr.Error(),
		})
		resp.Degraded = true
		resp.ResponseText = a.degradedText(ctx, genReq)
		resp.PipelineSteps = append(resp.PipelineSteps, models.NewPipelineStep(
			ResponseStepName, ResponseStepTool, models.StepError, genDuration, "error: "+genErr.Error()))
	} else {
		resp.ResponseText, resp.TourismData = a.extractor.Extract(generated, result.TourismData)
		resp.PipelineSteps = append(resp.PipelineSteps, models.NewPipelineStep(
			ResponseStepName, ResponseStepTool, models.StepCompleted, genDuration,
			models.Truncate(resp.ResponseText, responseSummaryLength)))
	}

	if a.recorder != nil {
		a.recorder.RecordPipelineRun(ctx, time.Since(start), resp.Intent, resp.Degraded)
	}
	log.Info("request processed", map[string]interface{}{
		"intent":          resp.Intent,
		"degraded":        resp.Degraded,
		"response_length": len(resp.ResponseText),
		"durationMs":      time.Since(start).Milliseconds(),
	})
	return resp, nil
}

func (a *Agent) generate(ctx context.Context, req genai.Request) (string, error) {
	if a.config.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.GenerationTimeout)
		defer cancel()
	}
	return a.generator.Generate(ctx, req)
}

func (a *Agent) degradedText(ctx context.Context, req genai.Request) string {
	body, err := a.fallback.Generate(ctx, req)
	if err != nil {
		return degradedNotice
	}
	return degradedNotice + "\n\n" + body
}
