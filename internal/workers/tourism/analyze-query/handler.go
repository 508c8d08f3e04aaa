package analyzequery

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"tourism-workers/internal/common/camunda"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/errors"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/common/observability"
	"tourism-workers/internal/common/validation"
	"tourism-workers/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/trace"
)

const (
	TaskType   = "analyze-tourism-query"
	workerName = "analyze-query"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	processor    Processor
	errorHandler *errors.ErrorHandler
	recorder     JobRecorder
	worker       *camunda.CamundaWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	Processor    Processor
	CustomConfig *Config
	Recorder     JobRecorder
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", workerName, err)
	}
	if opts.Processor == nil {
		return nil, fmt.Errorf("%s requires a processor", workerName)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:       workerConfig,
		logger:       log,
		camunda:      opts.Camunda,
		processor:    opts.Processor,
		errorHandler: errors.NewErrorHandler(log),
		recorder:     opts.Recorder,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := camunda.StartJobSpan(ctx, job)
	defer span.End()

	h.logger.Info("processing tourism query", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"traceId":            observability.TraceID(ctx),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		h.record(ctx, "failed", startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		h.record(ctx, "failed", startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.record(ctx, "completed", startTime)
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	if h.recorder == nil {
		return
	}
	h.recorder.RecordJobProcessed(ctx, status)
	h.recorder.RecordJobDuration(ctx, time.Since(start), status)
}

// Execute runs one query through the agent. Pipeline errors come back as
// StandardErrors so the job can be failed or escalated.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.processor.Process(ctx, pipeline.Request{
		Text:      input.Text,
		Language:  input.Language,
		ProfileID: input.ProfileID,
	})
	if err != nil {
		return nil, mapProcessError(err)
	}

	out := &Output{
		RunID:         resp.RunID,
		ResponseText:  resp.ResponseText,
		Intent:        resp.Intent,
		Entities:      resp.Entities,
		TourismData:   resp.TourismData,
		PipelineSteps: resp.PipelineSteps,
		ToolResults:   resp.ToolResults,
		Degraded:      resp.Degraded,
	}
	if resp.Profile != nil {
		out.ProfileID = resp.Profile.ID
	}
	return out, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewParseFailureError("job variables", err)
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}

	input := &Input{Text: variables["text"].(string)}
	if lang, ok := variables["language"].(string); ok {
		input.Language = lang
	}
	if profileID, ok := variables["profileId"].(string); ok {
		input.ProfileID = profileID
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidInputError("text must not be blank")
	}
	return input, nil
}

func outputVariables(output *Output) map[string]interface{} {
	vars := map[string]interface{}{
		"runId":         output.RunID,
		"responseText":  output.ResponseText,
		"intent":        output.Intent,
		"entities":      output.Entities,
		"tourismData":   output.TourismData,
		"pipelineSteps": output.PipelineSteps,
		"toolResults":   output.ToolResults,
		"degraded":      output.Degraded,
	}
	if output.ProfileID != "" {
		vars["profileId"] = output.ProfileID
	}
	return vars
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(outputVariables(output))
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("tourism query completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"runId":    output.RunID,
		"intent":   output.Intent,
		"degraded": output.Degraded,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	span := trace.SpanFromContext(ctx)
	camunda.FailSpan(span, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
	outcome := h.errorHandler.HandleJobError(ctx, client, job, err)
	camunda.RecordOutcome(span, string(outcome))
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: camunda client is not configured", workerName)
	}

	h.worker = camunda.NewWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h, h.logger)
	h.worker.Start()

	h.logger.Info("worker registered with Camunda", map[string]interface{}{
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})
	return nil
}

func (h *Handler) Close(ctx context.Context) {
	if h.worker != nil {
		h.worker.Stop(ctx)
		h.worker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func mapProcessError(err error) error {
	switch {
	case stderrors.Is(err, pipeline.ErrInvalidInput):
		return errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError("pipeline", err)
	default:
		return errors.NewPipelineFailedError(err)
	}
}

func extractErrorCode(err error) string {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[workerName]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}
	return cfg
}
