package canonicalizedata

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"tourism-workers/internal/canonical"
	"tourism-workers/internal/common/camunda"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/errors"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/common/validation"
	"tourism-workers/internal/models"
	"tourism-workers/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "canonicalize-tourism-data"
	workerName = "canonicalize-data"

	sourceJob = "job"
)

type Handler struct {
	config        *Config
	logger        logger.Logger
	camunda       *camunda.Client
	canonicalizer *canonical.Canonicalizer
	extractor     *pipeline.Extractor
	errorHandler  *errors.ErrorHandler
	recorder      JobRecorder
	worker        *camunda.CamundaWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Recorder     JobRecorder
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", workerName, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	c := canonical.NewCanonicalizer(log)
	return &Handler{
		config:        workerConfig,
		logger:        log,
		camunda:       opts.Camunda,
		canonicalizer: c,
		extractor:     pipeline.NewExtractor(c, log),
		errorHandler:  errors.NewErrorHandler(log),
		recorder:      opts.Recorder,
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

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		camunda.FailSpan(span, err)
		outcome := h.errorHandler.HandleJobError(ctx, client, job, err)
		camunda.RecordOutcome(span, string(outcome))
		h.record(ctx, "failed", startTime)
		return
	}

	output := h.Execute(input)

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

// Execute never fails: an invalid record yields a nil TourismData with Valid=false.
func (h *Handler) Execute(input *Input) *Output {
	if !input.fromText() {
		data := h.canonicalizer.Canonicalize(sourceJob, input.RawData)
		return &Output{TourismData: data, Valid: data != nil}
	}

	var existing *models.CanonicalTourismData
	if input.Existing != nil {
		existing = h.canonicalizer.Canonicalize(sourceJob, input.Existing)
	}
	clean, data := h.extractor.Extract(input.LLMText, existing)
	return &Output{TourismData: data, CleanText: clean, Valid: data != nil}
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

	input := &Input{}
	if raw, ok := variables["rawData"].(map[string]interface{}); ok {
		input.RawData = raw
	}
	if text, ok := variables["llmText"].(string); ok {
		input.LLMText = text
	}
	if existing, ok := variables["existing"].(map[string]interface{}); ok {
		input.Existing = existing
	}

	switch {
	case input.RawData == nil && input.LLMText == "":
		return nil, errors.NewInvalidInputError("one of rawData or llmText is required")
	case input.RawData != nil && input.LLMText != "":
		return nil, errors.NewInvalidInputError("rawData and llmText are mutually exclusive")
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	vars := map[string]interface{}{
		"tourismData": output.TourismData,
		"valid":       output.Valid,
	}
	if output.CleanText != "" {
		vars["cleanText"] = output.CleanText
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(vars)
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

	h.logger.Info("canonicalization completed", map[string]interface{}{
		"jobKey": job.GetKey(),
		"valid":  output.Valid,
	})
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
	return nil
}

func (h *Handler) Close(ctx context.Context) {
	if h.worker != nil {
		h.worker.Stop(ctx)
		h.worker = nil
	}
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

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
