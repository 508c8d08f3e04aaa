// Package pipeline runs the fixed tourism stage chain, assembles the
// tool-derived canonical record and merges the structured block returned by
// the generator.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tourism-workers/internal/canonical"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/common/metrics"
	"tourism-workers/internal/models"
	"tourism-workers/internal/providers"
	"tourism-workers/internal/resolver"
	"tourism-workers/internal/tools"
)

// Stage names in execution order.
const (
	StageNLU           = "NLU"
	StageLocationNER   = "LocationNER"
	StageAccessibility = "Accessibility"
	StageRoutes        = "Routes"
	StageVenueInfo     = "Venue Info"
)

const rawSummaryLength = 120

var tracer = otel.Tracer("tourism-workers/pipeline")

type Config struct {
	StageTimeout       time.Duration
	ParallelExtraction bool
}

// StageResult is the outcome of one RunStage call. Parsed is nil when Raw is
// not valid JSON or the stage failed.
type StageResult struct {
	Name   string
	Raw    string
	Parsed interface{}
	Step   models.PipelineStep
	Err    error
}

// Result is everything one pipeline run produced before generation.
type Result struct {
	Steps             []models.PipelineStep
	Stages            []models.StageOutput
	ToolResults       map[string]string
	ToolResultsParsed map[string]interface{}
	Intent            string
	NLU               *tools.NLUPayload
	Locations         *tools.LocationPayload
	Entities          models.ResolvedEntities
	TourismData       *models.CanonicalTourismData
}

type Tools struct {
	NLU           tools.Tool
	LocationNER   tools.Tool
	Accessibility tools.Tool
	Routes        tools.Tool
	VenueInfo     tools.Tool
}

type Orchestrator struct {
	tools         Tools
	resolver      *resolver.EntityResolver
	canonicalizer *canonical.Canonicalizer
	config        Config
	logger        logger.Logger
}

func NewOrchestrator(t Tools, r *resolver.EntityResolver, c *canonical.Canonicalizer, config Config, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		tools:         t,
		resolver:      r,
		canonicalizer: c,
		config:        config,
		logger:        log.With(map[string]interface{}{"component": "orchestrator"}),
	}
}

// RunStage runs tool under the stage timeout. A failing tool yields an
// error step with an empty raw output; it never aborts the caller.
func (o *Orchestrator) RunStage(ctx context.Context, name string, tool tools.Tool, input string) StageResult {
	ctx, span := tracer.Start(ctx, "stage "+name, trace.WithAttributes(
		attribute.String("pipeline.stage", name),
		attribute.String("pipeline.tool", tool.Name()),
	))
	defer span.End()
	start := time.Now()

	type output struct {
		raw string
		err error
	}
	out, err := providers.Call(ctx, o.config.StageTimeout, func(ctx context.Context) output {
		raw, err := tool.Run(ctx, input)
		return output{raw: raw, err: err}
	})
	if err == nil {
		err = out.err
	}
	duration := time.Since(start)

	res := StageResult{Name: name}
	status := models.StepCompleted
	var summary string
	if err != nil {
		status = models.StepError
		summary = "error: " + err.Error()
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("stage failed", map[string]interface{}{
			"stage":      name,
			"durationMs": duration.Milliseconds(),
			"error":      err.Error(),
		})
	} else {
		res.Raw = out.raw
		res.Parsed = parseJSON(out.raw)
		summary = Summarize(out.raw, res.Parsed)
		o.logger.Info(name+" completed", map[string]interface{}{
			"stage":      name,
			"durationMs": duration.Milliseconds(),
		})
	}

	metrics.PipelineStageDuration.WithLabelValues(name, string(status)).Observe(duration.Seconds())
	res.Step = models.NewPipelineStep(name, tool.Name(), status, duration, summary)
	return res
}

// Run executes NLU, LocationNER, Accessibility, Routes and Venue Info. NLU
// and LocationNER share the user input and may run concurrently. The only
// error is cancellation of ctx.
func (o *Orchestrator) Run(ctx context.Context, userInput string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	var nluRes, nerRes StageResult

	if o.config.ParallelExtraction {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			nluRes = o.RunStage(gctx, StageNLU, o.tools.NLU, userInput)
			return nil
		})
		g.Go(func() error {
			nerRes = o.RunStage(gctx, StageLocationNER, o.tools.LocationNER, userInput)
			return nil
		})
		_ = g.Wait()
	} else {
		nluRes = o.RunStage(ctx, StageNLU, o.tools.NLU, userInput)
		nerRes = o.RunStage(ctx, StageLocationNER, o.tools.LocationNER, userInput)
	}
	o.logLocationNER(nerRes)

	accRes := o.RunStage(ctx, StageAccessibility, o.tools.Accessibility, nluRes.Raw)
	routesRes := o.RunStage(ctx, StageRoutes, o.tools.Routes, accRes.Raw)
	venueRes := o.RunStage(ctx, StageVenueInfo, o.tools.VenueInfo, nluRes.Raw)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stages := []StageResult{nluRes, nerRes, accRes, routesRes, venueRes}
	result := &Result{
		Steps:             make([]models.PipelineStep, 0, len(stages)+1),
		Stages:            make([]models.StageOutput, 0, len(stages)),
		ToolResults:       make(map[string]string, len(stages)),
		ToolResultsParsed: make(map[string]interface{}, len(stages)),
	}
	for _, s := range stages {
		key := strings.ToLower(s.Name)
		result.Steps = append(result.Steps, s.Step)
		result.Stages = append(result.Stages, models.StageOutput{Name: s.Name, Raw: s.Raw})
		result.ToolResults[key] = s.Raw
		result.ToolResultsParsed[key] = s.Parsed
	}

	o.resolve(result, nluRes, nerRes)
	result.TourismData = o.canonicalizer.Canonicalize("tools", ToolRecord(accRes.Parsed, routesRes.Parsed, venueRes.Parsed))
	return result, nil
}

func (o *Orchestrator) resolve(result *Result, nluRes, nerRes StageResult) {
	var entities models.EntitySet
	if nluRes.Err == nil {
		if p, err := tools.ParseNLUPayload(nluRes.Raw); err == nil {
			result.NLU = &p
			result.Intent = p.Intent
			entities = p.EntitySet()
		}
	}

	locations := models.EmptyLocationResult("", "", "", models.LocationStatusError)
	if nerRes.Err == nil {
		if p, err := tools.ParseLocationPayload(nerRes.Raw); err == nil {
			result.Locations = &p
			locations = p.Result()
		}
	}

	result.Entities = o.resolver.Resolve(entities, locations.Locations, locations.TopLocation)
}

func (o *Orchestrator) logLocationNER(res StageResult) {
	fields := map[string]interface{}{
		"provider":       nil,
		"model":          nil,
		"language":       nil,
		"latency_ms":     nil,
		"location_count": 0,
		"status":         nil,
	}
	if m, ok := res.Parsed.(map[string]interface{}); ok {
		if locs, ok := m["locations"].([]interface{}); ok {
			fields["location_count"] = len(locs)
		}
		for _, k := range []string{"provider", "model", "language", "status"} {
			fields[k] = m[k]
		}
	}
	if res.Step.DurationMs != nil {
		fields["latency_ms"] = *res.Step.DurationMs
	}
	o.logger.Info("location_ner_observability", fields)
}

// ToolRecord assembles the canonicalizer input from the parsed Accessibility,
// Routes and Venue Info payloads. Missing payloads leave their part empty.
func ToolRecord(accessibility, routes, venueInfo interface{}) map[string]interface{} {
	acc, _ := accessibility.(map[string]interface{})
	rts, _ := routes.(map[string]interface{})
	info, _ := venueInfo.(map[string]interface{})

	record := map[string]interface{}{}

	if info != nil {
		venue := map[string]interface{}{
			"name":          info["venue"],
			"type":          info["type"],
			"opening_hours": info["opening_hours"],
			"pricing":       info["pricing"],
		}
		if acc != nil {
			venue["accessibility_score"] = acc["accessibility_score"]
			venue["certification"] = acc["certification"]
			venue["facilities"] = acc["facilities"]
		}
		record["venue"] = venue
	}

	if rts != nil {
		if list, ok := rts["routes"].([]interface{}); ok && len(list) > 0 {
			out := make([]interface{}, 0, len(list))
			for _, item := range list {
				r, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				route := make(map[string]interface{}, len(r)+1)
				for k, v := range r {
					route[k] = v
				}
				if _, ok := route["cost"]; !ok {
					route["cost"] = rts["estimated_cost"]
				}
				out = append(out, route)
			}
			record["routes"] = out
		}
	}

	if acc != nil {
		a := map[string]interface{}{
			"level":         acc["accessibility_level"],
			"score":         acc["accessibility_score"],
			"certification": acc["certification"],
			"facilities":    acc["facilities"],
		}
		if info != nil {
			a["services"] = info["accessibility_services"]
		}
		record["accessibility"] = a
	}

	return record
}

// Summarize prefers the intent, accessibility_level or venue value, then the
// first three top-level keys, then the start of raw.
func Summarize(raw string, parsed interface{}) string {
	m, ok := parsed.(map[string]interface{})
	if !ok {
		return models.Truncate(strings.TrimSpace(raw), rawSummaryLength)
	}
	for _, key := range []string{"intent", "accessibility_level", "venue"} {
		if v, ok := m[key]; ok && truthy(v) {
			return fmt.Sprint(v)
		}
	}
	keys := topLevelKeys(raw)
	if len(keys) > 3 {
		keys = keys[:3]
	}
	return strings.Join(keys, ",")
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	return true
}

func parseJSON(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}

// topLevelKeys returns the keys of a JSON object in document order.
func topLevelKeys(raw string) []string {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}
