// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-workers/internal/bootstrap"
	"tourism-workers/internal/common/camunda"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"
	"tourism-workers/internal/pipeline"

	aq "tourism-workers/internal/workers/tourism/analyze-query"
	cd "tourism-workers/internal/workers/tourism/canonicalize-data"
)

const (
	configPath   = "../../configs/config.yaml"
	registryPath = "../../configs/profiles.json"
	processID    = "tourism-assistant-e2e"
)

// processBPMN chains both service tasks: the answer produced by
// analyze-tourism-query is fed back through canonicalize-tourism-data.
const processBPMN = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL"
  xmlns:zeebe="http://camunda.org/schema/zeebe/1.0"
  id="Definitions_TourismE2E" targetNamespace="http://bpmn.io/schema/bpmn">
  <bpmn:process id="tourism-assistant-e2e" isExecutable="true">
    <bpmn:startEvent id="Start" />
    <bpmn:sequenceFlow id="Flow_1" sourceRef="Start" targetRef="AnalyzeQuery" />
    <bpmn:serviceTask id="AnalyzeQuery">
      <bpmn:extensionElements>
        <zeebe:taskDefinition type="analyze-tourism-query" retries="1" />
      </bpmn:extensionElements>
    </bpmn:serviceTask>
    <bpmn:sequenceFlow id="Flow_2" sourceRef="AnalyzeQuery" targetRef="Canonicalize" />
    <bpmn:serviceTask id="Canonicalize">
      <bpmn:extensionElements>
        <zeebe:taskDefinition type="canonicalize-tourism-data" retries="1" />
        <zeebe:ioMapping>
          <zeebe:input source="=responseText" target="llmText" />
          <zeebe:output source="=valid" target="canonicalValid" />
        </zeebe:ioMapping>
      </bpmn:extensionElements>
    </bpmn:serviceTask>
    <bpmn:sequenceFlow id="Flow_3" sourceRef="Canonicalize" targetRef="End" />
    <bpmn:endEvent id="End" />
  </bpmn:process>
</bpmn:definitions>`

func loadConfig(t testing.TB) *config.Config {
	t.Helper()
	if os.Getenv("ZEEBE_ADDRESS") == "" {
		os.Setenv("ZEEBE_ADDRESS", "localhost:26500")
	}

	cfg, err := config.LoadFromFile(configPath)
	require.NoError(t, err)

	// Offline-capable stack: deterministic providers and the template generator.
	cfg.NLU.Provider = "keyword"
	cfg.NLU.Cache.Enabled = false
	cfg.NER.Provider = "gazetteer"
	cfg.Catalog.Source = "embedded"
	cfg.APIs.GenAI.Mode = "template"
	cfg.Profiles.RegistryPath = registryPath
	return cfg
}

func build(t testing.TB, cfg *config.Config) *bootstrap.Components {
	t.Helper()
	c, err := bootstrap.Build(context.Background(), cfg, nil, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	return c
}

func TestConfigFilesLoad(t *testing.T) {
	cfg := loadConfig(t)

	assert.Equal(t, "tourism-workers", cfg.App.Name)
	assert.True(t, config.IsWorkerEnabled(cfg, "analyze-query"))
	assert.True(t, config.IsWorkerEnabled(cfg, "canonicalize-data"))

	mapping, err := cfg.NER.ModelMapping()
	require.NoError(t, err)
	assert.Equal(t, "es_core_news_md", mapping["es"])

	c := build(t, cfg)
	var ids []string
	for _, p := range c.Profiles.List() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"cultural", "family", "night_leisure"}, ids)
}

func TestAnalyzeThenCanonicalize(t *testing.T) {
	cfg := loadConfig(t)
	c := build(t, cfg)
	log := logger.NewTestLogger(t)

	analyze, err := aq.NewHandler(aq.HandlerOptions{AppConfig: cfg, Processor: c.Agent, Logger: log})
	require.NoError(t, err)
	canonicalize, err := cd.NewHandler(cd.HandlerOptions{AppConfig: cfg, Logger: log})
	require.NoError(t, err)

	tests := []struct {
		name        string
		input       aq.Input
		wantIntent  string
		wantVenue   string
		wantProfile bool
	}{
		{
			name:       "prado in wheelchair",
			input:      aq.Input{Text: "Necesito ir al Museo del Prado en silla de ruedas"},
			wantIntent: "route_planning",
			wantVenue:  "Museo del Prado",
		},
		{
			name:        "concert with profile",
			input:       aq.Input{Text: "Busco un concierto esta noche", ProfileID: "night_leisure"},
			wantIntent:  "event_search",
			wantProfile: true,
		},
		{
			name:       "unknown profile is ignored",
			input:     aq.Input{Text: "Quiero visitar el Reina Sofía", ProfileID: "does_not_exist"},
			wantVenue: "Museo Reina Sofía",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			out, err := analyze.Execute(ctx, &tt.input)
			require.NoError(t, err)

			assert.NotEmpty(t, out.RunID)
			assert.NotEmpty(t, out.ResponseText)
			assert.False(t, out.Degraded)
			if tt.wantIntent != "" {
				assert.Equal(t, tt.wantIntent, out.Intent)
			}
			assertStageOrder(t, out.PipelineSteps)
			for _, stage := range []string{pipeline.StageNLU, pipeline.StageLocationNER, pipeline.StageAccessibility, pipeline.StageRoutes, pipeline.StageVenueInfo} {
				assert.Contains(t, out.ToolResults, strings.ToLower(stage))
			}
			if tt.wantVenue != "" {
				require.NotNil(t, out.TourismData)
				assert.Equal(t, tt.wantVenue, out.TourismData.Venue.Name)
			}
			if tt.wantProfile {
				assert.Equal(t, tt.input.ProfileID, out.ProfileID)
			} else {
				assert.Empty(t, out.ProfileID)
			}

			// The answer text must survive a round trip through the second worker.
			canon := canonicalize.Execute(&cd.Input{LLMText: out.ResponseText})
			assert.NotContains(t, canon.CleanText, "```json")
			assert.True(t, strings.HasPrefix(out.ResponseText, canon.CleanText))
		})
	}
}

func assertStageOrder(t *testing.T, steps []models.PipelineStep) {
	t.Helper()
	index := map[string]int{}
	for i, s := range steps {
		index[s.Name] = i
		assert.NotEqual(t, models.StepPending, s.Status, s.Name)
	}
	require.Len(t, steps, 6)
	assert.Less(t, index[pipeline.StageNLU], index[pipeline.StageLocationNER])
	assert.Less(t, index[pipeline.StageLocationNER], index[pipeline.StageAccessibility])
	assert.Less(t, index[pipeline.StageAccessibility], index[pipeline.StageRoutes])
	assert.Less(t, index[pipeline.StageRoutes], index[pipeline.StageVenueInfo])
	assert.Equal(t, pipeline.ResponseStepName, steps[5].Name)
}

func TestCanonicalizeToolRecord(t *testing.T) {
	cfg := loadConfig(t)
	canonicalize, err := cd.NewHandler(cd.HandlerOptions{AppConfig: cfg, Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)

	out := canonicalize.Execute(&cd.Input{RawData: map[string]interface{}{
		"venue": map[string]interface{}{
			"name":                "Museo del Prado",
			"accessibility_score": 9.234,
			"facilities":          "Rampas, Ascensores; baños adaptados",
		},
		"accessibility": map[string]interface{}{
			"level": "Acceso completo en silla de ruedas",
			"score": 15,
		},
	}})

	require.True(t, out.Valid)
	require.NotNil(t, out.TourismData.Venue)
	assert.InDelta(t, 9.23, *out.TourismData.Venue.AccessibilityScore, 1e-9)
	assert.Equal(t, "full_wheelchair_access", out.TourismData.Accessibility.Level)
	assert.InDelta(t, 10.0, *out.TourismData.Accessibility.Score, 1e-9)
}

// TestLiveZeebe runs the process on a real broker. It needs a gateway at
// E2E_ZEEBE_ADDRESS and is skipped otherwise.
func TestLiveZeebe(t *testing.T) {
	address := os.Getenv("E2E_ZEEBE_ADDRESS")
	if address == "" {
		t.Skip("E2E_ZEEBE_ADDRESS not set")
	}

	cfg := loadConfig(t)
	cfg.Camunda.BrokerAddress = address
	c := build(t, cfg)
	log := logger.NewTestLogger(t)

	client, err := camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	require.NoError(t, client.HealthCheck(ctx))

	analyze, err := aq.NewHandler(aq.HandlerOptions{AppConfig: cfg, Camunda: client, Processor: c.Agent, Logger: log})
	require.NoError(t, err)
	canonicalize, err := cd.NewHandler(cd.HandlerOptions{AppConfig: cfg, Camunda: client, Logger: log})
	require.NoError(t, err)

	require.NoError(t, analyze.Register())
	defer analyze.Close(context.Background())
	require.NoError(t, canonicalize.Register())
	defer canonicalize.Close(context.Background())

	definitionKey, err := client.DeployProcess(ctx, processID+".bpmn", []byte(processBPMN))
	require.NoError(t, err)
	assert.NotZero(t, definitionKey)

	variables, err := client.RunProcess(ctx, processID, map[string]interface{}{
		"text":     "Necesito ir al Museo del Prado en silla de ruedas",
		"language": "es",
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(variables), &got))
	assert.Equal(t, "route_planning", got["intent"])
	assert.NotEmpty(t, got["runId"])
	assert.Equal(t, false, got["degraded"])
	assert.Contains(t, got, "canonicalValid")
}

func BenchmarkAgentProcess(b *testing.B) {
	c := build(b, loadConfig(b))
	req := pipeline.Request{Text: "Necesito ir al Museo del Prado en silla de ruedas"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Agent.Process(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
