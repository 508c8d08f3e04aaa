// Package bootstrap assembles the provider registries, tools, pipeline and
// agent from a loaded configuration. Both the worker manager and the CLI
// build their components through Build.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tourism-workers/internal/canonical"
	"tourism-workers/internal/catalog"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/database"
	commonhttp "tourism-workers/internal/common/http"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/genai"
	"tourism-workers/internal/ner"
	"tourism-workers/internal/nlu"
	"tourism-workers/internal/pipeline"
	"tourism-workers/internal/profiles"
	"tourism-workers/internal/providers"
	"tourism-workers/internal/resolver"
	"tourism-workers/internal/tools"

	"github.com/elastic/go-elasticsearch/v8"
)

type Components struct {
	Catalog       *catalog.Catalog
	Profiles      *profiles.Service
	Canonicalizer *canonical.Canonicalizer
	Extractor     *pipeline.Extractor
	NLU           *nlu.Resolver
	NER           *ner.Resolver
	Generator     genai.Generator
	Orchestrator  *pipeline.Orchestrator
	Agent         *pipeline.Agent
}

// Build wires every component. conns may be nil or partially filled; the
// providers that need a missing backend fall back through their registry.
func Build(ctx context.Context, cfg *config.Config, conns *database.Connections, recorder pipeline.RunRecorder, log logger.Logger) (*Components, error) {
	if conns == nil {
		conns = &database.Connections{}
	}

	var db *sql.DB
	if conns.Postgres != nil {
		db = conns.Postgres.DB
	}
	cat, err := catalog.Load(ctx, cfg.Catalog, db, log)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	profileService, err := profiles.Load(cfg.Profiles.RegistryPath, log)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	nluResolver, err := buildNLU(cfg, conns, log)
	if err != nil {
		return nil, err
	}
	nerResolver, err := buildNER(cfg, conns, log)
	if err != nil {
		return nil, err
	}

	canon := canonical.NewCanonicalizer(log)
	extractor := pipeline.NewExtractor(canon, log)

	orchestrator := pipeline.NewOrchestrator(pipeline.Tools{
		NLU:           tools.NewNLUTool(nluResolver, log),
		LocationNER:   tools.NewLocationNERTool(nerResolver, log),
		Accessibility: tools.NewAccessibilityTool(cat, log),
		Routes:        tools.NewRoutesTool(cat, log),
		VenueInfo:     tools.NewVenueInfoTool(cat, log),
	}, resolver.NewEntityResolver(log), canon, pipeline.Config{
		StageTimeout:       config.GetDuration(cfg.Pipeline.StageTimeout),
		ParallelExtraction: cfg.Pipeline.ParallelExtraction,
	}, log)

	generator := buildGenerator(cfg, log)

	agent := pipeline.NewAgent(orchestrator, generator, extractor, profileService, recorder, pipeline.AgentConfig{
		GenerationTimeout: config.GetDuration(cfg.Pipeline.GenerationTimeout),
		DefaultLanguage:   cfg.NLU.DefaultLanguage,
	}, log)

	log.Info("pipeline assembled", map[string]interface{}{
		"nluProvider":     providerLabel(nluResolver.Primary().Info()),
		"nerProvider":     providerLabel(nerResolver.Primary().Info()),
		"generator":       generator.Name(),
		"catalogVersion":  cat.Version,
		"profilesVersion": profileService.Version(),
	})

	return &Components{
		Catalog:       cat,
		Profiles:      profileService,
		Canonicalizer: canon,
		Extractor:     extractor,
		NLU:           nluResolver,
		NER:           nerResolver,
		Generator:     generator,
		Orchestrator:  orchestrator,
		Agent:         agent,
	}, nil
}

func buildNLU(cfg *config.Config, conns *database.Connections, log logger.Logger) (*nlu.Resolver, error) {
	tables, err := nlu.DefaultTables()
	if cfg.NLU.PatternsPath != "" {
		tables, err = nlu.LoadTables(cfg.NLU.PatternsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load keyword tables: %w", err)
	}

	genaiCfg := cfg.APIs.GenAI
	httpClient := commonhttp.NewClient(config.GetDuration(genaiCfg.Timeout),
		commonhttp.WithRateLimit(genaiCfg.RequestsPerSecond, genaiCfg.Burst))

	reg := nlu.NewRegistry(tables, log)
	reg.Register(nlu.ProviderGenAI, nlu.GenAIConstructor(nlu.GenAIConfig{
		BaseURL:    genaiCfg.BaseURL,
		APIKey:     genaiCfg.APIKey,
		MaxRetries: genaiCfg.MaxRetries,
	}, httpClient, log))

	opts := providers.Options{
		Enabled:             cfg.NLU.Enabled,
		DefaultLanguage:     cfg.NLU.DefaultLanguage,
		Model:               cfg.NLU.Model,
		ConfidenceThreshold: cfg.NLU.ConfidenceThreshold,
		Timeout:             config.GetDuration(cfg.NLU.Timeout),
	}
	primary, err := reg.CreateFromConfig(cfg.NLU.Provider, opts)
	if err != nil {
		return nil, fmt.Errorf("nlu provider: %w", err)
	}
	fallback, err := reg.Create(reg.FallbackName(), opts)
	if err != nil {
		return nil, fmt.Errorf("nlu fallback provider: %w", err)
	}

	if cfg.NLU.Cache.Enabled && conns.Redis != nil {
		ttl := time.Duration(cfg.NLU.Cache.TTL) * time.Second
		primary = nlu.NewCachedProvider(primary, conns.Redis, ttl, log)
	}

	return nlu.NewResolver(primary, fallback, config.GetDuration(cfg.Pipeline.ProviderTimeout), log), nil
}

func buildNER(cfg *config.Config, conns *database.Connections, log logger.Logger) (*ner.Resolver, error) {
	gaz, err := ner.DefaultGazetteer()
	if cfg.NER.GazetteerPath != "" {
		gaz, err = ner.LoadGazetteer(cfg.NER.GazetteerPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}

	modelMap, err := cfg.NER.ModelMapping()
	if err != nil {
		log.Warn("invalid ner.model_map, using defaults", map[string]interface{}{"error": err.Error()})
	}

	reg := ner.NewRegistry(gaz, log)
	sidecar := commonhttp.NewClient(config.GetDuration(cfg.NER.Timeout),
		commonhttp.WithRateLimit(cfg.NER.RequestsPerSecond, cfg.NER.Burst))
	reg.Register(ner.ProviderSpacy, ner.SpacyConstructor(ner.SpacyConfig{
		ServiceURL:    cfg.NER.ServiceURL,
		ModelMap:      modelMap,
		FallbackModel: cfg.NER.FallbackModel,
	}, sidecar, log))

	var es *elasticsearch.Client
	if conns.Elasticsearch != nil {
		es = conns.Elasticsearch.Client
	}
	reg.Register(ner.ProviderElasticsearch, ner.ElasticsearchConstructor(ner.ElasticsearchConfig{
		Index: cfg.NER.Index,
	}, es, log))

	opts := providers.Options{
		Enabled:             cfg.NER.Enabled,
		DefaultLanguage:     cfg.NER.DefaultLanguage,
		ConfidenceThreshold: cfg.NER.ConfidenceThreshold,
		Timeout:             config.GetDuration(cfg.NER.Timeout),
	}
	primary, err := reg.CreateFromConfig(cfg.NER.Provider, opts)
	if err != nil {
		return nil, fmt.Errorf("ner provider: %w", err)
	}
	fallback, err := reg.Create(reg.FallbackName(), opts)
	if err != nil {
		return nil, fmt.Errorf("ner fallback provider: %w", err)
	}

	return ner.NewResolver(primary, fallback, config.GetDuration(cfg.Pipeline.ProviderTimeout), log), nil
}

func buildGenerator(cfg *config.Config, log logger.Logger) genai.Generator {
	g := cfg.APIs.GenAI
	client := genai.NewClient(&genai.Config{
		BaseURL:     g.BaseURL,
		APIKey:      g.APIKey,
		Model:       g.Model,
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
		MaxRetries:  g.MaxRetries,
	}, commonhttp.NewClient(config.GetDuration(g.Timeout),
		commonhttp.WithRateLimit(g.RequestsPerSecond, g.Burst)), log)
	return genai.New(g.Mode, client)
}

func providerLabel(info map[string]interface{}) string {
	if name, ok := info["provider"].(string); ok {
		return name
	}
	return "unknown"
}
