package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	APIs     APIsConfig              `mapstructure:"apis"`
	NLU      NLUConfig               `mapstructure:"nlu"`
	NER      NERConfig               `mapstructure:"ner"`
	Pipeline PipelineConfig          `mapstructure:"pipeline"`
	Catalog  CatalogConfig           `mapstructure:"catalog"`
	Profiles ProfilesConfig          `mapstructure:"profiles"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
	Server   ServerConfig            `mapstructure:"server"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

type GenAIConfig struct {
	Mode              string  `mapstructure:"mode"` // gateway | template
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Timeout           int     `mapstructure:"timeout"` // milliseconds
	MaxRetries        int     `mapstructure:"max_retries"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type NLUConfig struct {
	Provider            string         `mapstructure:"provider"`
	Enabled             bool           `mapstructure:"enabled"`
	DefaultLanguage     string         `mapstructure:"default_language"`
	Model               string         `mapstructure:"model"`
	ConfidenceThreshold float64        `mapstructure:"confidence_threshold"`
	Timeout             int            `mapstructure:"timeout"` // milliseconds
	PatternsPath        string         `mapstructure:"patterns_path"`
	Cache               NLUCacheConfig `mapstructure:"cache"`
}

type NLUCacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // seconds
}

type NERConfig struct {
	Provider            string  `mapstructure:"provider"`
	Enabled             bool    `mapstructure:"enabled"`
	DefaultLanguage     string  `mapstructure:"default_language"`
	ModelMap            string  `mapstructure:"model_map"` // JSON object: {"es":"es_core_news_md"}
	FallbackModel       string  `mapstructure:"fallback_model"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	ServiceURL          string  `mapstructure:"service_url"`
	Timeout             int     `mapstructure:"timeout"` // milliseconds
	Index               string  `mapstructure:"index"`
	GazetteerPath       string  `mapstructure:"gazetteer_path"`
	RequestsPerSecond   float64 `mapstructure:"requests_per_second"`
	Burst               int     `mapstructure:"burst"`
}

// DefaultNERModelMap is used when ner.model_map is empty or malformed.
var DefaultNERModelMap = map[string]string{
	"es": "es_core_news_md",
	"en": "en_core_web_sm",
}

// ModelMapping parses ModelMap into a lower-cased language → model map.
func (n NERConfig) ModelMapping() (map[string]string, error) {
	raw := strings.TrimSpace(n.ModelMap)
	if raw == "" {
		return copyMap(DefaultNERModelMap), nil
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return copyMap(DefaultNERModelMap), fmt.Errorf("ner.model_map: %w", err)
	}

	out := make(map[string]string, len(parsed))
	for lang, model := range parsed {
		lang = strings.ToLower(strings.TrimSpace(lang))
		model = strings.TrimSpace(model)
		if lang == "" || model == "" {
			continue
		}
		out[lang] = model
	}
	if len(out) == 0 {
		return copyMap(DefaultNERModelMap), nil
	}
	return out, nil
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type PipelineConfig struct {
	StageTimeout       int  `mapstructure:"stage_timeout"`      // milliseconds
	ProviderTimeout    int  `mapstructure:"provider_timeout"`   // milliseconds
	GenerationTimeout  int  `mapstructure:"generation_timeout"` // milliseconds
	ParallelExtraction bool `mapstructure:"parallel_extraction"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source"` // embedded | file | postgres
	Path   string `mapstructure:"path"`
}

type ProfilesConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"` // e.g. http://jaeger:14268/api/traces
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}
