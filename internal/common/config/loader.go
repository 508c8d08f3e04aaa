// internal/common/config/loader.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, e.g. configs/config.production.yaml
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// NLU_PROVIDER overrides nlu.provider, DATABASE_REDIS_ADDRESS overrides database.redis.address
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)
	if err := normalizeModelMap(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// normalizeModelMap lets ner.model_map be written either as a YAML mapping
// or as a JSON string (the form used by the NER_MODEL_MAP env var).
func normalizeModelMap(v *viper.Viper) error {
	raw := v.Get("ner.model_map")
	switch m := raw.(type) {
	case nil, string:
		return nil
	case map[string]interface{}:
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("ner.model_map: %w", err)
		}
		v.Set("ner.model_map", string(b))
		return nil
	default:
		return fmt.Errorf("ner.model_map: unsupported type %T", raw)
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.GenAI.APIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.APIKey = val
		}
	}
	if cfg.NER.ModelMap == "" {
		if val := os.Getenv("NER_MODEL_MAP"); val != "" {
			cfg.NER.ModelMap = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tourism-workers"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 60000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 3
	}
	if cfg.APIs.GenAI.MaxTokens == 0 {
		cfg.APIs.GenAI.MaxTokens = 1500
	}

	if cfg.NLU.Provider == "" {
		cfg.NLU.Provider = "keyword"
	}
	if cfg.NLU.DefaultLanguage == "" {
		cfg.NLU.DefaultLanguage = "es"
	}
	if cfg.NLU.ConfidenceThreshold == 0 {
		cfg.NLU.ConfidenceThreshold = 0.4
	}
	if cfg.NLU.Timeout == 0 {
		cfg.NLU.Timeout = 8000
	}
	if cfg.NLU.Cache.TTL == 0 {
		cfg.NLU.Cache.TTL = 900
	}

	if cfg.NER.Provider == "" {
		cfg.NER.Provider = "gazetteer"
	}
	if cfg.NER.DefaultLanguage == "" {
		cfg.NER.DefaultLanguage = "es"
	}
	if cfg.NER.FallbackModel == "" {
		cfg.NER.FallbackModel = "es_core_news_sm"
	}
	if cfg.NER.ConfidenceThreshold == 0 {
		cfg.NER.ConfidenceThreshold = 0.6
	}
	if cfg.NER.Timeout == 0 {
		cfg.NER.Timeout = 5000
	}
	if cfg.NER.Index == "" {
		cfg.NER.Index = "tourism_places"
	}

	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = 10000
	}
	if cfg.Pipeline.ProviderTimeout == 0 {
		cfg.Pipeline.ProviderTimeout = 8000
	}
	if cfg.Pipeline.GenerationTimeout == 0 {
		cfg.Pipeline.GenerationTimeout = 60000
	}

	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = "embedded"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}

// validateConfig only requires the backends that the selected providers use.
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Catalog.Source == "postgres" {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when catalog.source is postgres")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when catalog.source is postgres")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required when catalog.source is postgres")
		}
	}
	if cfg.Catalog.Source == "file" && cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required when catalog.source is file")
	}
	switch cfg.Catalog.Source {
	case "embedded", "file", "postgres":
	default:
		return fmt.Errorf("catalog.source must be one of embedded, file, postgres (got %q)", cfg.Catalog.Source)
	}

	if strings.EqualFold(cfg.NER.Provider, "elasticsearch") && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch NER provider")
	}
	if strings.EqualFold(cfg.NER.Provider, "spacy") && cfg.NER.ServiceURL == "" {
		return fmt.Errorf("ner.service_url is required for the spacy NER provider")
	}

	if cfg.NLU.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when nlu.cache.enabled is true")
	}

	if cfg.NLU.ConfidenceThreshold < 0 || cfg.NLU.ConfidenceThreshold > 1 {
		return fmt.Errorf("nlu.confidence_threshold must be within [0,1]")
	}
	if cfg.NER.ConfidenceThreshold < 0 || cfg.NER.ConfidenceThreshold > 1 {
		return fmt.Errorf("ner.confidence_threshold must be within [0,1]")
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1]")
	}

	if _, err := cfg.NER.ModelMapping(); err != nil {
		return err
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
