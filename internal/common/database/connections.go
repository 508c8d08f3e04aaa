package database

import (
	"context"
	"fmt"
	"strings"

	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/logger"
)

// Connections holds the backends required by the configured providers.
// Fields are nil when nothing in the configuration selects them.
type Connections struct {
	Postgres      *PostgresClient
	Redis         *RedisClient
	Elasticsearch *ElasticsearchClient
}

// Open connects only to what cfg selects: Postgres for catalog.source=postgres,
// Redis for nlu.cache.enabled and Elasticsearch for ner.provider=elasticsearch.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Connections, error) {
	conns := &Connections{}

	if cfg.Catalog.Source == "postgres" {
		pg, err := NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		conns.Postgres = pg
		log.Info("postgres connected", map[string]interface{}{"host": cfg.Database.Postgres.Host})
	}

	if cfg.NLU.Cache.Enabled {
		rc, err := NewRedis(cfg.Database.Redis)
		if err != nil {
			conns.Close()
			return nil, err
		}
		// cache is optional; a dead redis only disables caching
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, NLU cache disabled", map[string]interface{}{"error": err.Error()})
			_ = rc.Close()
		} else {
			conns.Redis = rc
		}
	}

	if strings.EqualFold(cfg.NER.Provider, "elasticsearch") {
		es, err := NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			conns.Close()
			return nil, err
		}
		if err := es.Ping(ctx); err != nil {
			log.Warn("elasticsearch unreachable at startup", map[string]interface{}{"error": err.Error()})
		}
		conns.Elasticsearch = es
	}

	return conns, nil
}

func (c *Connections) Close() {
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
