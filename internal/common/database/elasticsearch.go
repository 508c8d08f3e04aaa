// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tourism-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client that serves the place-name index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	return newElasticsearch(elasticsearch.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
}

// NewElasticsearchWithTransport is used by tests to point the client at an httptest server.
func NewElasticsearchWithTransport(address string, transport http.RoundTripper) (*ElasticsearchClient, error) {
	return newElasticsearch(elasticsearch.Config{
		Addresses: []string{address},
		Transport: transport,
	})
}

func newElasticsearch(esCfg elasticsearch.Config) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}
