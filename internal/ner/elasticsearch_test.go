package ner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tourism-workers/internal/common/database"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchServer(t *testing.T, status int, body string) (*elasticsearch.Client, *string) {
	t.Helper()
	var lastQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/_search") {
			b, _ := io.ReadAll(r.Body)
			lastQuery = string(b)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	es, err := database.NewElasticsearchWithTransport(server.URL, http.DefaultTransport)
	require.NoError(t, err)
	return es.Client, &lastQuery
}

const placeHits = `{
  "hits": {
    "hits": [
      {"_score": 9.1, "_source": {"name": "Museo del Prado", "aliases": ["prado"], "kind": "museum"}},
      {"_score": 4.2, "_source": {"name": "Paseo del Prado", "aliases": [], "kind": "street"}},
      {"_score": 3.0, "_source": {"name": "Madrid", "aliases": [], "kind": "city"}},
      {"_score": 1.0, "_source": {"name": "", "aliases": []}}
    ]
  }
}`

func TestElasticsearchProvider_ExtractLocations(t *testing.T) {
	client, lastQuery := newSearchServer(t, http.StatusOK, placeHits)
	p := NewElasticsearchProvider(&ElasticsearchConfig{Index: "tourism_places", Enabled: true}, client, logger.NewTestLogger(t))

	res := p.ExtractLocations(context.Background(), "Quiero ir al Prado en Madrid", "ES")

	assert.Equal(t, models.LocationStatusOK, res.Status)
	assert.Equal(t, []string{"Museo del Prado", "Madrid"}, res.Locations)
	assert.Equal(t, "tourism_places", res.Model)
	assert.Equal(t, "es", res.Language)

	var query map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*lastQuery), &query))
	assert.Equal(t, float64(defaultSearchSize), query["size"])
	assert.Contains(t, *lastQuery, "Quiero ir al Prado en Madrid")
}

func TestElasticsearchProvider_Errors(t *testing.T) {
	t.Run("index missing", func(t *testing.T) {
		client, _ := newSearchServer(t, http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`)
		p := NewElasticsearchProvider(&ElasticsearchConfig{Index: "tourism_places", Enabled: true}, client, logger.NewNoOpLogger())

		res := p.ExtractLocations(context.Background(), "Madrid", "")
		assert.Equal(t, models.LocationStatusError, res.Status)
		assert.Contains(t, res.Error, "INDEX_NOT_FOUND")
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newSearchServer(t, http.StatusInternalServerError, `{}`)
		p := NewElasticsearchProvider(&ElasticsearchConfig{Index: "tourism_places", Enabled: true}, client, logger.NewNoOpLogger())

		res := p.ExtractLocations(context.Background(), "Madrid", "")
		assert.Equal(t, models.LocationStatusError, res.Status)
		assert.Contains(t, res.Error, "SEARCH_QUERY_FAILED")
	})

	t.Run("no client", func(t *testing.T) {
		p := NewElasticsearchProvider(&ElasticsearchConfig{Index: "tourism_places", Enabled: true}, nil, logger.NewNoOpLogger())
		res := p.ExtractLocations(context.Background(), "Madrid", "")
		assert.Equal(t, models.LocationStatusProviderUnavailable, res.Status)
		assert.False(t, p.IsAvailable())
	})

	t.Run("empty input", func(t *testing.T) {
		p := NewElasticsearchProvider(&ElasticsearchConfig{Index: "tourism_places", Enabled: true}, nil, logger.NewNoOpLogger())
		res := p.ExtractLocations(context.Background(), "", "")
		assert.Equal(t, models.LocationStatusEmptyInput, res.Status)
	})
}
