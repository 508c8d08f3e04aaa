package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/logger"
)

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	pg := NewPostgresFromDB(db)
	mock.ExpectPing()
	mock.ExpectClose()

	require.NoError(t, pg.Ping(context.Background()))
	require.NoError(t, pg.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()

	ctx := context.Background()
	require.NoError(t, rc.Ping(ctx))

	_, found, err := rc.Get(ctx, "nlu:keyword:es:abc")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.Set(ctx, "nlu:keyword:es:abc", `{"intent":"route_planning"}`, time.Minute))
	value, found, err := rc.Get(ctx, "nlu:keyword:es:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"intent":"route_planning"}`, value)

	mr.FastForward(2 * time.Minute)
	_, found, err = rc.Get(ctx, "nlu:keyword:es:abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func esServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestElasticsearchClient_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"cluster error", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es, err := NewElasticsearch(config.ElasticsearchConfig{URL: esServer(t, tt.status).URL})
			require.NoError(t, err)

			err = es.Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpen_SelectsBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		cfg       *config.Config
		wantRedis bool
		wantES    bool
	}{
		{
			name: "nothing selected",
			cfg:  &config.Config{Catalog: config.CatalogConfig{Source: "embedded"}, NER: config.NERConfig{Provider: "gazetteer"}},
		},
		{
			name: "nlu cache",
			cfg: &config.Config{
				Catalog:  config.CatalogConfig{Source: "embedded"},
				NLU:      config.NLUConfig{Cache: config.NLUCacheConfig{Enabled: true}},
				Database: config.DatabaseConfig{Redis: config.RedisConfig{Address: mr.Addr()}},
			},
			wantRedis: true,
		},
		{
			name: "dead redis disables the cache",
			cfg: &config.Config{
				Catalog:  config.CatalogConfig{Source: "embedded"},
				NLU:      config.NLUConfig{Cache: config.NLUCacheConfig{Enabled: true}},
				Database: config.DatabaseConfig{Redis: config.RedisConfig{Address: "127.0.0.1:1"}},
			},
		},
		{
			name: "elasticsearch ner",
			cfg: &config.Config{
				Catalog:  config.CatalogConfig{Source: "embedded"},
				NER:      config.NERConfig{Provider: "elasticsearch"},
				Database: config.DatabaseConfig{Elasticsearch: config.ElasticsearchConfig{URL: esServer(t, http.StatusOK).URL}},
			},
			wantES: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conns, err := Open(context.Background(), tt.cfg, logger.NewTestLogger(t))
			require.NoError(t, err)
			defer conns.Close()

			assert.Nil(t, conns.Postgres)
			assert.Equal(t, tt.wantRedis, conns.Redis != nil)
			assert.Equal(t, tt.wantES, conns.Elasticsearch != nil)
		})
	}
}
