package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "tourism-workers/internal/common/errors"
	"tourism-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      string
	available bool
}

func (f *fakeProvider) IsAvailable() bool            { return f.available }
func (f *fakeProvider) SupportedLanguages() []string { return []string{"es"} }
func (f *fakeProvider) Info() map[string]interface{} {
	return map[string]interface{}{"provider": f.name, "available": f.available}
}

func ctorFor(name string, available bool) Constructor[*fakeProvider] {
	return func(Options) (*fakeProvider, error) {
		return &fakeProvider{name: name, available: available}, nil
	}
}

func newTestRegistry(t *testing.T) *Registry[*fakeProvider] {
	r := NewRegistry[*fakeProvider]("nlu", "keyword", logger.NewTestLogger(t))
	r.Register("keyword", ctorFor("keyword", true))
	return r
}

func TestRegistry_CreateFromConfig(t *testing.T) {
	tests := []struct {
		name         string
		register     map[string]bool
		configured   string
		wantProvider string
		wantErrCode  apperrors.ErrorCode
	}{
		{
			name:         "available provider is used",
			register:     map[string]bool{"genai": true},
			configured:   "genai",
			wantProvider: "genai",
		},
		{
			name:         "unavailable provider falls back silently",
			register:     map[string]bool{"genai": false},
			configured:   "genai",
			wantProvider: "keyword",
		},
		{
			name:         "names are normalized",
			register:     map[string]bool{"genai": true},
			configured:   "  GenAI ",
			wantProvider: "genai",
		},
		{
			name:         "empty name uses the fallback",
			configured:   "",
			wantProvider: "keyword",
		},
		{
			name:        "unknown name is an error",
			configured:  "bogus",
			wantErrCode: apperrors.ErrCodeUnknownProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			for name, available := range tt.register {
				r.Register(name, ctorFor(name, available))
			}

			p, err := r.CreateFromConfig(tt.configured, Options{Enabled: true})
			if tt.wantErrCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrCode, apperrors.Normalize(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, p.Info()["provider"])
		})
	}
}

func TestRegistry_ConstructorFailureFallsBack(t *testing.T) {
	r := newTestRegistry(t)
	r.Register("spacy", func(Options) (*fakeProvider, error) {
		return nil, errors.New("sidecar url missing")
	})

	p, err := r.CreateFromConfig("spacy", Options{})
	require.NoError(t, err)
	assert.Equal(t, "keyword", p.Info()["provider"])

	_, err = r.Create("spacy", Options{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProviderCallFailed, apperrors.Normalize(err).Code)
}

func TestRegistry_RegisterAtRuntime(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []string{"keyword"}, r.Names())

	r.Register("Custom", ctorFor("custom", true))
	assert.Equal(t, []string{"custom", "keyword"}, r.Names())

	p, err := r.Create("custom", Options{})
	require.NoError(t, err)
	assert.True(t, p.IsAvailable())
}

func TestRegistry_UnavailableFallbackStillReturned(t *testing.T) {
	r := NewRegistry[*fakeProvider]("ner", "gazetteer", logger.NewNoOpLogger())
	r.Register("gazetteer", ctorFor("gazetteer", false))

	p, err := r.CreateFromConfig("gazetteer", Options{})
	require.NoError(t, err)
	assert.Equal(t, "gazetteer", p.Info()["provider"])
}

func TestCall(t *testing.T) {
	t.Run("returns value", func(t *testing.T) {
		v, err := Call(context.Background(), time.Second, func(ctx context.Context) string { return "ok" })
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("times out on a provider ignoring its context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		start := time.Now()
		_, err := Call(context.Background(), 20*time.Millisecond, func(ctx context.Context) string {
			<-release
			return "late"
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCallTimeout))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("parent cancellation is reported as canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		block := make(chan struct{})
		defer close(block)

		_, err := Call(ctx, time.Second, func(ctx context.Context) int {
			<-block
			return 0
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCallCanceled))
	})

	t.Run("panics become errors", func(t *testing.T) {
		_, err := Call(context.Background(), time.Second, func(ctx context.Context) int {
			panic("boom")
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCallPanicked))
	})
}
