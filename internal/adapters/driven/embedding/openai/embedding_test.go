package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err, "API key is required")

	svc, err := NewEmbeddingService(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())

	svc, err = NewEmbeddingService(Config{APIKey: "sk", Model: "my-compatible-model"})
	require.NoError(t, err)
	assert.Zero(t, svc.Dimensions(), "unknown models have unknown dimensions")
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.0,1.0]},
			{"index":0,"embedding":[1.0,0.0]}
		]}`))
	}, Config{})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Zero(t, got.Dimensions, "native size is not sent")
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestEmbedBatch_SendsDimensionsHint(t *testing.T) {
	var got embeddingRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2,3]}]}`))
	}, Config{Model: "text-embedding-3-large", Dimensions: 256})

	_, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 256, got.Dimensions)
	assert.Equal(t, 256, svc.Dimensions())
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}, Config{})

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error payload", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, "Incorrect API key"},
		{"non-json error", http.StatusBadGateway, `upstream down`, "status 502: upstream down"},
		{"missing index", http.StatusOK, `{"data":[{"index":0,"embedding":[1]}]}`, "no embedding returned for input 1"},
		{"index out of range", http.StatusOK, `{"data":[{"index":5,"embedding":[1]}]}`, "out of range"},
		{"bad json", http.StatusOK, `{"data":`, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, Config{})

			_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

			assert.ErrorIs(t, err, domain.ErrEmbeddingService)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestEmbedBatch_Unreachable(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestPing(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = w.Write([]byte(`{"data":[]}`))
		}, Config{})
		assert.NoError(t, svc.Ping(context.Background()))
	})

	t.Run("unauthorized", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`bad key`))
		}, Config{})
		err := svc.Ping(context.Background())
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		assert.ErrorContains(t, err, "status 401")
	})
}
