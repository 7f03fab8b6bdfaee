package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylarkml/skylark/internal/bootstrap"
	"github.com/skylarkml/skylark/pkg/config"
	"github.com/skylarkml/skylark/pkg/registry"
	"github.com/skylarkml/skylark/pkg/store/offline"
	"github.com/skylarkml/skylark/pkg/store/online"
)

func newTestServer(t *testing.T) (*Server, *online.MemoryStore) {
	t.Helper()
	mem := online.NewMemoryStore()
	parquet, err := offline.NewParquetStore(offline.ParquetOptions{RootPath: t.TempDir()})
	require.NoError(t, err)

	reg := registry.New("test-store", mem, parquet)
	require.NoError(t, bootstrap.SeedCustomerMetrics(reg))

	cfg := config.Default()
	cfg.Name = "skylark-test"
	return New(cfg, reg), mem
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	decoded := make(map[string]interface{})
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "skylark-test", body["service"])
}

func TestListGroups(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodGet, "/groups", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	groups, ok := body["groups"].([]interface{})
	require.True(t, ok)
	require.Len(t, groups, 1)
	g := groups[0].(map[string]interface{})
	assert.Equal(t, "customer_metrics", g["name"])
	assert.Equal(t, "customer", g["entity"])
	assert.Equal(t, float64(3), g["num_features"])
}

func TestListFeatures(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodGet, "/features", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	features, ok := body["features"].([]interface{})
	require.True(t, ok)
	require.Len(t, features, 3)
	first := features[0].(map[string]interface{})
	assert.Equal(t, "total_spent", first["name"])
	assert.Equal(t, "active", first["status"])
}

func TestFeatureMetadata(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("found", func(t *testing.T) {
		resp, body := doJSON(t, s, http.MethodGet, "/features/customer/avg_order_value/metadata", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "avg_order_value", body["name"])
		assert.Equal(t, "numerical", body["type"])
		assert.Equal(t, "customer", body["entity"])
	})

	t.Run("unknown feature", func(t *testing.T) {
		resp, body := doJSON(t, s, http.MethodGet, "/features/customer/no_such_feature/metadata", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body["error"], "no_such_feature")
	})
}

func TestIngestAndRead(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodPost, "/ingest/customer_metrics/C1",
		map[string]interface{}{"total_spent": 1500.0, "total_purchases": 15.0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "C1", body["entity_id"])
	assert.NotContains(t, body, "warning")

	resp, body = doJSON(t, s, http.MethodGet, "/features/customer_metrics/C1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", body["avg_order_value"])
	assert.Equal(t, "1500", body["total_spent"])
}

func TestIngest_ExplicitTimestamp(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodPost, "/ingest/customer_metrics/C1",
		map[string]interface{}{
			"total_spent":     200.0,
			"total_purchases": 2.0,
			"timestamp":       "2025-03-14T12:00:00Z",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "2025-03-14T12:00:00Z", body["timestamp"])
}

func TestIngest_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("empty body", func(t *testing.T) {
		resp, body := doJSON(t, s, http.MethodPost, "/ingest/customer_metrics/C1",
			map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "no data provided", body["error"])
	})

	t.Run("unknown group", func(t *testing.T) {
		resp, _ := doJSON(t, s, http.MethodPost, "/ingest/no_such_group/C1",
			map[string]interface{}{"x": 1.0})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("validation failure", func(t *testing.T) {
		resp, body := doJSON(t, s, http.MethodPost, "/ingest/customer_metrics/C1",
			map[string]interface{}{"total_spent": -50.0, "total_purchases": 10.0})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["error"], "total_spent")
	})
}

func TestIngest_OnlineFailureWarns(t *testing.T) {
	s, mem := newTestServer(t)
	mem.FailWrites(true)

	resp, body := doJSON(t, s, http.MethodPost, "/ingest/customer_metrics/C9",
		map[string]interface{}{"total_spent": 90.0, "total_purchases": 9.0})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "ingest succeeds when only the cache refresh fails")
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body, "warning")
}

func TestOnlineFeatures(t *testing.T) {
	s, _ := newTestServer(t)

	_, _ = doJSON(t, s, http.MethodPost, "/ingest/customer_metrics/C1",
		map[string]interface{}{"total_spent": 1500.0, "total_purchases": 15.0})

	t.Run("projection", func(t *testing.T) {
		resp, body := doJSON(t, s, http.MethodGet,
			"/features/customer_metrics/C1?features=avg_order_value,total_spent", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "100", body["avg_order_value"])
		assert.Equal(t, "1500", body["total_spent"])
		assert.NotContains(t, body, "total_purchases")
		assert.NotContains(t, body, "entity_id")
	})

	t.Run("unknown entity", func(t *testing.T) {
		resp, body := doJSON(t, s, http.MethodGet, "/features/customer_metrics/ghost", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body["error"], "ghost")
	})

	t.Run("unknown group", func(t *testing.T) {
		resp, _ := doJSON(t, s, http.MethodGet, "/features/no_such_group/C1", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
