package sourcing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/channel"
)

func TestHTTPChecker_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/observe", r.URL.Path)
		assert.Equal(t, "https://supplier.example/p/1", r.URL.Query().Get("url"))
		assert.Equal(t, "supplier", r.URL.Query().Get("source"))
		json.NewEncoder(w).Encode(map[string]any{
			"status":         "AVAILABLE",
			"price":          "12000",
			"original_price": "15000",
		})
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second, zap.NewNop())
	obs, err := checker.Check(context.Background(), "https://supplier.example/p/1", "supplier")
	require.NoError(t, err)

	assert.Equal(t, channel.ProductStatusAvailable, obs.Status)
	assert.Equal(t, "12000", obs.Price.String())
	assert.Equal(t, "15000", obs.OriginalPrice.String())
}

func TestHTTPChecker_Check_PriceIsOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "OUT_OF_STOCK"})
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second, zap.NewNop())
	obs, err := checker.Check(context.Background(), "https://supplier.example/p/1", "supplier")
	require.NoError(t, err)

	assert.Equal(t, channel.ProductStatusOutOfStock, obs.Status)
	assert.True(t, obs.Price.IsZero())
}

func TestHTTPChecker_Check_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			"server error is transient",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			channel.ErrTransientFetch,
		},
		{
			"unknown status is a schema error",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"status": "MAYBE"})
			},
			channel.ErrSchema,
		},
		{
			"unparseable price is a schema error",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"status": "AVAILABLE", "price": "cheap"})
			},
			channel.ErrSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			checker := NewHTTPChecker(srv.URL, time.Second, zap.NewNop())
			_, err := checker.Check(context.Background(), "https://supplier.example/p/1", "supplier")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
