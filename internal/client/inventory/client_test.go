package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

func TestClientCheck_SendsRepeatedSKUParamsAndDecodes(t *testing.T) {
	var gotSKUs []string
	var gotTraceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory", r.URL.Path)
		gotSKUs = r.URL.Query()[skuCodeParam]
		gotTraceparent = r.Header.Get("traceparent")
		_ = json.NewEncoder(w).Encode([]domain.AvailabilityEntry{
			{SKUCode: "a", InStock: true},
			{SKUCode: "b", InStock: false},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/api/inventory", WithPropagator(propagation.TraceContext{}))
	require.NoError(t, err)

	provider := sdktrace.NewTracerProvider()
	ctx, span := provider.Tracer("test").Start(context.Background(), "inventoryServiceLookup")
	defer span.End()

	result, err := client.Check(ctx, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, gotSKUs)
	assert.Contains(t, gotTraceparent, span.SpanContext().TraceID().String())
	assert.Equal(t, domain.AvailabilityResult{{SKUCode: "a", InStock: true}, {SKUCode: "b", InStock: false}}, result)
}

func TestClientCheck_Non2xxIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Check(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAvailabilityTransient))
	assert.True(t, errors.Is(err, domain.ErrAvailabilityCheckFailed))
	assert.False(t, errors.Is(err, domain.ErrAvailabilityMalformed))
}

func TestClientCheck_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Check(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrAvailabilityMalformed)
	assert.ErrorIs(t, err, domain.ErrAvailabilityCheckFailed)
}

func TestClientCheck_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Check(ctx, []string{"a"})
	assert.ErrorIs(t, err, domain.ErrAvailabilityTransient)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientCheck_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := NewClient(endpoint)
	require.NoError(t, err)

	_, err = client.Check(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrAvailabilityCheckFailed)
}

func TestNewClient_RejectsRelativeEndpoint(t *testing.T) {
	_, err := NewClient("/api/inventory")
	assert.Error(t, err)
}
