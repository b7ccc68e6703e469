package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape-forge-api/internal/config"
	"shape-forge-api/internal/domain/entity"
	"shape-forge-api/internal/domain/service"
)

func gearRequest() service.ShapeRequest {
	teeth := 12
	return service.ShapeRequest{
		GenerationID: 42,
		UserID:       "u1",
		Parameters:   entity.ShapeParameters{Type: entity.ShapeGear, Teeth: &teeth},
	}
}

func TestSimulatedEngine(t *testing.T) {
	e := NewSimulatedEngine(10*time.Millisecond, "/models/")

	res, err := e.Generate(context.Background(), gearRequest())
	require.NoError(t, err)
	assert.Equal(t, "/models/42.glb", res.FileURL)
	assert.Equal(t, "glb", res.Format)
}

func TestSimulatedEngine_Cancelled(t *testing.T) {
	e := NewSimulatedEngine(time.Hour, "")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.Generate(ctx, gearRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPEngine_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body engineRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(42), body.GenerationID)
		assert.Equal(t, entity.ShapeGear, body.Parameters.Type)
		_ = json.NewEncoder(w).Encode(engineResponse{FileURL: "https://cdn.example/42.glb"})
	}))
	defer srv.Close()

	res, err := NewHTTPEngine(srv.URL, time.Second).Generate(context.Background(), gearRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/42.glb", res.FileURL)
	assert.Equal(t, "glb", res.Format)
}

func TestHTTPEngine_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(engineResponse{FileURL: "/models/42.glb", Format: "glb"})
	}))
	defer srv.Close()

	res, err := NewHTTPEngine(srv.URL, time.Second).Generate(context.Background(), gearRequest())
	require.NoError(t, err)
	assert.Equal(t, "/models/42.glb", res.FileURL)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPEngine_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad parameters", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewHTTPEngine(srv.URL, time.Second).Generate(context.Background(), gearRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad parameters")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPEngine_MissingFileURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTPEngine(srv.URL, time.Second).Generate(context.Background(), gearRequest())
	assert.ErrorContains(t, err, "missing file_url")
}

func TestNew(t *testing.T) {
	e, err := New(&config.EngineConfig{Type: "simulated", Delay: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &SimulatedEngine{}, e)

	e, err = New(&config.EngineConfig{Type: "http", Endpoint: "http://engine"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPEngine{}, e)

	_, err = New(&config.EngineConfig{Type: "http"})
	assert.Error(t, err)
	_, err = New(&config.EngineConfig{Type: "blender"})
	assert.Error(t, err)
}
