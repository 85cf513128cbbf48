package deploy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthWaitImmediatelyHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHealthProber(server.URL, time.Second, 10*time.Millisecond, zap.NewNop())
	assert.NoError(t, prober.Wait(context.Background()))
}

func TestHealthWaitRecovers(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHealthProber(server.URL, 2*time.Second, 10*time.Millisecond, zap.NewNop())
	assert.NoError(t, prober.Wait(context.Background()))
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestHealthWaitTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	prober := NewHealthProber(server.URL, 50*time.Millisecond, 10*time.Millisecond, zap.NewNop())
	err := prober.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not become healthy")
}

func TestHealthWaitCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewHealthProber(server.URL, time.Minute, 10*time.Millisecond, zap.NewNop())
	assert.ErrorIs(t, prober.Wait(ctx), context.Canceled)
}
