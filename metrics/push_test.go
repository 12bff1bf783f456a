package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPush(t *testing.T) {
	var (
		pushes atomic.Int32
		path   atomic.Value
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		path.Store(r.URL.Path)
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: "test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Push(ctx, PushConfig{
			URL:      ts.URL,
			Period:   10 * time.Millisecond,
			Instance: "master-1",
			Headers:  map[string]string{"X-Token": "secret"},
		}, reg, zaptest.NewLogger(t))
	}()
	require.Eventually(t, func() bool { return pushes.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	p := path.Load().(string)
	require.True(t, strings.HasPrefix(p, "/metrics/job/"+Namespace), p)
	require.Contains(t, p, "/instance/master-1")
}
