package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeExposesRegisteredCollectors(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerindex_metrics_test_total",
		Help: "Counter used by the metrics endpoint test.",
	})
	prometheus.MustRegister(counter)
	defer prometheus.Unregister(counter)
	counter.Add(3)

	srv, err := Listen("127.0.0.1:0", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(data)
		return true
	}, 3*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "peerindex_metrics_test_total 3")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 6):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestListenBindFailure(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer srv.ln.Close()

	_, err = Listen(srv.Addr().String(), nil)
	assert.Error(t, err)
}
