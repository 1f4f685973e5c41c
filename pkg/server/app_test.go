package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SigmaSync/internal/service/poller"
	"SigmaSync/internal/service/stream"
	"SigmaSync/internal/usecase"
	"SigmaSync/pkg/config"
	xhttp "SigmaSync/pkg/http"
	applogger "SigmaSync/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppRunsUntilContextDone(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"QQQ","regime":"bull","score":0.7}]`))
	}))
	defer upstream.Close()

	cfg, err := config.Default()
	require.NoError(t, err)

	core := usecase.NewSynchronizationCore(
		stream.New("ws://127.0.0.1:1/ws", time.Second),
		poller.NewHTTPSource(xhttp.NewClient(xhttp.WithTimeout(time.Second)), upstream.URL),
		usecase.CoreConfig{
			Capacity: 10,
			Transport: usecase.TransportConfig{
				Pull:    poller.Config{Interval: time.Hour, Limit: 1, Timeout: time.Second},
				Backoff: usecase.FixedDelay(time.Hour),
			},
		},
	)
	srv := xhttp.NewServer(nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(0),
		xhttp.WithRegistry(prometheus.NewRegistry()))
	app := New(cfg, core, srv, applogger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, core.Ready, 2*time.Second, 10*time.Millisecond, "pull fallback delivers the first snapshot")
	latest, ok := core.Latest().Get()
	require.True(t, ok)
	assert.Equal(t, "QQQ", latest.Symbol)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
