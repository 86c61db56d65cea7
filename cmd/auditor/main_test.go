package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emperorhan/chainaudit/internal/alert"
	"github.com/emperorhan/chainaudit/internal/config"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/emperorhan/chainaudit/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDBStatsProvider struct {
	stats sql.DBStats
}

func (f fakeDBStatsProvider) Stats() sql.DBStats { return f.stats }

type panicDBStatsProvider struct{}

func (panicDBStatsProvider) Stats() sql.DBStats {
	panic("db stats temporarily unavailable")
}

type countingDBStatsProvider struct {
	calls atomic.Int32
}

func (c *countingDBStatsProvider) Stats() sql.DBStats {
	c.calls.Add(1)
	return sql.DBStats{OpenConnections: 1}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollectDBPoolStats_RecordsGauges(t *testing.T) {
	err := collectDBPoolStats(fakeDBStatsProvider{stats: sql.DBStats{
		OpenConnections: 7,
		InUse:           3,
		Idle:            4,
		WaitCount:       11,
	}})
	require.NoError(t, err)

	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.DBPoolOpen))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.DBPoolInUse))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.DBPoolIdle))
	assert.Equal(t, 11.0, testutil.ToFloat64(metrics.DBPoolWaitCount))
}

func TestCollectDBPoolStats_RecoversFromPanic(t *testing.T) {
	err := collectDBPoolStats(panicDBStatsProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestCollectDBPoolStats_NilProvider(t *testing.T) {
	require.Error(t, collectDBPoolStats(nil))
}

func TestRunDBPoolStatsPump_StopsOnCancel(t *testing.T) {
	provider := &countingDBStatsProvider{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runDBPoolStatsPump(ctx, provider, 5*time.Millisecond, discardLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return provider.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after cancel")
	}
}

func TestRunDBPoolStatsPump_DisabledInterval(t *testing.T) {
	provider := &countingDBStatsProvider{}
	runDBPoolStatsPump(context.Background(), provider, 0, discardLogger())
	assert.Zero(t, provider.calls.Load())
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestBuildAlerter(t *testing.T) {
	assert.Nil(t, buildAlerter(config.AlertConfig{Cooldown: time.Minute}, discardLogger()))

	m := buildAlerter(config.AlertConfig{
		SlackWebhookURL: "https://hooks.slack.example/x",
		WebhookURL:      "https://alerts.example/hook",
		Cooldown:        time.Minute,
	}, discardLogger())
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Len())
}

func TestBuildEnrichers_FollowsToggles(t *testing.T) {
	names := func(es []pipeline.Enricher) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.Name())
		}
		return out
	}

	all := buildEnrichers(config.PipelineConfig{
		PredictiveScoringEnabled: true,
		SentimentEnabled:         true,
		VulnerabilityScanEnabled: true,
	}, nil, stubSentiment{})
	assert.Equal(t, []string{"predictive_score", "community_sentiment"}, names(all), "scanner needs a code reader")

	none := buildEnrichers(config.PipelineConfig{SentimentEnabled: true}, nil, nil)
	assert.Empty(t, none)
}

type stubSentiment struct{}

func (stubSentiment) Sentiment(context.Context, model.Address, string) (any, error) { return nil, nil }

func TestUnhealthyNotifier_SendsPipelineAlert(t *testing.T) {
	var (
		mu   sync.Mutex
		body []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = b
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := alert.NewMultiAlerter(time.Minute, discardLogger(), alert.NewWebhookAlerter(srv.URL))
	notify := unhealthyNotifier(m, "ethereum", discardLogger())
	notify(pipeline.HealthSnapshot{Status: string(pipeline.HealthStatusUnhealthy), ConsecutiveFailures: 5, P95Latency: "1.2s"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(body) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, string(body), `"PIPELINE_UNHEALTHY"`)
	assert.Contains(t, string(body), `"consecutive_failures":"5"`)
}
