package census_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"acspop/internal/population/census"
	"acspop/internal/population/census/mocks"
	"acspop/internal/population/metrics"
	"acspop/pkg/platform/circuit"
)

func TestRedisCachedResolverBypassesUnavailableCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockResolver(ctrl)
	vars := census.VariableMap{"B01001_003E": {"Male", "Under 5 years"}}
	next.EXPECT().VarsForGroup(gomock.Any(), "SEX BY AGE", 2).Return(vars, nil).Times(3)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	resolver := census.NewRedisCachedResolver(next, client,
		census.WithCacheMetrics(m),
		census.WithCacheLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		census.WithCacheBreaker(circuit.New("variables-cache", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))),
	)

	for i := 0; i < 3; i++ {
		got, err := resolver.VarsForGroup(context.Background(), "SEX BY AGE", 2)
		require.NoError(t, err)
		assert.Equal(t, vars, got)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheLookups.WithLabelValues("bypass")), 0)
}
