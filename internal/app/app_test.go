package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/driver"
	"github.com/taoyao-code/ratesensor/internal/health"
	"github.com/taoyao-code/ratesensor/internal/metrics"
)

func TestGenerateRunID(t *testing.T) {
	t.Run("环境变量优先", func(t *testing.T) {
		t.Setenv("RATESENSOR_RUN_ID", "bench-7")
		assert.Equal(t, "bench-7", GenerateRunID("driver"))
	})

	t.Run("自动生成", func(t *testing.T) {
		t.Setenv("RATESENSOR_RUN_ID", "")
		a, b := GenerateRunID("driver"), GenerateRunID("driver")
		assert.True(t, strings.HasPrefix(a, "driver-"))
		assert.NotEqual(t, a, b)
	})
}

func TestNewRedisClient_Disabled(t *testing.T) {
	c, err := NewRedisClient(cfgpkg.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, NewSamplePublisher(c, cfgpkg.RedisConfig{}, "r", zap.NewNop()))

	agg := health.NewAggregator()
	AddRedisChecker(agg, c)
	assert.Empty(t, agg.CheckAll(context.Background()))
}

func TestOpenDriverPort_Pipe(t *testing.T) {
	cfg := &cfgpkg.Config{
		Transport: cfgpkg.TransportConfig{Kind: "pipe", Serial: cfgpkg.SerialConfig{ReadTimeout: 50 * time.Millisecond}},
		Simulator: cfgpkg.SimulatorConfig{CyclePeriod: 2 * time.Millisecond, Version: 0x30},
	}
	port, cleanup, err := OpenDriverPort(context.Background(), cfg, zap.NewNop(), metrics.Discard())
	require.NoError(t, err)
	defer cleanup()

	v, err := driver.New(port).GetVersion()
	require.NoError(t, err)
	assert.Equal(t, byte(0x30), v)

	assert.Equal(t, health.StatusHealthy, NewHealthAggregator(port).OverallStatus(context.Background()))
}

func TestOpenDriverPort_UnknownKind(t *testing.T) {
	cfg := &cfgpkg.Config{Transport: cfgpkg.TransportConfig{Kind: "usb"}}
	_, _, err := OpenDriverPort(context.Background(), cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestStartHTTPServer_Disabled(t *testing.T) {
	_, _, handler := NewMetrics()
	stop := StartHTTPServer(&cfgpkg.Config{}, handler, nil, zap.NewNop())
	assert.NotPanics(t, stop)
}
