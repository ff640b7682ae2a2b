package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/ratesensor/internal/transport"
)

type fakeRedis struct {
	err   error
	stats redis.PoolStats
}

func (f *fakeRedis) HealthCheck(context.Context) error { return f.err }
func (f *fakeRedis) Stats() *redis.PoolStats           { return &f.stats }

func TestRedisChecker(t *testing.T) {
	tests := []struct {
		name   string
		probe  *fakeRedis
		status Status
	}{
		{"正常", &fakeRedis{stats: redis.PoolStats{TotalConns: 4, IdleConns: 3}}, StatusHealthy},
		{"ping失败降级", &fakeRedis{err: errors.New("refused")}, StatusDegraded},
		{"连接池将满", &fakeRedis{stats: redis.PoolStats{TotalConns: 10, IdleConns: 0}}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRedisChecker(tt.probe).Check(context.Background())
			assert.Equal(t, tt.status, res.Status)
		})
	}
}

func TestTransportChecker(t *testing.T) {
	a, b := transport.NewPipe(time.Millisecond)
	defer b.Close()
	require.NoError(t, b.Send([]byte{1, 2}))

	c := NewTransportChecker(a)
	assert.Equal(t, "transport", c.Name())
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, 2, res.Details["available_bytes"])

	require.NoError(t, a.Close())
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

func TestLoopChecker(t *testing.T) {
	running := true
	c := NewLoopChecker("simulator", func() bool { return running })
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
	running = false
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())
	r.SetPortReady(true)
	assert.False(t, r.Ready())
	r.SetLoopReady(true)
	assert.True(t, r.Ready())
}

func TestRegisterHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		status   Status
		path     string
		wantCode int
	}{
		{"健康报告", StatusHealthy, "/health", http.StatusOK},
		{"降级仍200", StatusDegraded, "/health", http.StatusOK},
		{"不健康503", StatusUnhealthy, "/health", http.StatusServiceUnavailable},
		{"就绪", StatusDegraded, "/health/ready", http.StatusOK},
		{"未就绪", StatusUnhealthy, "/health/ready", http.StatusServiceUnavailable},
		{"存活", StatusUnhealthy, "/health/live", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"transport", tt.status}))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)

			if tt.path == "/health" {
				var report HealthReport
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
				assert.Equal(t, tt.status, report.Status)
				assert.Contains(t, report.Checks, "transport")
			}
		})
	}
}
