package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
)

type fakePublisher struct {
	channels []string
	messages [][]byte
	failAt   int
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.([]byte))
	if f.failAt > 0 && len(f.messages) == f.failAt {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestSamplePublisher_Publish(t *testing.T) {
	fp := &fakePublisher{}
	p := newSamplePublisher(fp, "", "run-1", nil)
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }

	err := p.Publish(context.Background(), []gyro.DataResponse{
		{Register: gyro.RegDataGet, Count: 4, XRate: 0.5, YRate: -0.25, ZRate: 0},
		{Register: gyro.RegDataGet, Count: 5},
	})
	require.NoError(t, err)
	require.Len(t, fp.messages, 2)
	assert.Equal(t, []string{DefaultChannel, DefaultChannel}, fp.channels)

	var msg SampleMessage
	require.NoError(t, json.Unmarshal(fp.messages[0], &msg))
	assert.Equal(t, SampleMessage{RunID: "run-1", Count: 4, XRate: 0.5, YRate: -0.25, ReceivedAt: 1700000000123}, msg)
}

func TestSamplePublisher_StopsOnError(t *testing.T) {
	fp := &fakePublisher{failAt: 1}
	p := newSamplePublisher(fp, "custom", "run-2", nil)
	assert.Equal(t, "custom", p.Channel())

	err := p.Publish(context.Background(), []gyro.DataResponse{{Count: 1}, {Count: 2}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "publish sample 1")
	assert.Len(t, fp.messages, 1)
}

func TestNewClient_Disabled(t *testing.T) {
	c, err := NewClient(cfgDisabled())
	assert.Error(t, err)
	assert.Nil(t, c)
	assert.NoError(t, c.Close())
}

func cfgDisabled() cfgpkg.RedisConfig { return cfgpkg.RedisConfig{Enabled: false} }
