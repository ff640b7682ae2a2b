package simulator

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/metrics"
	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
	"github.com/taoyao-code/ratesensor/internal/transport"
)

func newTestSim(t *testing.T, cfg cfgpkg.SimulatorConfig) (*Sim, *transport.PipeEnd, *metrics.AppMetrics) {
	t.Helper()
	host, dev := transport.NewPipe(10 * time.Millisecond)
	t.Cleanup(func() {
		_ = host.Close()
		_ = dev.Close()
	})
	m := metrics.Discard()
	return New(dev, cfg, nil, m), host, m
}

func sendCommands(t *testing.T, host *transport.PipeEnd, cmds ...gyro.Command) {
	t.Helper()
	c := gyro.NewCommandCoder(gyro.Delimiter)
	for _, cmd := range cmds {
		require.NoError(t, host.Send(c.Frame(cmd)))
	}
}

func readAll(t *testing.T, host *transport.PipeEnd) []byte {
	t.Helper()
	n, err := host.Available()
	require.NoError(t, err)
	if n == 0 {
		return nil
	}
	b, err := host.Receive(n)
	require.NoError(t, err)
	return b
}

func decodeResponses(t *testing.T, b []byte) []gyro.Response {
	t.Helper()
	buf := bytes.NewBuffer(b)
	out, err := gyro.NewResponseCoder(gyro.Delimiter).Deframe(buf)
	require.NoError(t, err)
	return out
}

func decodeData(t *testing.T, b []byte) []gyro.DataResponse {
	t.Helper()
	buf := bytes.NewBuffer(b)
	out, err := gyro.NewDataResponseCoder(gyro.Delimiter).Deframe(buf)
	require.NoError(t, err)
	return out
}

func TestSim_InitialState(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

	assert.Equal(t, gyro.ModeManual, s.Device().Mode)
	assert.Equal(t, uint16(0), s.Device().Counter)
	assert.Equal(t, DefaultVersion, s.Device().Version)

	// manual 模式无输入时不产生任何输出
	s.Cycle()
	assert.Empty(t, readAll(t, host))
}

func TestSim_ModeCommands(t *testing.T) {
	tests := []struct {
		name string
		arg  byte
		want byte
	}{
		{"切到config", gyro.ModeConfig, gyro.ModeConfig},
		{"切到manual", gyro.ModeManual, gyro.ModeManual},
		{"切到auto", gyro.ModeAuto, gyro.ModeAuto},
		{"未知模式原样写入并回显", 0x07, 0x07},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

			sendCommands(t, host, gyro.Command{Register: gyro.RegModeSet, Argument: tt.arg})
			s.Cycle()
			rsps := decodeResponses(t, readAll(t, host))
			require.Len(t, rsps, 1)
			assert.Equal(t, gyro.Response{Register: gyro.RegModeSet, Value: tt.want}, rsps[0])

			sendCommands(t, host, gyro.Command{Register: gyro.RegModeGet})
			s.Cycle()
			// 应答帧先于数据帧发出；auto 模式下其后还跟着本周期的数据帧
			out := readAll(t, host)
			require.GreaterOrEqual(t, len(out), gyro.ResponseFrameLen)
			rsps = decodeResponses(t, out[:gyro.ResponseFrameLen])
			require.Len(t, rsps, 1)
			assert.Equal(t, gyro.Response{Register: gyro.RegModeGet, Value: tt.want}, rsps[0])
			if tt.want == gyro.ModeAuto {
				frames := decodeData(t, out[gyro.ResponseFrameLen:])
				require.Len(t, frames, 1)
				assert.Equal(t, uint16(0), frames[0].Count)
			} else {
				assert.Len(t, out, gyro.ResponseFrameLen)
			}
		})
	}
}

func TestSim_Version(t *testing.T) {
	t.Run("默认版本", func(t *testing.T) {
		s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})
		sendCommands(t, host, gyro.Command{Register: gyro.RegVersionGet})
		s.Cycle()
		assert.Equal(t, []byte{0x72, 0x23, 0x0D}, readAll(t, host))
	})

	t.Run("配置版本", func(t *testing.T) {
		s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{Version: 0x41})
		sendCommands(t, host, gyro.Command{Register: gyro.RegVersionGet})
		s.Cycle()
		assert.Equal(t, []byte{0x72, 0x41, 0x0D}, readAll(t, host))
	})
}

func TestSim_DataGetInManualMode(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

	for i := 0; i < 3; i++ {
		sendCommands(t, host, gyro.Command{Register: gyro.RegDataGet})
		s.Cycle()
		frames := decodeData(t, readAll(t, host))
		require.Len(t, frames, 1)
		assert.Equal(t, gyro.RegDataGet, frames[0].Register)
		assert.Equal(t, uint16(i), frames[0].Count)
	}
	assert.Equal(t, uint16(3), s.Device().Counter)
}

func TestSim_AutoModeStreamsOneFramePerCycle(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

	sendCommands(t, host, gyro.Command{Register: gyro.RegModeSet, Argument: gyro.ModeAuto})
	s.Cycle()
	// 切换所在周期只有应答（模式节拍先于命令处理）
	rsps := decodeResponses(t, readAll(t, host))
	require.Len(t, rsps, 1)
	assert.Equal(t, gyro.ModeAuto, rsps[0].Value)

	for i := 0; i < 4; i++ {
		s.Cycle()
		frames := decodeData(t, readAll(t, host))
		require.Len(t, frames, 1, "cycle %d", i)
		assert.Equal(t, uint16(i), frames[0].Count)
	}
}

func TestSim_AutoModeWithDataGet(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})
	sendCommands(t, host, gyro.Command{Register: gyro.RegModeSet, Argument: gyro.ModeAuto})
	s.Cycle()
	readAll(t, host)

	// 同一周期：节拍一帧 + 请求一帧
	sendCommands(t, host, gyro.Command{Register: gyro.RegDataGet})
	s.Cycle()
	frames := decodeData(t, readAll(t, host))
	require.Len(t, frames, 2)
	assert.Equal(t, uint16(0), frames[0].Count)
	assert.Equal(t, uint16(1), frames[1].Count)
}

func TestSim_CommandsDispatchedInArrivalOrder(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

	sendCommands(t, host,
		gyro.Command{Register: gyro.RegModeGet},
		gyro.Command{Register: gyro.RegVersionGet},
		gyro.Command{Register: gyro.RegModeSet, Argument: gyro.ModeConfig},
		gyro.Command{Register: gyro.RegModeGet},
	)
	s.Cycle()

	rsps := decodeResponses(t, readAll(t, host))
	assert.Equal(t, []gyro.Response{
		{Register: gyro.RegModeGet, Value: gyro.ModeManual},
		{Register: gyro.RegVersionGet, Value: DefaultVersion},
		{Register: gyro.RegModeSet, Value: gyro.ModeConfig},
		{Register: gyro.RegModeGet, Value: gyro.ModeConfig},
	}, rsps)
}

func TestSim_ResponsesBeforeData(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

	sendCommands(t, host,
		gyro.Command{Register: gyro.RegDataGet},
		gyro.Command{Register: gyro.RegModeGet},
	)
	s.Cycle()

	out := readAll(t, host)
	require.Len(t, out, gyro.ResponseFrameLen+gyro.DataResponseFrameLen)
	assert.Equal(t, []byte{gyro.RegModeGet, gyro.ModeManual, gyro.Delimiter}, out[:gyro.ResponseFrameLen])
	frames := decodeData(t, out[gyro.ResponseFrameLen:])
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(0), frames[0].Count)
}

func TestSim_UnknownRegisterIgnored(t *testing.T) {
	s, host, m := newTestSim(t, cfgpkg.SimulatorConfig{})

	sendCommands(t, host,
		gyro.Command{Register: 0x55, Argument: 0x01},
		gyro.Command{Register: gyro.RegModeGet},
	)
	s.Cycle()

	rsps := decodeResponses(t, readAll(t, host))
	require.Len(t, rsps, 1)
	assert.Equal(t, gyro.RegModeGet, rsps[0].Register)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnknownCommands))
	assert.Equal(t, gyro.ModeManual, s.Device().Mode)
}

func TestSim_PartialCommandDeferred(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})

	require.NoError(t, host.Send([]byte{gyro.RegModeSet, gyro.ModeConfig}))
	s.Cycle()
	assert.Empty(t, readAll(t, host))
	assert.Equal(t, gyro.ModeManual, s.Device().Mode)

	require.NoError(t, host.Send([]byte{gyro.Delimiter}))
	s.Cycle()
	rsps := decodeResponses(t, readAll(t, host))
	require.Len(t, rsps, 1)
	assert.Equal(t, gyro.ModeConfig, rsps[0].Value)
}

func TestSim_MisalignedInputDropped(t *testing.T) {
	s, host, m := newTestSim(t, cfgpkg.SimulatorConfig{})

	// 前导噪声字节使后续命令错位，整批丢弃
	require.NoError(t, host.Send([]byte{0xFF, gyro.RegModeGet, 0x00, gyro.Delimiter}))
	s.Cycle()
	assert.Empty(t, readAll(t, host))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BytesDiscarded.WithLabelValues("command")))

	// 丢弃后重新对齐
	sendCommands(t, host, gyro.Command{Register: gyro.RegModeGet})
	s.Cycle()
	assert.Len(t, decodeResponses(t, readAll(t, host)), 1)
}

func TestSim_CommandLimiterDefersExcess(t *testing.T) {
	s, host, m := newTestSim(t, cfgpkg.SimulatorConfig{CommandRate: 1, CommandBurst: 1})

	sendCommands(t, host,
		gyro.Command{Register: gyro.RegModeGet},
		gyro.Command{Register: gyro.RegVersionGet},
		gyro.Command{Register: gyro.RegModeGet},
	)
	s.Cycle()

	rsps := decodeResponses(t, readAll(t, host))
	require.Len(t, rsps, 1)
	assert.Equal(t, gyro.RegModeGet, rsps[0].Register)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsDeferred))
	assert.Equal(t, 2, s.Snapshot().PendingCommands)
	assert.Equal(t, int64(1), s.Snapshot().Limiter.AllowedTotal)
}

func TestSim_SendFailureDoesNotStopCycle(t *testing.T) {
	s, host, _ := newTestSim(t, cfgpkg.SimulatorConfig{})
	sendCommands(t, host, gyro.Command{Register: gyro.RegVersionGet})
	require.NoError(t, host.Close())

	assert.NotPanics(t, func() {
		s.Cycle()
		s.Cycle()
	})
	assert.Equal(t, uint64(2), s.Snapshot().Cycles)
}

func TestSim_SnapshotTracksDevice(t *testing.T) {
	s, host, m := newTestSim(t, cfgpkg.SimulatorConfig{})
	sendCommands(t, host,
		gyro.Command{Register: gyro.RegModeSet, Argument: gyro.ModeConfig},
		gyro.Command{Register: gyro.RegDataGet},
	)
	s.Cycle()

	snap := s.Snapshot()
	assert.Equal(t, gyro.ModeConfig, snap.Mode)
	assert.Equal(t, "config", snap.ModeName)
	assert.Equal(t, uint16(1), snap.Counter)
	assert.Equal(t, uint64(1), snap.Cycles)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModeGauge))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SampleCounter))
}

func TestDevice_TruthIsDeterministic(t *testing.T) {
	d := NewDevice(DefaultVersion)
	d.UpdateTruth(100 * time.Millisecond)

	assert.InDelta(t, 0, d.Truth.X, 1e-6)
	assert.InDelta(t, 0.75*math.Sin(0.66*math.Pi), d.Truth.Y, 1e-6)
	assert.InDelta(t, 0.75*math.Sin(1.22*math.Pi), d.Truth.Z, 1e-6)

	// t = 5 * 0.1s = 0.5s -> wt = pi/2
	d.Counter = 5
	d.UpdateTruth(100 * time.Millisecond)
	assert.InDelta(t, 0.75, d.Truth.X, 1e-6)

	again := NewDevice(DefaultVersion)
	again.Counter = 5
	again.UpdateTruth(100 * time.Millisecond)
	assert.Equal(t, d.Truth, again.Truth)
}

func TestDevice_CounterWraps(t *testing.T) {
	d := NewDevice(DefaultVersion)
	d.Counter = math.MaxUint16
	s := d.NextSample()
	assert.Equal(t, uint16(math.MaxUint16), s.Count)
	assert.Equal(t, uint16(0), d.Counter)
}

func TestCommandLimiter(t *testing.T) {
	t.Run("nil限速器始终允许", func(t *testing.T) {
		l := NewCommandLimiter(0, 0)
		assert.Nil(t, l)
		assert.True(t, l.Allow())
		assert.Equal(t, LimiterStats{}, l.Stats())
	})

	t.Run("突发用尽后拒绝", func(t *testing.T) {
		l := NewCommandLimiter(1, 2)
		assert.True(t, l.Allow())
		assert.True(t, l.Allow())
		assert.False(t, l.Allow())
		st := l.Stats()
		assert.Equal(t, int64(2), st.AllowedTotal)
		assert.Equal(t, int64(1), st.DeferredTotal)
	})
}

func TestSim_RunStopsOnCancel(t *testing.T) {
	host, dev := transport.NewPipe(10 * time.Millisecond)
	defer host.Close()
	s := New(dev, cfgpkg.SimulatorConfig{CyclePeriod: time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Running() }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, s.Running())
	assert.Positive(t, s.Snapshot().Cycles)
}
