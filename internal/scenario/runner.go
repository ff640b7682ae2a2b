package scenario

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
)

// Device 脚本所需的驱动操作
type Device interface {
	GetMode() (byte, error)
	GetVersion() (byte, error)
	IsAlive() (bool, error)
	GetRates() ([]gyro.DataResponse, error)
	SetMode(mode byte) (byte, error)
	Drain() ([]gyro.DataResponse, error)
}

// SampleSink 接收每批数据帧（如发布到 Redis）
type SampleSink interface {
	Publish(ctx context.Context, samples []gyro.DataResponse) error
}

// Result 单步执行结果
type Result struct {
	Index   int
	Op      string
	Value   byte // get_mode/get_version/set_mode 的返回值
	Alive   bool
	Samples []gyro.DataResponse
	Err     error
}

// String 单行文本输出
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("#%d %s: error: %v", r.Index, r.Op, r.Err)
	}
	switch r.Op {
	case OpGetMode, OpSetMode:
		return fmt.Sprintf("#%d %s: %d (%s)", r.Index, r.Op, r.Value, gyro.ModeName(r.Value))
	case OpGetVersion:
		return fmt.Sprintf("#%d %s: 0x%02x", r.Index, r.Op, r.Value)
	case OpIsAlive:
		return fmt.Sprintf("#%d %s: %t", r.Index, r.Op, r.Alive)
	default:
		return fmt.Sprintf("#%d %s: %d samples", r.Index, r.Op, len(r.Samples))
	}
}

// Runner 脚本执行器
type Runner struct {
	dev     Device
	sink    SampleSink
	log     *zap.Logger
	observe func(Result)
}

// RunnerOption 执行器可选配置
type RunnerOption func(*Runner)

// WithSink 接入数据帧接收方
func WithSink(s SampleSink) RunnerOption {
	return func(r *Runner) { r.sink = s }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithObserver 每步完成后回调
func WithObserver(fn func(Result)) RunnerOption {
	return func(r *Runner) { r.observe = fn }
}

// NewRunner 创建执行器
func NewRunner(dev Device, opts ...RunnerOption) *Runner {
	r := &Runner{dev: dev, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run 依次执行步骤；未标记 continue_on_error 的步骤失败即停止并返回错误
func (r *Runner) Run(ctx context.Context, s *Scenario) ([]Result, error) {
	r.log.Info("scenario started", zap.String("name", s.Name), zap.Int("steps", len(s.Steps)))
	var results []Result
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.step(ctx, i, st)
		results = append(results, res)
		if r.observe != nil {
			r.observe(res)
		}
		if res.Err != nil {
			if !st.ContinueOnError {
				return results, fmt.Errorf("step %d (%s): %w", i, st.Op, res.Err)
			}
			r.log.Warn("step failed, continuing", zap.Int("step", i), zap.String("op", st.Op), zap.Error(res.Err))
		}
	}
	r.log.Info("scenario finished", zap.String("name", s.Name))
	return results, nil
}

func (r *Runner) step(ctx context.Context, i int, st Step) Result {
	res := Result{Index: i, Op: st.Op}
	count := st.Count
	if count <= 0 {
		count = 1
	}
	switch st.Op {
	case OpGetMode:
		res.Value, res.Err = r.dev.GetMode()
	case OpGetVersion:
		res.Value, res.Err = r.dev.GetVersion()
	case OpIsAlive:
		res.Alive, res.Err = r.dev.IsAlive()
	case OpSetMode:
		mode, _ := gyro.ParseMode(st.Mode)
		res.Value, res.Err = r.dev.SetMode(mode)
	case OpGetRates:
		res.Samples, res.Err = r.collect(ctx, count, r.dev.GetRates)
	case OpDrain:
		res.Samples, res.Err = r.collect(ctx, count, r.dev.Drain)
	default:
		res.Err = fmt.Errorf("%w: unknown op %q", ErrInvalidScenario, st.Op)
	}
	return res
}

// collect 重复 count 次取数，每批交给 sink；sink 失败只记日志
func (r *Runner) collect(ctx context.Context, count int, fetch func() ([]gyro.DataResponse, error)) ([]gyro.DataResponse, error) {
	var all []gyro.DataResponse
	for n := 0; n < count; n++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		batch, err := fetch()
		if err != nil {
			return all, err
		}
		all = append(all, batch...)
		if r.sink != nil {
			if err := r.sink.Publish(ctx, batch); err != nil {
				r.log.Warn("publish samples failed", zap.Int("samples", len(batch)), zap.Error(err))
			}
		}
	}
	return all, nil
}
