// Package scenario 驱动侧操作脚本：按步骤调用驱动并汇报结果。
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
)

// 步骤操作
const (
	OpGetMode    = "get_mode"
	OpGetVersion = "get_version"
	OpIsAlive    = "is_alive"
	OpGetRates   = "get_rates"
	OpSetMode    = "set_mode"
	OpDrain      = "drain"
)

var ErrInvalidScenario = errors.New("scenario: invalid")

// Step 单个步骤
// Count 对 get_rates 为请求次数，对 drain 为收取批次，缺省 1。
type Step struct {
	Op              string `yaml:"op"`
	Mode            string `yaml:"mode,omitempty"`
	Count           int    `yaml:"count,omitempty"`
	ContinueOnError bool   `yaml:"continue_on_error,omitempty"`
}

// Scenario 操作脚本
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Load 从 YAML 文件加载脚本
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(b)
}

// Parse 解析 YAML 脚本并校验
func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate 校验步骤
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i, st := range s.Steps {
		switch st.Op {
		case OpGetMode, OpGetVersion, OpIsAlive, OpGetRates, OpDrain:
		case OpSetMode:
			if _, ok := gyro.ParseMode(st.Mode); !ok {
				return fmt.Errorf("%w: step %d: unknown mode %q", ErrInvalidScenario, i, st.Mode)
			}
		default:
			return fmt.Errorf("%w: step %d: unknown op %q", ErrInvalidScenario, i, st.Op)
		}
		if st.Count < 0 {
			return fmt.Errorf("%w: step %d: negative count", ErrInvalidScenario, i)
		}
	}
	return nil
}

// Default 默认演示流程：查询状态，依次切换 config/manual/auto 并回读，
// 收取 10 批主动上报数据后切回 manual。
// auto 模式下应答与数据帧交错，回读可能失败，不中断流程。
func Default() *Scenario {
	return &Scenario{
		Name:        "demo",
		Description: "query, cycle through modes, stream in auto, back to manual",
		Steps: []Step{
			{Op: OpGetMode},
			{Op: OpGetVersion},
			{Op: OpIsAlive},
			{Op: OpGetRates},
			{Op: OpSetMode, Mode: "config"},
			{Op: OpGetMode},
			{Op: OpSetMode, Mode: "manual"},
			{Op: OpGetMode},
			{Op: OpSetMode, Mode: "auto"},
			{Op: OpGetMode, ContinueOnError: true},
			{Op: OpDrain, Count: 10, ContinueOnError: true},
			{Op: OpSetMode, Mode: "manual", ContinueOnError: true},
			{Op: OpGetMode, ContinueOnError: true},
		},
	}
}
