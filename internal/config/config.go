package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// SerialConfig 串口配置（8N1 原始模式，波特率固定不协商）
type SerialConfig struct {
	Device       string        `mapstructure:"device"`
	BaudRate     int           `mapstructure:"baudRate"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// TCPConfig 串口透传 TCP 配置（模拟器监听，驱动拨号）
type TCPConfig struct {
	Addr         string        `mapstructure:"addr"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// TransportConfig 字节通道配置
// kind: serial | tcp | pipe（pipe 仅用于进程内自测）
type TransportConfig struct {
	Kind   string       `mapstructure:"kind"`
	Serial SerialConfig `mapstructure:"serial"`
	TCP    TCPConfig    `mapstructure:"tcp"`
}

// DriverConfig 上位机驱动配置
type DriverConfig struct {
	RetryLimit     int    `mapstructure:"retryLimit"`
	Scenario       string `mapstructure:"scenario"`
	PublishSamples bool   `mapstructure:"publishSamples"`
}

// SimulatorConfig 传感器模拟器配置
type SimulatorConfig struct {
	CyclePeriod  time.Duration `mapstructure:"cyclePeriod"`
	Version      int           `mapstructure:"version"`
	CommandRate  int           `mapstructure:"commandRate"`
	CommandBurst int           `mapstructure:"commandBurst"`
}

// HTTPConfig 状态/指标 HTTP 服务配置
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig 数据样本发布（Redis Pub/Sub）配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Channel      string        `mapstructure:"channel"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Transport TransportConfig `mapstructure:"transport"`
	Driver    DriverConfig    `mapstructure:"driver"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试环境变量 RATESENSOR_CONFIG；否则在 . 与 ./configs 下查找 <name>.yaml。
func Load(path, name string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("RATESENSOR_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName(name)
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 RATESENSOR_，点号替换为下划线
	v.SetEnvPrefix("RATESENSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case "serial", "tcp", "pipe":
	default:
		return fmt.Errorf("config: unknown transport kind %q", c.Transport.Kind)
	}
	if c.Driver.RetryLimit <= 0 {
		return fmt.Errorf("config: driver.retryLimit must be positive, got %d", c.Driver.RetryLimit)
	}
	if c.Simulator.CyclePeriod <= 0 {
		return fmt.Errorf("config: simulator.cyclePeriod must be positive, got %s", c.Simulator.CyclePeriod)
	}
	if c.Simulator.Version < 0 || c.Simulator.Version > 0xFF {
		return fmt.Errorf("config: simulator.version out of byte range: %d", c.Simulator.Version)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ratesensor")
	v.SetDefault("app.env", "dev")

	v.SetDefault("transport.kind", "serial")
	v.SetDefault("transport.serial.device", "/dev/ttyUSB0")
	v.SetDefault("transport.serial.baudRate", 38400)
	v.SetDefault("transport.serial.readTimeout", "500ms")
	v.SetDefault("transport.serial.writeTimeout", "5s")
	v.SetDefault("transport.tcp.addr", "127.0.0.1:7700")
	v.SetDefault("transport.tcp.dialTimeout", "10s")
	v.SetDefault("transport.tcp.readTimeout", "500ms")
	v.SetDefault("transport.tcp.writeTimeout", "5s")

	v.SetDefault("driver.retryLimit", 5)
	v.SetDefault("driver.scenario", "")
	v.SetDefault("driver.publishSamples", false)

	v.SetDefault("simulator.cyclePeriod", "100ms")
	v.SetDefault("simulator.version", 0x23)
	v.SetDefault("simulator.commandRate", 0)
	v.SetDefault("simulator.commandBurst", 0)

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 1)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.channel", "ratesensor:samples")
}
