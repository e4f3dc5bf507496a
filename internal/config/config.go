package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"volrv/internal/logger"
)

// Config is the full application configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     logger.Config     `yaml:"logging"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Data        DataConfig        `yaml:"data"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Roll        RollConfig        `yaml:"roll"`
	Risk        RiskConfig        `yaml:"risk"`
	Costs       CostConfig        `yaml:"costs"`
	Attribution AttributionConfig `yaml:"attribution"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// AppConfig identifies the application instance.
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// ServerConfig configures the artifact API server.
type ServerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the optional postgres artifact store.
type DatabaseConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	DBName   string        `yaml:"dbname"`
	SSLMode  string        `yaml:"sslmode"`
	MaxOpen  int           `yaml:"max_open"`
	MaxIdle  int           `yaml:"max_idle"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig configures the optional run-summary cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// RateLimitConfig configures API rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	Burst             int  `yaml:"burst"`
}

// DataConfig locates input and output files.
type DataConfig struct {
	ContractsFile  string `yaml:"contracts_file"`
	SignalsFile    string `yaml:"signals_file"`
	SignalMetaFile string `yaml:"signal_meta_file"`
	OutputDir      string `yaml:"output_dir"`
}

// BacktestConfig configures the execution/positioning engine.
type BacktestConfig struct {
	Underlying        string  `yaml:"underlying"`
	InitialCapital    float64 `yaml:"initial_capital"`
	SignalColumn      string  `yaml:"signal_column"`
	CarrySignalColumn string  `yaml:"carry_signal_column"`
	ExecutionLag      int     `yaml:"execution_lag"`
	EnforceNextBar    bool    `yaml:"enforce_next_bar"`
	SizingMode        string  `yaml:"sizing_mode"` // proportional, sign, tanh
	SignalScale       float64 `yaml:"signal_scale"`
	BaseSize          float64 `yaml:"base_size"`
	MaxGapFraction    float64 `yaml:"max_gap_fraction"`
}

// RollConfig configures the continuous-contract roll engine.
type RollConfig struct {
	TriggerMode   string `yaml:"trigger_mode"` // expiry_offset, volume_crossover
	ThresholdDays int    `yaml:"threshold_days"`
}

// RiskConfig configures position caps and risk targeting.
type RiskConfig struct {
	PositionCap          float64 `yaml:"position_cap"`
	LeverageCap          float64 `yaml:"leverage_cap"`
	RiskTargetingEnabled bool    `yaml:"risk_targeting_enabled"`
	TargetVolatility     float64 `yaml:"target_volatility"`
	VolWindow            int     `yaml:"vol_window"`
}

// CostConfig configures the transaction cost model.
type CostConfig struct {
	CostBpsRebalance float64 `yaml:"cost_bps_rebalance"`
	CostBpsRoll      float64 `yaml:"cost_bps_roll"`
	SlippageBps      float64 `yaml:"slippage_bps"`
}

// AttributionConfig configures the PnL decomposition.
type AttributionConfig struct {
	Tolerance         float64 `yaml:"tolerance"`
	CarryProxyDailyBps float64 `yaml:"carry_proxy_daily_bps"`
}

// SchedulerConfig configures cron-driven re-runs.
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CronSpec string `yaml:"cron_spec"`
}

// Load reads configuration from a YAML file, applying environment overrides.
// A .env file is honored when present, matching local development setups.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the configuration defaults applied before YAML decoding.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "volrv",
			Version: "dev",
			Env:     "development",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			MaxOpen: 25,
			MaxIdle: 5,
			Timeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Logging: logger.DefaultConfig,
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Data: DataConfig{
			OutputDir: "outputs",
		},
		Backtest: BacktestConfig{
			Underlying:     "VX",
			InitialCapital: 1_000_000,
			SignalColumn:   "signal_term_structure_slope",
			ExecutionLag:   1,
			EnforceNextBar: true,
			SizingMode:     "tanh",
			SignalScale:    1.0,
			BaseSize:       1.0,
			MaxGapFraction: 0.2,
		},
		Roll: RollConfig{
			TriggerMode:   "expiry_offset",
			ThresholdDays: 5,
		},
		Risk: RiskConfig{
			PositionCap:          1.0,
			LeverageCap:          2.0,
			RiskTargetingEnabled: true,
			TargetVolatility:     0.10,
			VolWindow:            20,
		},
		Costs: CostConfig{
			CostBpsRebalance: 1.0,
			CostBpsRoll:      2.0,
		},
		Attribution: AttributionConfig{
			Tolerance: 1e-6,
		},
		Scheduler: SchedulerConfig{
			CronSpec: "0 22 * * 1-5",
		},
	}
}

// applyEnvOverrides lets VOLRV_* environment variables override deployment
// settings without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VOLRV_DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("VOLRV_DATABASE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Database.Port = p
		}
	}
	if v := os.Getenv("VOLRV_DATABASE_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("VOLRV_DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("VOLRV_DATABASE_NAME"); v != "" {
		c.Database.DBName = v
	}
	if v := os.Getenv("VOLRV_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("VOLRV_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("VOLRV_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("VOLRV_LOG_LEVEL"); v != "" {
		c.Logging.Level = logger.LogLevel(v)
	}
	if v := os.Getenv("VOLRV_OUTPUT_DIR"); v != "" {
		c.Data.OutputDir = v
	}
}
