package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the renoplan API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Engine   EngineConfig   `yaml:"engine"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	CORS     CORSConfig     `yaml:"cors"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds shared-secret authentication settings.
// Guarded routes compare the X-Private-Key header against PrivateKey.
// Required=false disables the guard entirely (development only); an empty
// PrivateKey with Required=true makes guarded routes fail closed.
type AuthConfig struct {
	PrivateKey string `yaml:"private_key"`
	Required   bool   `yaml:"required"`
}

// HTTPConfig holds HTTP server settings. The write timeout must cover a
// whole consultation run, which holds the connection for minutes.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig holds catalog storage settings.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // redis, postgres (default: redis)
	Addrs            []string `yaml:"addrs"`  // redis driver
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	DSN              string   `yaml:"dsn"` // postgres driver
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EngineConfig holds analysis engine settings.
type EngineConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`
}

// PipelineConfig holds dispatch policy settings.
// LaunchIntervalMs == -1 disables inter-launch pacing.
type PipelineConfig struct {
	MaxConcurrent    int  `yaml:"max_concurrent"`
	LaunchIntervalMs int  `yaml:"launch_interval_ms"`
	GeoStrict        bool `yaml:"geo_strict"`
}

// CORSConfig holds browser cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 30
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "redis"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "renoplan:"
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if c.Engine.Model == "" {
		c.Engine.Model = "gpt-4o-mini"
	}
	if c.Engine.Temperature <= 0 {
		c.Engine.Temperature = 0.2
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 60
	}
	if c.Engine.MaxRetries < 0 {
		c.Engine.MaxRetries = 0
	} else if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = 2
	}
	if c.Engine.RetryBackoffMs <= 0 {
		c.Engine.RetryBackoffMs = 500
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		c.Pipeline.MaxConcurrent = 4
	}
	if c.Pipeline.LaunchIntervalMs == 0 {
		c.Pipeline.LaunchIntervalMs = 1000
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Storage.Driver {
	case "redis":
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("storage.addrs is required for the redis driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be \"redis\" or \"postgres\", got %q", c.Storage.Driver)
	}
	if c.Engine.Temperature < 0 || c.Engine.Temperature > 2 {
		return fmt.Errorf("engine.temperature must be between 0 and 2, got %v", c.Engine.Temperature)
	}
	if c.Pipeline.LaunchIntervalMs < -1 {
		return fmt.Errorf("pipeline.launch_interval_ms must be >= -1, got %d", c.Pipeline.LaunchIntervalMs)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

// LaunchInterval returns the configured pacing gap in milliseconds as a
// usable value: 0 when pacing is disabled.
func (p PipelineConfig) LaunchInterval() int {
	if p.LaunchIntervalMs < 0 {
		return 0
	}
	return p.LaunchIntervalMs
}
