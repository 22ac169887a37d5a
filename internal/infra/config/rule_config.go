package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go_mock_dispatch/utils"

	"gopkg.in/yaml.v3"
)

// MockConfig 服务配置
type MockConfig struct {
	ServerConfig         ServerConfig         `yaml:"server"`
	StorageConfig        StorageConfig        `yaml:"storage"`
	DatabaseConfig       DatabaseConfig       `yaml:"database"`
	DatabaseOptionConfig DatabaseOptionConfig `yaml:"databaseConfig"`
	RedisConfig          RedisConfig          `yaml:"redis"`
	DefinitionRepoConfig DefinitionRepoConfig `yaml:"definitionRepo"`
	RemoteConfig         RemoteConfig         `yaml:"remote"`
	CallbackConfig       CallbackConfig       `yaml:"callback"`
	LogConfig            LogConfig            `yaml:"log"`
}

// ServerConfig covers the dispatch listener. The admin API listens where
// conf/chassis.yaml says.
type ServerConfig struct {
	DispatchAddr    string        `yaml:"dispatchAddr"`
	PublicBaseURL   string        `yaml:"publicBaseURL"`
	PathPrefix      string        `yaml:"pathPrefix"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"
)

type StorageConfig struct {
	Type        string `yaml:"type"`
	AutoMigrate bool   `yaml:"autoMigrate"`
}

// DefinitionRepoConfig 封装 definitionRepoImpl 的配置参数
type DefinitionRepoConfig struct {
	CacheRetryCount int           `json:"cacheRetryCount" yaml:"cacheRetryCount"`
	CacheRetryDelay time.Duration `json:"cacheRetryDelay" yaml:"cacheRetryDelay"`
	SaveRetryCount  int           `json:"saveRetryCount" yaml:"saveRetryCount"`
	SaveRetryDelay  time.Duration `json:"saveRetryDelay" yaml:"saveRetryDelay"`
	AsyncPoolSize   int           `json:"asyncPoolSize" yaml:"asyncPoolSize"`
}

// RemoteConfig controls live fetches of remote-content definitions.
type RemoteConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

type CallbackConfig struct {
	PoolSize       int           `yaml:"poolSize"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Options converts to the logger's options.
func (c LogConfig) Options() utils.LogOptions {
	return utils.LogOptions{
		Level:      c.Level,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// Default 内存存储、无 Redis 的可用配置
func Default() *MockConfig {
	return &MockConfig{
		ServerConfig: ServerConfig{
			DispatchAddr:    ":8081",
			PublicBaseURL:   "http://127.0.0.1:8081",
			ShutdownTimeout: 10 * time.Second,
		},
		StorageConfig: StorageConfig{Type: StorageMemory},
		DatabaseConfig: DatabaseConfig{
			Host: "127.0.0.1",
			Port: 3306,
		},
		DatabaseOptionConfig: DatabaseOptionConfig{
			MaxIdleConns:    5,
			MaxOpenConns:    20,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
			LogLevel:        "warn",
			SlowThreshold:   200 * time.Millisecond,
		},
		RedisConfig: RedisConfig{
			Host:      "127.0.0.1",
			Port:      6379,
			PoolSize:  10,
			KeyPrefix: "mock_definition:",
			TTL:       24 * time.Hour,
		},
		DefinitionRepoConfig: DefinitionRepoConfig{
			CacheRetryCount: 3,
			CacheRetryDelay: 50 * time.Millisecond,
			SaveRetryCount:  3,
			SaveRetryDelay:  100 * time.Millisecond,
			AsyncPoolSize:   8,
		},
		RemoteConfig: RemoteConfig{
			Timeout:  5 * time.Second,
			Attempts: 3,
			Delay:    200 * time.Millisecond,
		},
		CallbackConfig: CallbackConfig{
			PoolSize:       16,
			MaxDelay:       time.Hour,
			RequestTimeout: 10 * time.Second,
		},
		LogConfig: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 7,
		},
	}
}

// LoadMockConfig 加载配置. An empty path falls back to the environment; a
// missing implicit file yields Default().
func LoadMockConfig(path string) (*MockConfig, error) {
	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}

	config := Default()
	configFile, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		utils.GetLogger().Warnf("config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用环境变量
	if path := os.Getenv("MOCK_CONFIG_PATH"); path != "" {
		return path
	}

	env := os.Getenv("MOCK_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("mock.%s.yaml", env)
}

// validate 验证配置
func (c *MockConfig) validate() error {
	if c.ServerConfig.DispatchAddr == "" {
		return fmt.Errorf("server dispatchAddr is required")
	}
	if p := c.ServerConfig.PathPrefix; p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("server pathPrefix must start with /")
	}

	switch c.StorageConfig.Type {
	case StorageMemory:
	case StorageMySQL:
		if err := c.validateDatabase(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage type must be %q or %q, got %q", StorageMemory, StorageMySQL, c.StorageConfig.Type)
	}

	if c.RedisConfig.Enabled && c.RedisConfig.Host == "" {
		return fmt.Errorf("redis host is required when redis is enabled")
	}
	if c.DefinitionRepoConfig.AsyncPoolSize <= 0 {
		return fmt.Errorf("definitionRepo asyncPoolSize must be positive")
	}
	if c.RemoteConfig.Attempts <= 0 {
		return fmt.Errorf("remote attempts must be positive")
	}
	if c.CallbackConfig.PoolSize <= 0 {
		return fmt.Errorf("callback poolSize must be positive")
	}
	return nil
}

func (c *MockConfig) validateDatabase() error {
	// 验证数据库配置
	db := c.DatabaseConfig
	if db.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if db.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if db.Username == "" {
		return fmt.Errorf("database username is required")
	}
	if db.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// 验证数据库连接池配置
	dbConfig := c.DatabaseOptionConfig
	if dbConfig.MaxIdleConns <= 0 {
		return fmt.Errorf("maxIdleConns must be positive")
	}
	if dbConfig.MaxOpenConns <= 0 {
		return fmt.Errorf("maxOpenConns must be positive")
	}
	if dbConfig.MaxOpenConns < dbConfig.MaxIdleConns {
		return fmt.Errorf("maxOpenConns must be greater than or equal to maxIdleConns")
	}
	return nil
}
