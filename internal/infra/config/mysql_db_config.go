package configs

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DatabaseConfig 数据库基础配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Params are appended to the DSN, e.g. {"timeout": "3s"}.
	Params map[string]string `yaml:"params"`
}

// DatabaseOptionConfig 数据库连接池配置
type DatabaseOptionConfig struct {
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
	LogLevel        string        `yaml:"logLevel"` // silent|error|warn|info
	SlowThreshold   time.Duration `yaml:"slowThreshold"`
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	q := url.Values{}
	q.Set("charset", "utf8mb4")
	q.Set("parseTime", "True")
	q.Set("loc", "UTC")
	for k, v := range c.Params {
		q.Set(k, v)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		q.Encode(),
	)
}

// NormalizedLogLevel lower-cases LogLevel, defaulting to warn.
func (c *DatabaseOptionConfig) NormalizedLogLevel() string {
	switch lvl := strings.ToLower(strings.TrimSpace(c.LogLevel)); lvl {
	case "silent", "error", "warn", "info":
		return lvl
	default:
		return "warn"
	}
}
