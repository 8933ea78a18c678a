package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置 ====================

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Wizard   WizardConfig   `mapstructure:"wizard"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 暂存存储配置，Addr 为空时退回内存存储
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UpstreamConfig 市场后端配置
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// JWTConfig 认证配置
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// WizardConfig 向导业务配置
type WizardConfig struct {
	StagingTTL     time.Duration `mapstructure:"staging_ttl"`
	DraftRetention time.Duration `mapstructure:"draft_retention"`
}

// Load 读取配置
// 查找 ./config.yaml 与 ./config 目录；环境变量前缀 LISTHUB，
// 如 LISTHUB_DATABASE_DSN 覆盖 database.dsn
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("LISTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件可选，全走默认值 + 环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.dsn", "host=localhost user=listhub password=listhub dbname=listhub port=5432 sslmode=disable")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("upstream.base_url", "http://localhost:9000/api/v1")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("jwt.secret", "listhub-dev-secret")
	v.SetDefault("jwt.expiry", 24*time.Hour)
	v.SetDefault("wizard.staging_ttl", 24*time.Hour)
	v.SetDefault("wizard.draft_retention", 30*24*time.Hour)
}
