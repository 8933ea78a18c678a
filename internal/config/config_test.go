package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("默认端口应为 8080: %s", cfg.Server.Port)
	}
	if cfg.Wizard.StagingTTL != 24*time.Hour {
		t.Fatalf("默认暂存有效期应为 24h: %v", cfg.Wizard.StagingTTL)
	}
	if cfg.Wizard.DraftRetention != 30*24*time.Hour {
		t.Fatalf("默认草稿保留期应为 30 天: %v", cfg.Wizard.DraftRetention)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("默认不配置 Redis: %s", cfg.Redis.Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LISTHUB_SERVER_PORT", "9090")
	t.Setenv("LISTHUB_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("环境变量应覆盖端口: %s", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("环境变量应覆盖 Redis 地址: %s", cfg.Redis.Addr)
	}
}
