package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/O-Isaac/kamihama-server/pkg/assets"
)

func TestLoadReadsMagiRecoServerFromEnv(t *testing.T) {
	t.Setenv("MAGIRECOSERVER__ASSETBASE", " https://example.test/magica ")
	t.Setenv("MAGIRECOSERVER__PROXY", "http://127.0.0.1:3128")
	t.Setenv("MAGIRECOSERVER__TIMEOUTSECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MagiRecoServer.AssetBase != "https://example.test/magica" {
		t.Fatalf("unexpected asset base %q", cfg.MagiRecoServer.AssetBase)
	}
	if cfg.MagiRecoServer.Proxy != "http://127.0.0.1:3128" {
		t.Fatalf("unexpected proxy %q", cfg.MagiRecoServer.Proxy)
	}
	if cfg.MagiRecoServer.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.MagiRecoServer.Timeout)
	}
	if cfg.MagiRecoServer.VersionURL != assets.DefaultVersionURL {
		t.Fatalf("expected default version url, got %q", cfg.MagiRecoServer.VersionURL)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("unexpected storage type %q", cfg.StorageType)
	}
	if cfg.VersionCheckInterval != time.Hour {
		t.Fatalf("unexpected version check interval %v", cfg.VersionCheckInterval)
	}
	if cfg.PrefetchDelay != 250*time.Millisecond {
		t.Fatalf("unexpected prefetch delay %v", cfg.PrefetchDelay)
	}
	if cfg.StorageTTL != 7*24*time.Hour {
		t.Fatalf("unexpected storage ttl %v", cfg.StorageTTL)
	}
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("VERSION_CHECK_INTERVAL", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero version_check_interval")
	}
}

func TestLoadWithFlagsReadsSettingsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "appsettings.json")
	content := `{
  "MagiRecoServer": {
    "AssetBase": "https://file.example/magica",
    "Proxy": ""
  },
  "log_level": "warn"
}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("log-level", "", "")
	if err := flags.Parse([]string{"--config", file, "--log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadWithFlags(flags)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.MagiRecoServer.AssetBase != "https://file.example/magica" {
		t.Fatalf("unexpected asset base %q", cfg.MagiRecoServer.AssetBase)
	}
	if cfg.MagiRecoServer.Proxy != "" {
		t.Fatalf("expected empty proxy, got %q", cfg.MagiRecoServer.Proxy)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected flag to override log level, got %q", cfg.LogLevel)
	}
}

func TestLoadWithFlagsMissingFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	if err := flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.json")}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if _, err := LoadWithFlags(flags); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func writeSettings(t *testing.T, content string) *pflag.FlagSet {
	t.Helper()
	file := filepath.Join(t.TempDir(), "appsettings.json")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	if err := flags.Parse([]string{"--config", file}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return flags
}

func TestLoadWithFlagsReadsPublishersSection(t *testing.T) {
	flags := writeSettings(t, `{
  "MagiRecoServer": {"AssetBase": "https://file.example/magica"},
  "Publishers": [
    {"id": "discord", "type": "http", "http": {"url": "https://hooks.example/v", "headers": {"X-Source": "kamihama"}}},
    {"id": "queue", "type": "sqs", "enabled": false, "sqs": {"uri": "https://sqs.example/q.fifo", "region": "ap-northeast-1"}}
  ]
}`)

	cfg, err := LoadWithFlags(flags)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if len(cfg.Publishers) != 1 {
		t.Fatalf("expected only the enabled publisher, got %#v", cfg.Publishers)
	}
	hook := cfg.Publishers[0]
	if hook.ID != "discord" || hook.HTTP == nil || hook.HTTP.URL != "https://hooks.example/v" {
		t.Fatalf("unexpected publisher %#v", hook)
	}
	if hook.HTTP.Method != "POST" {
		t.Fatalf("expected default method, got %q", hook.HTTP.Method)
	}
}

func TestLoadWithFlagsRejectsInvalidPublishers(t *testing.T) {
	flags := writeSettings(t, `{
  "Publishers": [{"id": "queue", "type": "sqs", "sqs": {"uri": "https://sqs.example/q"}}]
}`)

	if _, err := LoadWithFlags(flags); err == nil {
		t.Fatalf("expected error for sqs publisher without region")
	}
}

func TestLoadWithoutPublishers(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Publishers) != 0 {
		t.Fatalf("expected no publishers, got %#v", cfg.Publishers)
	}
}
