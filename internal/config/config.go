package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/O-Isaac/kamihama-server/pkg/assets"
	"github.com/O-Isaac/kamihama-server/pkg/publishers"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string               `mapstructure:"app_name"`
	Env            string               `mapstructure:"app_env"`
	LogLevel       string               `mapstructure:"log_level"`
	MagiRecoServer MagiRecoServerConfig `mapstructure:"magirecoserver"`
	Publishers     []publishers.Sink    `mapstructure:"-"`

	VersionCheckIntervalSeconds int64         `mapstructure:"version_check_interval"`
	VersionCheckInterval        time.Duration `mapstructure:"-"`
	PrefetchDelayMs             int64         `mapstructure:"prefetch_delay_ms"`
	PrefetchDelay               time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// MagiRecoServerConfig mirrors the MagiRecoServer section of appsettings.
type MagiRecoServerConfig struct {
	AssetBase      string        `mapstructure:"assetbase"`
	Proxy          string        `mapstructure:"proxy"`
	UserAgent      string        `mapstructure:"useragent"`
	VersionURL     string        `mapstructure:"versionurl"`
	TimeoutSeconds int64         `mapstructure:"timeoutseconds"`
	Timeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with command line overrides bound on top. Supported
// flags are "config" (explicit settings file) and "log-level".
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.NewWithOptions(viper.KeyDelimiter(":"))

	v.SetDefault("app_name", "kamihama-server")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("magirecoserver:assetbase", "")
	v.SetDefault("magirecoserver:proxy", "")
	v.SetDefault("magirecoserver:useragent", "")
	v.SetDefault("magirecoserver:versionurl", assets.DefaultVersionURL)
	v.SetDefault("magirecoserver:timeoutseconds", 60)
	v.SetDefault("version_check_interval", 3600) // seconds
	v.SetDefault("prefetch_delay_ms", 250)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/assets.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.SetEnvKeyReplacer(strings.NewReplacer(":", "__"))
	v.AutomaticEnv()

	configFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = strings.TrimSpace(f.Value.String())
		}
		if f := flags.Lookup("log-level"); f != nil {
			if err := v.BindPFlag("log_level", f); err != nil {
				return nil, fmt.Errorf("bind log-level flag: %w", err)
			}
		}
	}
	if err := readSettingsFile(v, configFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	var sinks []publishers.Sink
	if err := v.UnmarshalKey("publishers", &sinks); err != nil {
		return nil, fmt.Errorf("unmarshal publishers: %w", err)
	}
	prepared, err := publishers.Prepare(sinks)
	if err != nil {
		return nil, fmt.Errorf("invalid publishers section: %w", err)
	}
	cfg.Publishers = prepared

	cfg.MagiRecoServer.AssetBase = strings.TrimSpace(cfg.MagiRecoServer.AssetBase)
	cfg.MagiRecoServer.Proxy = strings.TrimSpace(cfg.MagiRecoServer.Proxy)
	cfg.MagiRecoServer.VersionURL = strings.TrimSpace(cfg.MagiRecoServer.VersionURL)
	if cfg.MagiRecoServer.VersionURL == "" {
		cfg.MagiRecoServer.VersionURL = assets.DefaultVersionURL
	}
	if cfg.MagiRecoServer.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid MagiRecoServer:TimeoutSeconds (must not be negative)")
	}
	cfg.MagiRecoServer.Timeout = time.Duration(cfg.MagiRecoServer.TimeoutSeconds) * time.Second

	if cfg.VersionCheckIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid version_check_interval (must be positive seconds)")
	}
	cfg.VersionCheckInterval = time.Duration(cfg.VersionCheckIntervalSeconds) * time.Second

	if cfg.PrefetchDelayMs < 0 {
		return nil, fmt.Errorf("invalid prefetch_delay_ms (must not be negative)")
	}
	cfg.PrefetchDelay = time.Duration(cfg.PrefetchDelayMs) * time.Millisecond

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// readSettingsFile merges an appsettings file into v. An explicit path must
// exist; the default lookup tolerates a missing file.
func readSettingsFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("appsettings")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read appsettings: %w", err)
	}
	return nil
}

// AssetSettings converts the section into client settings.
func (m MagiRecoServerConfig) AssetSettings() assets.Settings {
	return assets.Settings{
		AssetBase: m.AssetBase,
		Proxy:     m.Proxy,
		UserAgent: m.UserAgent,
		Timeout:   m.Timeout,
	}
}
