package config

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Cache      CacheConfig      `mapstructure:"cache"`

	Telegram struct {
		Bot struct {
			Token string `mapstructure:"token" env:"TELEGRAM_BOT_TOKEN"`
		} `mapstructure:"bot"`
		App struct {
			ID         int    `mapstructure:"id" env:"TELEGRAM_APP_ID"`
			Hash       string `mapstructure:"hash" env:"TELEGRAM_APP_HASH"`
			SessionDir string `mapstructure:"session_dir" env:"TELEGRAM_APP_SESSION_DIR,default=sessions"`
		} `mapstructure:"app"`
	} `mapstructure:"telegram"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" env:"LOG_LEVEL,default=info"`
	Format string `mapstructure:"format" env:"LOG_FORMAT,default=console"`
}

// Development reports whether human readable console output was requested.
func (c LogConfig) Development() bool {
	return c.Format != "json"
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" env:"HTTP_ADDR,default=:5000"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" env:"HTTP_READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" env:"HTTP_WRITE_TIMEOUT,default=1h"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT,default=15s"`
	RateLimit       float64       `mapstructure:"rate_limit" env:"HTTP_RATE_LIMIT,default=10"`
	RateBurst       int           `mapstructure:"rate_burst" env:"HTTP_RATE_BURST,default=20"`
}

type DownloaderConfig struct {
	OutputDir         string        `mapstructure:"output_dir" env:"OUTPUT_DIR,default=downloads"`
	Binary            string        `mapstructure:"binary" env:"YTDLP_BINARY,default=yt-dlp"`
	CacheDir          string        `mapstructure:"cache_dir" env:"YTDLP_CACHE_DIR,default=/tmp/yt-dlp"`
	ProbeAttempts     uint          `mapstructure:"probe_attempts" env:"PROBE_ATTEMPTS,default=1"`
	JobTimeout        time.Duration `mapstructure:"job_timeout" env:"JOB_TIMEOUT"`
	MaxConcurrentJobs int64         `mapstructure:"max_concurrent_jobs" env:"MAX_CONCURRENT_JOBS"`
}

type RegistryConfig struct {
	TTL             time.Duration `mapstructure:"ttl" env:"JOB_TTL,default=1h"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" env:"JOB_CLEANUP_INTERVAL,default=5m"`
}

type CacheConfig struct {
	// Enabled serves repeated probes of a URL from memory instead of the engine.
	Enabled bool `mapstructure:"enabled" env:"PROBE_CACHE"`
	Size    int  `mapstructure:"size" env:"PROBE_CACHE_SIZE,default=10000"`
}

// NewConfig reads the optional yaml file first; environment variables and defaults
// only fill what the file left empty.
func NewConfig(ctx context.Context, configPath string) (*Config, error) {
	var conf Config
	if len(configPath) > 0 {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open config file '%s'", configPath)
		}
		defer f.Close()

		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(f); err != nil {
			return nil, errors.Wrap(err, "failed to read config yaml file")
		}
		if err := v.Unmarshal(&conf); err != nil {
			return nil, errors.Wrap(err, "failed to decode config yaml file")
		}
	}

	if err := envconfig.Process(ctx, &conf); err != nil {
		return nil, errors.Wrap(err, "failed to process config environment variables")
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) validate() error {
	if c.Downloader.OutputDir == "" {
		return errors.New("downloader output dir is required")
	}
	if c.Downloader.ProbeAttempts < 1 {
		return errors.New("probe attempts must be at least 1")
	}
	if c.Downloader.MaxConcurrentJobs < 0 {
		return errors.New("max concurrent jobs must not be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("http rate limit must not be negative")
	}
	if c.Cache.Size <= 0 {
		return errors.New("probe cache size must be positive")
	}

	return nil
}
