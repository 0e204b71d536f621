package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/olgkv/linkchecker/internal/policy"
)

// Config describes runtime settings. Every key can be set from a YAML file or from the
// environment; nested keys map to upper-case names with dots replaced by underscores
// (archive.mode -> ARCHIVE_MODE).
type Config struct {
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	MaxLinks       int           `mapstructure:"max_links" validate:"gte=1"`
	MaxWorkers     int           `mapstructure:"max_workers" validate:"gte=1,lte=1000"`
	MaxRedirects   int           `mapstructure:"max_redirects" validate:"gte=0,lte=50"`
	CheckRPS       float64       `mapstructure:"check_rps" validate:"gte=0"`
	CheckBurst     int           `mapstructure:"check_burst" validate:"gte=0"`
	UserAgent      string        `mapstructure:"user_agent"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst" validate:"gte=0"`

	Archive    ArchiveConfig    `mapstructure:"archive"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Log        LogConfig        `mapstructure:"log"`
}

type ArchiveConfig struct {
	Mode             string        `mapstructure:"mode" validate:"oneof=none standard strong"`
	Include          []int         `mapstructure:"include" validate:"dive,gte=100,lte=599"`
	Exclude          []int         `mapstructure:"exclude" validate:"dive,gte=100,lte=599"`
	Endpoint         string        `mapstructure:"endpoint" validate:"required,url"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RPS              float64       `mapstructure:"rps" validate:"gte=0"`
	Burst            int           `mapstructure:"burst" validate:"gte=0"`
	Retries          int           `mapstructure:"retries" validate:"gte=0,lte=10"`
	Backoff          time.Duration `mapstructure:"backoff" validate:"gte=0"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown" validate:"gte=0"`
}

type ScreenshotConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Dir         string        `mapstructure:"dir" validate:"required"`
	ChromePath  string        `mapstructure:"chrome_path"`
	PageTimeout time.Duration `mapstructure:"page_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("max_links", 50)
	v.SetDefault("max_workers", 16)
	v.SetDefault("max_redirects", 10)
	v.SetDefault("check_rps", 0)
	v.SetDefault("check_burst", 1)
	v.SetDefault("user_agent", "")
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 20)

	v.SetDefault("archive.mode", "none")
	v.SetDefault("archive.include", []int{})
	v.SetDefault("archive.exclude", []int{})
	v.SetDefault("archive.endpoint", "https://web.archive.org")
	v.SetDefault("archive.timeout", 60*time.Second)
	v.SetDefault("archive.rps", 0.25)
	v.SetDefault("archive.burst", 1)
	v.SetDefault("archive.retries", 0)
	v.SetDefault("archive.backoff", 2*time.Second)
	v.SetDefault("archive.failure_threshold", 5)
	v.SetDefault("archive.cooldown", time.Minute)

	v.SetDefault("screenshot.enabled", false)
	v.SetDefault("screenshot.dir", "grab_link_screenshots")
	v.SetDefault("screenshot.chrome_path", "")
	v.SetDefault("screenshot.page_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
}

// Load reads configuration from defaults, the optional file, the environment and any
// flags already bound to v, in increasing order of precedence.
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	// lists from the environment arrive as "404,410"
	for _, key := range []string{"archive.include", "archive.exclude"} {
		if s, ok := v.Get(key).(string); ok {
			codes, err := parseCodes(s)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", key, err)
			}
			v.Set(key, codes)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Archive.Mode = strings.ToLower(strings.TrimSpace(cfg.Archive.Mode))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q (value %v): %w", f.Namespace(), f.Tag(), f.Value(), err)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func parseCodes(s string) ([]int, error) {
	codes := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("status code %q: %w", part, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// ArchiveRules converts the archive section into policy rules.
func (c *Config) ArchiveRules() (policy.Rules, error) {
	mode, err := policy.ParseMode(c.Archive.Mode)
	if err != nil {
		return policy.Rules{}, err
	}
	return policy.Rules{
		Mode:    mode,
		Include: policy.NewStatusSet(c.Archive.Include...),
		Exclude: policy.NewStatusSet(c.Archive.Exclude...),
	}, nil
}
