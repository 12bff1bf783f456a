// Package config contains bloomgate service configuration definitions
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/bloomgate/go-bloomgate/bloom"
)

const (
	defaultConfigFileName = "./bloomgate.toml"
	// EnvPrefix prefixes environment variables overriding configuration
	// keys, e.g. BLOOMGATE_API_LISTEN for api.listen.
	EnvPrefix = "BLOOMGATE"
)

// Config defines the top level configuration for a bloomgate service.
type Config struct {
	BaseConfig `mapstructure:"main"`
	API        APIConfig    `mapstructure:"api"`
	Filter     FilterConfig `mapstructure:"filter"`
	Store      StoreConfig  `mapstructure:"store"`
	Join       JoinConfig   `mapstructure:"join"`
	Client     ClientConfig `mapstructure:"client"`
	LOGGING    LoggerConfig `mapstructure:"logging"`
}

// BaseConfig defines the process wide options.
type BaseConfig struct {
	ConfigFile string `mapstructure:"config"`

	CollectMetrics bool   `mapstructure:"metrics"`
	MetricsAddress string `mapstructure:"metrics-address"`

	// MetricsPush is the url of a prometheus push gateway. Empty disables
	// pushing.
	MetricsPush       string        `mapstructure:"metrics-push"`
	MetricsPushPeriod time.Duration `mapstructure:"metrics-push-period"`
	// Instance names this service in pushed metrics.
	Instance string `mapstructure:"instance"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Listen            string        `mapstructure:"listen"`
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	RequestTimeout    time.Duration `mapstructure:"request-timeout"`
	MaxBodyBytes      int64         `mapstructure:"max-body-bytes"`
	CORSOrigins       []string      `mapstructure:"cors-origins"`
	// RateLimit is the number of requests per second accepted by the server.
	// Zero disables rate limiting.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`
}

// FilterConfig configures the filters built by the master site.
type FilterConfig struct {
	Size       uint32 `mapstructure:"size"`
	HashCount  uint32 `mapstructure:"hash-count"`
	HashFamily string `mapstructure:"hash-family"`
	// AutoSizeFPR enables sizing filters for the number of distinct ids.
	// Zero keeps every filter at Size bits.
	AutoSizeFPR float64 `mapstructure:"auto-size-fpr"`
}

// StoreConfig configures the published filter store.
type StoreConfig struct {
	Size int `mapstructure:"size"`
}

// JoinConfig configures multi-site joins.
type JoinConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ClientConfig configures the replica side HTTP client.
type ClientConfig struct {
	BaseURL      string        `mapstructure:"base-url"`
	RetryMax     int           `mapstructure:"retry-max"`
	RetryWaitMin time.Duration `mapstructure:"retry-wait-min"`
	RetryWaitMax time.Duration `mapstructure:"retry-wait-max"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		API: APIConfig{
			Listen:            "127.0.0.1:3000",
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    30 * time.Second,
			MaxBodyBytes:      16 << 20,
			CORSOrigins:       []string{"*"},
			RateLimit:         0,
			RateBurst:         100,
		},
		Filter: FilterConfig{
			Size:       bloom.DefaultSize,
			HashCount:  bloom.DefaultHashCount,
			HashFamily: bloom.FamilySeededSHA256,
		},
		Store: StoreConfig{Size: 4096},
		Join:  JoinConfig{Concurrency: 8},
		Client: ClientConfig{
			BaseURL:      "http://127.0.0.1:3000",
			RetryMax:     5,
			RetryWaitMin: 500 * time.Millisecond,
			RetryWaitMax: 10 * time.Second,
			Timeout:      30 * time.Second,
		},
		LOGGING: defaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		ConfigFile:     defaultConfigFileName,
		CollectMetrics: false,
		MetricsAddress: "127.0.0.1:1010",

		MetricsPushPeriod: time.Minute,
		Instance:          "bloomgate",
	}
}

// Validate checks the configuration for values the service cannot run with.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Filter.Size == 0 {
		errs = append(errs, errors.New("filter.size must be positive"))
	}
	if cfg.Filter.HashCount == 0 {
		errs = append(errs, errors.New("filter.hash-count must be positive"))
	}
	if _, err := bloom.FamilyByName(cfg.Filter.HashFamily); err != nil {
		errs = append(errs, err)
	}
	if cfg.Filter.AutoSizeFPR < 0 || cfg.Filter.AutoSizeFPR >= 1 {
		errs = append(errs, fmt.Errorf("filter.auto-size-fpr %v out of [0, 1)", cfg.Filter.AutoSizeFPR))
	}
	if cfg.Store.Size <= 0 {
		errs = append(errs, errors.New("store.size must be positive"))
	}
	if cfg.MetricsPush != "" && cfg.MetricsPushPeriod <= 0 {
		errs = append(errs, errors.New("main.metrics-push-period must be positive"))
	}
	if cfg.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate-limit must not be negative"))
	}
	if cfg.Client.RetryWaitMin > cfg.Client.RetryWaitMax {
		errs = append(errs, errors.New("client.retry-wait-min exceeds client.retry-wait-max"))
	}
	for _, lvl := range []string{
		cfg.LOGGING.AppLoggerLevel,
		cfg.LOGGING.ReconcilerLoggerLevel,
		cfg.LOGGING.ModLogLoggerLevel,
		cfg.LOGGING.SiteSyncLoggerLevel,
		cfg.LOGGING.APILoggerLevel,
		cfg.LOGGING.ClientLoggerLevel,
		cfg.LOGGING.FilterStoreLoggerLevel,
	} {
		if _, err := zapcore.ParseLevel(lvl); err != nil {
			errs = append(errs, err)
		}
	}
	switch cfg.LOGGING.Encoder {
	case ConsoleLogEncoder, JSONLogEncoder:
	default:
		errs = append(errs, fmt.Errorf("unknown log encoder %q", cfg.LOGGING.Encoder))
	}
	return errors.Join(errs...)
}

// LoadConfig reads the config file into vip. A missing file at the default
// location is not an error.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		fileLocation = defaultConfigFileName
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if fileLocation == defaultConfigFileName && (errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", fileLocation, err)
	}
	return nil
}

// Parse decodes the configuration held by vip on top of DefaultConfig.
// Environment variables prefixed with EnvPrefix override file values.
func Parse(vip *viper.Viper) (*Config, error) {
	return ParseOnto(vip, DefaultConfig())
}

// ParseOnto decodes the configuration held by vip on top of conf.
func ParseOnto(vip *viper.Viper, conf Config) (*Config, error) {
	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()
	if err := bindEnv(vip, "", reflect.TypeOf(Config{})); err != nil {
		return nil, err
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := vip.Unmarshal(&conf, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &conf, nil
}

// bindEnv registers every leaf key of t so that viper considers environment
// variables for keys absent from the config file.
func bindEnv(vip *viper.Viper, prefix string, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			if err := bindEnv(vip, key, field.Type); err != nil {
				return err
			}
			continue
		}
		if err := vip.BindEnv(key); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
