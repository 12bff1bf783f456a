// Package cmd is the base package for bloomgate executables. It loads the
// configuration from presets, files, the environment and command line flags.
package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/config"
	"github.com/bloomgate/go-bloomgate/config/presets"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

// flagKeys maps configuration flags to the keys they override.
var flagKeys = map[string]string{
	"listen":          "api.listen",
	"rate-limit":      "api.rate-limit",
	"metrics":         "main.metrics",
	"metrics-address": "main.metrics-address",
	"metrics-push":    "main.metrics-push",
	"instance":        "main.instance",
	"log-encoder":     "logging.log-encoder",
	"log-level":       "logging.app",
	"filter-size":     "filter.size",
	"hash-count":      "filter.hash-count",
	"hash-family":     "filter.hash-family",
	"auto-size-fpr":   "filter.auto-size-fpr",
	"master":          "client.base-url",
}

// AddFlags registers the configuration flags on flags.
func AddFlags(flags *pflag.FlagSet) {
	def := config.DefaultConfig()

	flags.StringP("preset", "p", "",
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))
	flags.StringP("config", "c", def.ConfigFile, "load configuration from file")

	/** ======================== Service Flags ========================== **/
	flags.String("listen", def.API.Listen, "address the api listens on")
	flags.Float64("rate-limit", def.API.RateLimit, "requests per second accepted by the api, 0 disables the limit")
	flags.Bool("metrics", def.CollectMetrics, "collect and serve metrics")
	flags.String("metrics-address", def.MetricsAddress, "address of the metrics server")
	flags.String("metrics-push", def.MetricsPush, "push metrics to this push gateway url")
	flags.String("instance", def.Instance, "name of this service in pushed metrics")

	/** ======================== Logging Flags ========================== **/
	flags.String("log-encoder", def.LOGGING.Encoder, "log encoder, console or json")
	flags.String("log-level", def.LOGGING.AppLoggerLevel, "level of the application logger")

	/** ======================== Filter Flags ========================== **/
	flags.Uint32("filter-size", def.Filter.Size, "number of bits of built filters")
	flags.Uint32("hash-count", def.Filter.HashCount, "number of probes per id")
	flags.String("hash-family", def.Filter.HashFamily,
		fmt.Sprintf("probe derivation, %s or %s", bloom.FamilySeededSHA256, bloom.FamilyDoubleHashing))
	flags.Float64("auto-size-fpr", def.Filter.AutoSizeFPR,
		"size filters for the number of distinct ids at this false positive rate, 0 disables")

	/** ======================== Client Flags ========================== **/
	flags.String("master", def.Client.BaseURL, "url of the master site")
}

// LoadConfig builds the configuration. Later sources override earlier ones:
// the preset (or the defaults), the config file, the environment and the
// flags set on the command line.
func LoadConfig(afs afero.Fs, flags *pflag.FlagSet) (*config.Config, error) {
	base := config.DefaultConfig()
	if name, _ := flags.GetString("preset"); name != "" {
		conf, err := presets.Get(name)
		if err != nil {
			return nil, err
		}
		base = conf
	}

	vip := viper.New()
	vip.SetFs(afs)
	file, _ := flags.GetString("config")
	if err := config.LoadConfig(file, vip); err != nil {
		return nil, err
	}

	var bindErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := vip.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	conf, err := config.ParseOnto(vip, base)
	if err != nil {
		return nil, err
	}
	conf.ConfigFile = file
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return conf, nil
}

// ReconcilerOpts translates cfg into options of a bloomjoin.Reconciler.
func ReconcilerOpts(cfg config.FilterConfig) ([]bloomjoin.Opt, error) {
	family, err := bloom.FamilyByName(cfg.HashFamily)
	if err != nil {
		return nil, err
	}
	opts := []bloomjoin.Opt{
		bloomjoin.WithFilterParams(cfg.Size, cfg.HashCount),
		bloomjoin.WithHashFamily(family),
	}
	if cfg.AutoSizeFPR > 0 {
		opts = append(opts, bloomjoin.WithAutoSizing(cfg.AutoSizeFPR))
	}
	return opts, nil
}
