package cmd

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/config"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

const testConfig = `
[main]
instance = "master-eu"

[filter]
size = 2048
hash-count = 4

[api]
listen = "0.0.0.0:4000"
`

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := LoadConfig(afero.NewMemMapFs(), parseFlags(t))
	require.NoError(t, err)
	def := config.DefaultConfig()
	require.Equal(t, def.API, conf.API)
	require.Equal(t, def.Filter, conf.Filter)
	require.Equal(t, def.ConfigFile, conf.ConfigFile)
}

func TestLoadConfigPrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/bloomgate.toml", []byte(testConfig), 0o600))

	t.Run("preset", func(t *testing.T) {
		conf, err := LoadConfig(fs, parseFlags(t, "-p", "large"))
		require.NoError(t, err)
		require.Equal(t, bloom.FamilyDoubleHashing, conf.Filter.HashFamily)
		require.Equal(t, config.JSONLogEncoder, conf.LOGGING.Encoder)
	})
	t.Run("file over preset", func(t *testing.T) {
		conf, err := LoadConfig(fs, parseFlags(t, "-p", "large", "-c", "/etc/bloomgate.toml"))
		require.NoError(t, err)
		require.Equal(t, bloom.FamilyDoubleHashing, conf.Filter.HashFamily)
		require.EqualValues(t, 2048, conf.Filter.Size)
		require.EqualValues(t, 4, conf.Filter.HashCount)
		require.Equal(t, "0.0.0.0:4000", conf.API.Listen)
		require.Equal(t, "master-eu", conf.Instance)
		require.Equal(t, "/etc/bloomgate.toml", conf.ConfigFile)
	})
	t.Run("env over file", func(t *testing.T) {
		t.Setenv("BLOOMGATE_FILTER_HASH_COUNT", "5")
		conf, err := LoadConfig(fs, parseFlags(t, "-c", "/etc/bloomgate.toml"))
		require.NoError(t, err)
		require.EqualValues(t, 5, conf.Filter.HashCount)
		require.EqualValues(t, 2048, conf.Filter.Size)
	})
	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("BLOOMGATE_FILTER_HASH_COUNT", "5")
		conf, err := LoadConfig(fs, parseFlags(t,
			"-c", "/etc/bloomgate.toml",
			"--hash-count", "7",
			"--listen", "127.0.0.1:5000",
			"--metrics",
		))
		require.NoError(t, err)
		require.EqualValues(t, 7, conf.Filter.HashCount)
		require.Equal(t, "127.0.0.1:5000", conf.API.Listen)
		require.True(t, conf.CollectMetrics)
	})
}

func TestLoadConfigErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	for name, args := range map[string][]string{
		"unknown preset":   {"-p", "tiny"},
		"missing file":     {"-c", "/etc/missing.toml"},
		"unknown family":   {"--hash-family", "md5"},
		"zero filter size": {"--filter-size", "0"},
		"bad log level":    {"--log-level", "loud"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(fs, parseFlags(t, args...))
			require.Error(t, err)
		})
	}
}

func TestReconcilerOpts(t *testing.T) {
	conf := config.DefaultConfig().Filter
	opts, err := ReconcilerOpts(conf)
	require.NoError(t, err)
	require.Len(t, opts, 2)

	conf.AutoSizeFPR = 0.01
	opts, err = ReconcilerOpts(conf)
	require.NoError(t, err)
	require.Len(t, opts, 3)

	conf.HashFamily = "md5"
	_, err = ReconcilerOpts(conf)
	require.Error(t, err)
}
