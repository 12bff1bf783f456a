package presets

import (
	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/config"
)

func init() {
	register("large", large())
}

// large targets masters publishing thousands of modifications per round.
// Peers must be configured with the same hash family.
func large() config.Config {
	conf := config.DefaultConfig()

	conf.API.Listen = "0.0.0.0:3000"
	conf.API.RateLimit = 200
	conf.API.RateBurst = 400
	conf.Filter.HashFamily = bloom.FamilyDoubleHashing
	conf.Filter.AutoSizeFPR = 0.001
	conf.Store.Size = 1 << 16
	conf.Join.Concurrency = 32
	conf.CollectMetrics = true
	conf.MetricsAddress = "0.0.0.0:1010"
	conf.LOGGING.Encoder = config.JSONLogEncoder
	return conf
}
