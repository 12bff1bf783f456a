package presets

import (
	"github.com/bloomgate/go-bloomgate/config"
)

func init() {
	register("standalone", standalone())
}

// standalone serves a single master with replicas on the same host.
func standalone() config.Config {
	conf := config.DefaultConfig()

	conf.API.Listen = "127.0.0.1:3000"
	conf.API.CORSOrigins = []string{"http://localhost:3001"}
	conf.Store.Size = 64
	conf.Join.Concurrency = 2
	conf.Client.RetryMax = 1

	conf.LOGGING.AppLoggerLevel = "debug"
	conf.LOGGING.ReconcilerLoggerLevel = "debug"
	conf.LOGGING.SiteSyncLoggerLevel = "debug"
	return conf
}
