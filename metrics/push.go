package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushConfig configures pushing metrics to a prometheus push gateway.
type PushConfig struct {
	URL      string
	Period   time.Duration
	Instance string
	Username string
	Password string
	Headers  map[string]string
}

// Push pushes the metrics of gatherer to cfg.URL every cfg.Period until ctx
// is canceled. Failed pushes are logged and retried on the next tick.
func Push(ctx context.Context, cfg PushConfig, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Add(k, v)
	}
	pusher := push.New(cfg.URL, Namespace).Gatherer(gatherer).
		Grouping("instance", cfg.Instance).
		Header(header)
	if cfg.Username != "" && cfg.Password != "" {
		pusher = pusher.BasicAuth(cfg.Username, cfg.Password)
	}
	logger.Info("pushing metrics", zap.String("url", cfg.URL), zap.Duration("period", cfg.Period))
	ticker := time.NewTicker(cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := pusher.PushContext(ctx); err != nil {
				logger.Warn("failed to push metrics", zap.Error(err))
			}
		}
	}
}
