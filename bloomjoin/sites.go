package bloomjoin

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JoinSites runs a join round for several replica sites at once. The filter
// is built once from changedIDs; each site is then narrowed down and compared
// against master concurrently, at most concurrency sites at a time (no limit
// if concurrency <= 0). The results are the same as calling PerformJoin for
// every site.
func (r *Reconciler[R]) JoinSites(
	ctx context.Context,
	master []R,
	sites map[string][]R,
	changedIDs []string,
	concurrency int,
) (map[string]JoinResult[R], error) {
	f := r.BuildFilter(changedIDs)
	var (
		mu      sync.Mutex
		results = make(map[string]JoinResult[R], len(sites))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}
	for siteID, records := range sites {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			matching := r.FilterRecords(records, f)
			res := JoinResult[R]{
				Filter:          f.Serialize(),
				MatchingRecords: matching,
				SyncRequired:    r.ComputeDelta(master, matching).ToSync,
			}
			r.logger.Debug("site joined",
				zap.String("site", siteID),
				zap.Int("sync required", len(res.SyncRequired)),
			)
			mu.Lock()
			results[siteID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
