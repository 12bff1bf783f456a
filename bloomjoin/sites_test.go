package bloomjoin

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinSites(t *testing.T) {
	r := New[question]()
	master := make([]question, 0, 40)
	changed := make([]string, 0, 10)
	for i := range 40 {
		master = append(master, question{ID: fmt.Sprintf("q%d", i), Text: fmt.Sprintf("v2-%d", i)})
		if i%4 == 0 {
			changed = append(changed, fmt.Sprintf("q%d", i))
		}
	}
	sites := make(map[string][]question)
	for s := range 6 {
		var records []question
		for i := s; i < 40; i += 2 {
			text := fmt.Sprintf("v2-%d", i)
			if i%3 == 0 {
				text = fmt.Sprintf("v1-%d", i)
			}
			records = append(records, question{ID: fmt.Sprintf("q%d", i), Text: text})
		}
		sites[fmt.Sprintf("college-%d", s)] = records
	}

	for _, concurrency := range []int{0, 1, 3} {
		results, err := r.JoinSites(context.Background(), master, sites, changed, concurrency)
		require.NoError(t, err)
		require.Len(t, results, len(sites))
		for site, records := range sites {
			require.Equal(t, r.PerformJoin(master, records, changed), results[site], site)
		}
	}
}

func TestJoinSitesCanceled(t *testing.T) {
	r := New[question]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.JoinSites(ctx, nil, map[string][]question{"a": nil}, []string{"q1"}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestJoinSitesEmpty(t *testing.T) {
	r := New[question]()
	results, err := r.JoinSites(context.Background(), nil, nil, nil, 4)
	require.NoError(t, err)
	require.Empty(t, results)
}
