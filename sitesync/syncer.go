// Package sitesync drives exam modification delivery from the master site to
// the colleges an exam was distributed to.
package sitesync

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/metrics"
	"github.com/bloomgate/go-bloomgate/modlog"
)

var (
	// ErrNoModifications is returned when publishing an empty change set.
	ErrNoModifications = errors.New("sitesync: no modifications")
	// ErrUnknownExam is returned for exams that were never distributed.
	ErrUnknownExam = errors.New("sitesync: unknown exam")
	// ErrNotDistributed is returned when publishing changes to an exam that
	// was never distributed.
	ErrNotDistributed = errors.New("sitesync: can only modify distributed exams")
)

// ModRef is the part of a modification a site reports back.
type ModRef struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
}

// RecordID returns the modification id.
func (r ModRef) RecordID() string { return r.ID }

// Publication is the result of publishing a change set.
type Publication struct {
	ExamID              string                `json:"examId"`
	Filter              bloom.Snapshot        `json:"filter"`
	ModificationsToSync []modlog.Modification `json:"modificationsToSync"`
	AffectedSites       []string              `json:"affectedColleges"`
}

// Plan lists what a site has to apply to catch up with the master.
type Plan struct {
	ExamID               string                `json:"examId"`
	SiteID               string                `json:"siteId"`
	NeedsSync            bool                  `json:"needsSync"`
	ModificationsToApply []modlog.Modification `json:"modificationsToApply"`
	// Corrections are master versions of modifications the site holds with
	// different content.
	Corrections []ModRef `json:"corrections"`
}

// Opt configures a Syncer.
type Opt func(*Syncer)

// WithLogger specifies the logger for the Syncer.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithClock specifies the clock used to measure delivery delays.
func WithClock(clock clockwork.Clock) Opt {
	return func(s *Syncer) {
		s.clock = clock
	}
}

// WithReconcilerOptions passes options to the reconciler of modification
// references.
func WithReconcilerOptions(opts ...bloomjoin.Opt) Opt {
	return func(s *Syncer) {
		s.joinOpts = append(s.joinOpts, opts...)
	}
}

// Syncer is the master side of exam synchronization. It is safe for
// concurrent use.
type Syncer struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	joinOpts []bloomjoin.Opt

	mods       *modlog.Log
	store      *bloomjoin.FilterStore
	reconciler *bloomjoin.Reconciler[ModRef]

	mu    sync.RWMutex
	sites map[string][]string
}

// New creates a Syncer recording modifications in mods and publishing their
// filters in store under the exam id.
func New(mods *modlog.Log, store *bloomjoin.FilterStore, opts ...Opt) *Syncer {
	s := &Syncer{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		mods:   mods,
		store:  store,
		sites:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = bloomjoin.New[ModRef](append(
		[]bloomjoin.Opt{bloomjoin.WithLogger(s.logger.Named("reconciler"))},
		s.joinOpts...,
	)...)
	return s
}

// Distribute registers sites that received examID.
func (s *Syncer) Distribute(examID string, siteIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sites := s.sites[examID]
	for _, id := range siteIDs {
		if !slices.Contains(sites, id) {
			sites = append(sites, id)
		}
	}
	s.sites[examID] = sites
}

// Sites returns the sites examID was distributed to, in registration order.
func (s *Syncer) Sites(examID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.sites[examID])
	if out == nil {
		out = []string{}
	}
	return out
}

func (s *Syncer) known(examID string) bool {
	s.mu.RLock()
	_, ok := s.sites[examID]
	s.mu.RUnlock()
	return ok
}

// Publish records changes for examID and publishes the filter of the new
// modification ids.
func (s *Syncer) Publish(examID string, changes []modlog.Change) (Publication, error) {
	if len(changes) == 0 {
		return Publication{}, ErrNoModifications
	}
	if !s.known(examID) {
		return Publication{}, fmt.Errorf("%w: %s", ErrNotDistributed, examID)
	}
	mods, err := s.mods.Append(examID, changes)
	if err != nil {
		return Publication{}, fmt.Errorf("publish %s: %w", examID, err)
	}
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}
	f := s.reconciler.BuildFilter(ids)
	s.store.Publish(examID, f)
	s.logger.Info("modifications published",
		zap.String("exam", examID),
		zap.Int("count", len(mods)),
		zap.Object("filter", f),
	)
	return Publication{
		ExamID:              examID,
		Filter:              f.Serialize(),
		ModificationsToSync: mods,
		AffectedSites:       s.Sites(examID),
	}, nil
}

// Filter returns the filter last published for examID.
func (s *Syncer) Filter(examID string) (bloom.Snapshot, bool) {
	f, ok := s.store.Get(examID)
	if !ok {
		return bloom.Snapshot{}, false
	}
	return f.Serialize(), true
}

// Plan compares the modifications held by siteID with the master log of
// examID. Every master modification whose id the site does not report is
// scheduled, including those the filter round cannot see because the site
// never had them.
func (s *Syncer) Plan(examID, siteID string, siteMods []ModRef) (Plan, error) {
	if !s.known(examID) {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownExam, examID)
	}
	master := s.mods.All(examID)
	refs := make([]ModRef, len(master))
	ids := make([]string, len(master))
	for i, m := range master {
		refs[i] = ModRef{ID: m.ID, QuestionID: m.QuestionID}
		ids[i] = m.ID
	}
	res := s.reconciler.PerformJoin(refs, siteMods, ids)

	matched := make(map[string]struct{}, len(res.MatchingRecords))
	for _, r := range res.MatchingRecords {
		matched[r.ID] = struct{}{}
	}
	plan := Plan{
		ExamID:               examID,
		SiteID:               siteID,
		ModificationsToApply: []modlog.Modification{},
		Corrections:          res.SyncRequired,
	}
	for _, m := range master {
		if _, ok := matched[m.ID]; !ok {
			plan.ModificationsToApply = append(plan.ModificationsToApply, m)
		}
	}
	plan.NeedsSync = len(plan.ModificationsToApply) > 0 || len(plan.Corrections) > 0
	s.logger.Debug("sync planned",
		zap.String("exam", examID),
		zap.String("site", siteID),
		zap.Int("site modifications", len(siteMods)),
		zap.Int("to apply", len(plan.ModificationsToApply)),
		zap.Int("corrections", len(plan.Corrections)),
	)
	return plan, nil
}

// Ack records that siteID applied the modifications with the given ids and
// returns how many were not acknowledged before.
func (s *Syncer) Ack(examID, siteID string, ids []string) (int, error) {
	if !s.known(examID) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownExam, examID)
	}
	marked := s.mods.MarkSynced(examID, siteID, ids)
	now := s.clock.Now()
	for _, m := range marked {
		metrics.ReportSyncLag(string(m.ChangeType), now.Sub(m.Timestamp))
	}
	s.logger.Debug("sync acknowledged",
		zap.String("exam", examID),
		zap.String("site", siteID),
		zap.Int("acknowledged", len(marked)),
	)
	return len(marked), nil
}
