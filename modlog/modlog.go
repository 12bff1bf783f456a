// Package modlog records the modifications made to distributed exams and
// answers which of them changed since a point in time.
package modlog

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tidwall/btree"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// ErrUnknownChangeType is returned for changes that are neither add,
	// remove nor update.
	ErrUnknownChangeType = errors.New("modlog: unknown change type")
	// ErrMissingQuestion is returned for changes without a question id.
	ErrMissingQuestion = errors.New("modlog: change without question id")
)

// ChangeType is the kind of a modification.
type ChangeType string

const (
	Add    ChangeType = "add"
	Remove ChangeType = "remove"
	Update ChangeType = "update"
)

// Valid reports whether c is a known change type.
func (c ChangeType) Valid() bool {
	switch c {
	case Add, Remove, Update:
		return true
	}
	return false
}

// Change is a modification requested by the exam author.
type Change struct {
	QuestionID    string     `json:"questionId"`
	ChangeType    ChangeType `json:"changeType"`
	NewQuestionID string     `json:"newQuestionId,omitempty"`
	Description   string     `json:"description"`
}

func (c Change) validate() error {
	if !c.ChangeType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownChangeType, c.ChangeType)
	}
	if c.QuestionID == "" {
		return ErrMissingQuestion
	}
	return nil
}

// Modification is a recorded change.
type Modification struct {
	ID            string     `json:"id"`
	ExamID        string     `json:"examId"`
	Timestamp     time.Time  `json:"timestamp"`
	QuestionID    string     `json:"questionId"`
	ChangeType    ChangeType `json:"changeType"`
	NewQuestionID string     `json:"newQuestionId,omitempty"`
	Description   string     `json:"description"`
	SyncedTo      []string   `json:"syncedToColleges"`
}

// RecordID returns the modification id.
func (m Modification) RecordID() string { return m.ID }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *Modification) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", m.ID)
	enc.AddString("exam", m.ExamID)
	enc.AddString("question", m.QuestionID)
	enc.AddString("change", string(m.ChangeType))
	enc.AddTime("timestamp", m.Timestamp)
	return nil
}

func (m *Modification) clone() Modification {
	c := *m
	c.SyncedTo = slices.Clone(m.SyncedTo)
	if c.SyncedTo == nil {
		c.SyncedTo = []string{}
	}
	return c
}

func less(a, b *Modification) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

type examLog struct {
	ordered *btree.BTreeG[*Modification]
	byID    map[string]*Modification
}

// Opt configures a Log.
type Opt func(*Log)

// WithLogger specifies the logger for the Log.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithClock specifies the clock used to timestamp modifications.
func WithClock(clock clockwork.Clock) Opt {
	return func(l *Log) {
		l.clock = clock
	}
}

// WithIDGenerator replaces the random UUID generator of modification ids.
func WithIDGenerator(gen func() string) Opt {
	return func(l *Log) {
		l.newID = gen
	}
}

// Log holds the modifications of every exam ordered by time. It is safe for
// concurrent use.
type Log struct {
	logger *zap.Logger
	clock  clockwork.Clock
	newID  func() string

	mu    sync.RWMutex
	exams map[string]*examLog
}

// New creates an empty Log.
func New(opts ...Opt) *Log {
	l := &Log{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		newID:  uuid.NewString,
		exams:  make(map[string]*examLog),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records changes for examID. All changes share one timestamp. Nothing
// is recorded if any change is invalid.
func (l *Log) Append(examID string, changes []Change) ([]Modification, error) {
	for i, c := range changes {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.exams[examID]
	if !ok {
		el = &examLog{
			ordered: btree.NewBTreeG(less),
			byID:    make(map[string]*Modification),
		}
		l.exams[examID] = el
	}
	out := make([]Modification, 0, len(changes))
	for _, c := range changes {
		m := &Modification{
			ID:            l.newID(),
			ExamID:        examID,
			Timestamp:     now,
			QuestionID:    c.QuestionID,
			ChangeType:    c.ChangeType,
			NewQuestionID: c.NewQuestionID,
			Description:   c.Description,
		}
		if _, dup := el.byID[m.ID]; dup {
			panic(fmt.Sprintf("BUG: duplicate modification id %s", m.ID))
		}
		el.ordered.Set(m)
		el.byID[m.ID] = m
		l.logger.Debug("modification recorded", zap.Object("modification", m))
		out = append(out, m.clone())
	}
	return out, nil
}

// All returns every modification of examID ordered by time.
func (l *Log) All(examID string) []Modification {
	return l.Since(examID, time.Time{})
}

// Since returns the modifications of examID recorded at or after t, ordered
// by time.
func (l *Log) Since(examID string, t time.Time) []Modification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []Modification{}
	el, ok := l.exams[examID]
	if !ok {
		return out
	}
	el.ordered.Ascend(&Modification{Timestamp: t}, func(m *Modification) bool {
		out = append(out, m.clone())
		return true
	})
	return out
}

// ChangedIDs returns the ids of the modifications of examID recorded at or
// after t, ordered by time.
func (l *Log) ChangedIDs(examID string, t time.Time) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []string{}
	el, ok := l.exams[examID]
	if !ok {
		return out
	}
	el.ordered.Ascend(&Modification{Timestamp: t}, func(m *Modification) bool {
		out = append(out, m.ID)
		return true
	})
	return out
}

// Pending returns the modifications of examID not yet delivered to siteID.
func (l *Log) Pending(examID, siteID string) []Modification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []Modification{}
	el, ok := l.exams[examID]
	if !ok {
		return out
	}
	el.ordered.Scan(func(m *Modification) bool {
		if !slices.Contains(m.SyncedTo, siteID) {
			out = append(out, m.clone())
		}
		return true
	})
	return out
}

// MarkSynced records that siteID received the modifications with the given
// ids and returns those that were not marked before. Unknown ids are skipped.
func (l *Log) MarkSynced(examID, siteID string, ids []string) []Modification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []Modification{}
	el, ok := l.exams[examID]
	if !ok {
		return out
	}
	for _, id := range ids {
		m, ok := el.byID[id]
		if !ok {
			l.logger.Debug("skipping unknown modification",
				zap.String("exam", examID),
				zap.String("id", id),
			)
			continue
		}
		if slices.Contains(m.SyncedTo, siteID) {
			continue
		}
		m.SyncedTo = append(m.SyncedTo, siteID)
		out = append(out, m.clone())
	}
	return out
}
