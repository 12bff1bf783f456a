package modlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/bloomgate/go-bloomgate/log/logtest"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("mod-%03d", n)
	}
}

func newTestLog(t *testing.T) (*Log, clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return New(
		WithLogger(logtest.New(t)),
		WithClock(clock),
		WithIDGenerator(sequentialIDs()),
	), clock
}

func TestAppend(t *testing.T) {
	l, clock := newTestLog(t)
	mods, err := l.Append("exam-1", []Change{
		{QuestionID: "q1", ChangeType: Update, Description: "typo"},
		{QuestionID: "q2", ChangeType: Add, NewQuestionID: "q7", Description: "replace"},
	})
	require.NoError(t, err)
	require.Len(t, mods, 2)
	require.Equal(t, Modification{
		ID:          "mod-001",
		ExamID:      "exam-1",
		Timestamp:   clock.Now(),
		QuestionID:  "q1",
		ChangeType:  Update,
		Description: "typo",
		SyncedTo:    []string{},
	}, mods[0])
	require.Equal(t, "q7", mods[1].NewQuestionID)
	require.Len(t, l.All("exam-1"), 2)
	require.Empty(t, l.All("exam-2"))
}

func TestAppendRejectsInvalidChanges(t *testing.T) {
	l, _ := newTestLog(t)
	_, err := l.Append("exam-1", []Change{
		{QuestionID: "q1", ChangeType: Update},
		{QuestionID: "q2", ChangeType: "rename"},
	})
	require.ErrorIs(t, err, ErrUnknownChangeType)
	require.Empty(t, l.All("exam-1"))

	_, err = l.Append("exam-1", []Change{{ChangeType: Remove}})
	require.ErrorIs(t, err, ErrMissingQuestion)
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	l := New()
	mods, err := l.Append("exam-1", []Change{{QuestionID: "q1", ChangeType: Remove}})
	require.NoError(t, err)
	_, err = uuid.Parse(mods[0].ID)
	require.NoError(t, err)
}

func TestSinceAndChangedIDs(t *testing.T) {
	l, clock := newTestLog(t)
	_, err := l.Append("exam-1", []Change{{QuestionID: "q1", ChangeType: Update}})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	checkpoint := clock.Now()
	_, err = l.Append("exam-1", []Change{
		{QuestionID: "q2", ChangeType: Update},
		{QuestionID: "q3", ChangeType: Remove},
	})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = l.Append("exam-1", []Change{{QuestionID: "q4", ChangeType: Add}})
	require.NoError(t, err)
	_, err = l.Append("exam-2", []Change{{QuestionID: "q9", ChangeType: Add}})
	require.NoError(t, err)

	require.Equal(t, []string{"mod-001", "mod-002", "mod-003", "mod-004"}, l.ChangedIDs("exam-1", time.Time{}))
	require.Equal(t, []string{"mod-002", "mod-003", "mod-004"}, l.ChangedIDs("exam-1", checkpoint))
	require.Empty(t, l.ChangedIDs("exam-1", clock.Now().Add(time.Second)))
	require.Equal(t, []string{"mod-005"}, l.ChangedIDs("exam-2", time.Time{}))
	require.NotNil(t, l.ChangedIDs("exam-3", time.Time{}))

	since := l.Since("exam-1", checkpoint)
	require.Len(t, since, 3)
	require.Equal(t, "q2", since[0].QuestionID)
	require.Len(t, l.All("exam-1"), 4)
}

func TestOrderIsByTimeThenID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ids := []string{"c", "a", "b"}
	l := New(WithClock(clock), WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	_, err := l.Append("exam-1", []Change{{QuestionID: "q1", ChangeType: Add}})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = l.Append("exam-1", []Change{
		{QuestionID: "q2", ChangeType: Add},
		{QuestionID: "q3", ChangeType: Add},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, l.ChangedIDs("exam-1", time.Time{}))
}

func TestMarkSynced(t *testing.T) {
	l, _ := newTestLog(t)
	_, err := l.Append("exam-1", []Change{
		{QuestionID: "q1", ChangeType: Update},
		{QuestionID: "q2", ChangeType: Update},
	})
	require.NoError(t, err)

	marked := l.MarkSynced("exam-1", "college-a", []string{"mod-001", "mod-999"})
	require.Len(t, marked, 1)
	require.Equal(t, []string{"college-a"}, marked[0].SyncedTo)

	require.Empty(t, l.MarkSynced("exam-1", "college-a", []string{"mod-001"}))
	require.Empty(t, l.MarkSynced("exam-9", "college-a", []string{"mod-001"}))

	pending := l.Pending("exam-1", "college-a")
	require.Len(t, pending, 1)
	require.Equal(t, "mod-002", pending[0].ID)
	require.Len(t, l.Pending("exam-1", "college-b"), 2)

	// returned values do not alias the log
	all := l.All("exam-1")
	all[0].SyncedTo[0] = "tampered"
	require.Equal(t, []string{"college-a"}, l.All("exam-1")[0].SyncedTo)
}
