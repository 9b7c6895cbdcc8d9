package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mem, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	return map[string]Store{
		"memory":        NewMemory(),
		"sqlite":        db,
		"sqlite memory": mem,
	}
}

func TestRecorder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			start := time.Unix(1700000000, 0)

			require.NoError(t, s.Begin(ctx, Session{
				ID:        "s1",
				Request:   "What is 2 + 3 * 4?",
				Improved:  "Compute 2 + 3 * 4.",
				StartedAt: start,
			}))
			require.NoError(t, s.RecordStep(ctx, Step{
				SessionID: "s1",
				Number:    1,
				Text:      "Evaluate 2 + 3 * 4",
				Tool:      "calculate",
				Args:      `{"what":"2 + 3 * 4"}`,
				Result:    "The result is 14.",
				Status:    StatusOK,
			}))
			require.NoError(t, s.RecordStep(ctx, Step{
				SessionID: "s1",
				Number:    2,
				Text:      "Delete everything",
				Tool:      "rm",
				Status:    StatusRejected,
				Error:     "rejected by operator",
			}))
			require.NoError(t, s.Finish(ctx, "s1", StatusFulfilled, "14"))

			sess, err := s.Session(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "What is 2 + 3 * 4?", sess.Request)
			assert.Equal(t, "Compute 2 + 3 * 4.", sess.Improved)
			assert.Equal(t, "14", sess.Response)
			assert.Equal(t, StatusFulfilled, sess.Status)
			assert.True(t, sess.StartedAt.Equal(start))
			assert.False(t, sess.FinishedAt.IsZero())

			steps, err := s.Steps(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, steps, 2)
			assert.Equal(t, "calculate", steps[0].Tool)
			assert.Equal(t, StatusOK, steps[0].Status)
			assert.Equal(t, `{"what":"2 + 3 * 4"}`, steps[0].Args)
			assert.Equal(t, StatusRejected, steps[1].Status)
			assert.Equal(t, "rejected by operator", steps[1].Error)
		})
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Unix(1700000000, 0)
			for i, id := range []string{"a", "b", "c"} {
				require.NoError(t, s.Begin(ctx, Session{
					ID:        id,
					Request:   "request " + id,
					StartedAt: base.Add(time.Duration(i) * time.Minute),
				}))
			}

			all, err := s.Sessions(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "c", all[0].ID)
			assert.Equal(t, "a", all[2].ID)
			assert.Equal(t, StatusRunning, all[0].Status)

			two, err := s.Sessions(ctx, 2)
			require.NoError(t, err)
			require.Len(t, two, 2)
			assert.Equal(t, "b", two[1].ID)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Session(ctx, "missing")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			_, err = s.Steps(ctx, "missing")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			err = s.RecordStep(ctx, Step{SessionID: "missing", Number: 1, Status: StatusOK})
			assert.ErrorIs(t, err, ErrSessionNotFound)

			err = s.Finish(ctx, "missing", StatusFulfilled, "")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}
