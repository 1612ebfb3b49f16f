package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract. Every adapter's test suite calls this.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000")

	t.Run("CreateAndLoad", func(t *testing.T) {
		session := domain.NewSession(sessionID, "subject-1", "welcome")
		require.NoError(t, store.CreateSession(ctx, session))

		loaded, err := store.LoadSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, "subject-1", loaded.SubjectID)
		assert.Equal(t, "welcome", loaded.CurrentNodeID)
		assert.Equal(t, domain.StatusActive, loaded.Status)
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		_, err := store.LoadSession(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("SaveSession", func(t *testing.T) {
		session, err := store.LoadSession(ctx, sessionID)
		require.NoError(t, err)

		session.CurrentNodeID = "demographics"
		session.Status = domain.StatusCompleted
		now := time.Now().UTC()
		session.EndedAt = &now
		require.NoError(t, store.SaveSession(ctx, session))

		loaded, err := store.LoadSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "demographics", loaded.CurrentNodeID)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
		require.NotNil(t, loaded.EndedAt)
	})

	t.Run("ContextMerge", func(t *testing.T) {
		empty, err := store.LoadContext(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, empty)

		merged, err := store.MergeContext(ctx, sessionID, map[string]any{
			"demographics": map[string]any{"age": 44},
			"chiefComplaint": "headache",
		})
		require.NoError(t, err)
		assert.Equal(t, "headache", merged["chiefComplaint"])

		// Nested maps spread one level instead of replacing wholesale.
		merged, err = store.MergeContext(ctx, sessionID, map[string]any{
			"demographics": map[string]any{"sex": "female"},
		})
		require.NoError(t, err)
		demo, ok := merged["demographics"].(map[string]any)
		require.True(t, ok)
		assert.NotNil(t, demo["age"])
		assert.Equal(t, "female", demo["sex"])

		loaded, err := store.LoadContext(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "headache", loaded["chiefComplaint"])
	})

	t.Run("StepLogOrder", func(t *testing.T) {
		for i, nodeID := range []string{"welcome", "demographics", "symptoms"} {
			step := &domain.SessionStep{
				NodeID:    nodeID,
				Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
				Input:     "input " + nodeID,
				Response:  "response " + nodeID,
			}
			require.NoError(t, store.AppendStep(ctx, sessionID, step))
		}

		steps, err := store.LoadSteps(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, steps, 3)
		assert.Equal(t, "welcome", steps[0].NodeID)
		assert.Equal(t, "demographics", steps[1].NodeID)
		assert.Equal(t, "symptoms", steps[2].NodeID)
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-a"
		id2 := sessionID + "-b"
		require.NoError(t, store.CreateSession(ctx, domain.NewSession(id1, "s", "welcome")))
		require.NoError(t, store.CreateSession(ctx, domain.NewSession(id2, "s", "welcome")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.LoadSession(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		steps, err := store.LoadSteps(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, steps)
	})
}
