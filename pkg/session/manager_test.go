package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/pkg/adapters/memory"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/session"
)

func TestMemory_InitializeRejectsDuplicates(t *testing.T) {
	mem := session.NewMemory(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mem.Initialize(ctx, domain.NewSession("s1", "subject", "welcome")))
	err := mem.Initialize(ctx, domain.NewSession("s1", "subject", "welcome"))
	assert.Error(t, err)
}

func TestMemory_ConcurrentMergesAreSerialized(t *testing.T) {
	mem := session.NewMemory(memory.NewStore())
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, mem.Initialize(ctx, domain.NewSession(id, "subject", "welcome")))

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := mem.MergeContext(ctx, id, map[string]any{key: key})
			assert.NoError(t, err)
		}(key)
	}
	wg.Wait()

	merged, err := mem.GetContext(ctx, id)
	require.NoError(t, err)
	for _, key := range keys {
		assert.Equal(t, key, merged[key])
	}
}

func TestMemory_Abandon(t *testing.T) {
	mem := session.NewMemory(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mem.Initialize(ctx, domain.NewSession("s1", "subject", "welcome")))
	require.NoError(t, mem.Abandon(ctx, "s1"))

	loaded, err := mem.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, loaded.Status)
	require.NotNil(t, loaded.EndedAt)

	// A second abandon keeps the original end time.
	first := *loaded.EndedAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, mem.Abandon(ctx, "s1"))
	again, err := mem.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, first, *again.EndedAt)
}

func TestMemory_AbandonMissingSession(t *testing.T) {
	mem := session.NewMemory(memory.NewStore())
	err := mem.Abandon(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestBuildConversationSummary(t *testing.T) {
	steps := []domain.SessionStep{
		{Input: "hi", Response: "Welcome. What brings you in?"},
		{Input: "chest pain", Response: "How long has it lasted?"},
		{Input: "two days", Response: "Thanks."},
	}

	t.Run("all steps", func(t *testing.T) {
		got := session.BuildConversationSummary(steps, 0)
		want := "User: hi\nAssistant: Welcome. What brings you in?\n" +
			"User: chest pain\nAssistant: How long has it lasted?\n" +
			"User: two days\nAssistant: Thanks."
		assert.Equal(t, want, got)
	})

	t.Run("limited to most recent", func(t *testing.T) {
		got := session.BuildConversationSummary(steps, 1)
		assert.Equal(t, "User: two days\nAssistant: Thanks.", got)
	})

	t.Run("skips empty sides", func(t *testing.T) {
		got := session.BuildConversationSummary([]domain.SessionStep{
			{Response: "Welcome."},
		}, 0)
		assert.Equal(t, "Assistant: Welcome.", got)
	})
}
