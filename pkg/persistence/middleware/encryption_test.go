package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/pkg/adapters/memory"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/persistence/middleware"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryptionMiddleware_ContextRoundTrip(t *testing.T) {
	inner := memory.NewStore()
	store := middleware.Chain(inner, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: testKey(1),
	}))
	ctx := context.Background()

	merged, err := store.MergeContext(ctx, "s1", map[string]any{
		"demographics": map[string]any{"age": 44.0},
	})
	require.NoError(t, err)
	merged, err = store.MergeContext(ctx, "s1", map[string]any{
		"chiefComplaint": "chest pain",
	})
	require.NoError(t, err)
	assert.Equal(t, "chest pain", merged["chiefComplaint"])

	loaded, err := store.LoadContext(ctx, "s1")
	require.NoError(t, err)
	demo := loaded["demographics"].(map[string]any)
	assert.Equal(t, 44.0, demo["age"])
	assert.Equal(t, "chest pain", loaded["chiefComplaint"])

	// At rest there is only the envelope, no plaintext.
	raw, err := inner.LoadContext(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	blob, ok := raw["__encrypted__"].(string)
	require.True(t, ok)
	assert.NotContains(t, blob, "chest pain")
}

func TestEncryptionMiddleware_StepRoundTrip(t *testing.T) {
	inner := memory.NewStore()
	store := middleware.Chain(inner, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: testKey(1),
	}))
	ctx := context.Background()

	require.NoError(t, store.AppendStep(ctx, "s1", &domain.SessionStep{
		NodeID:   "cardio",
		Input:    "crushing chest pressure",
		Response: "Please seek urgent care.",
		Reasoning: &domain.ReasoningSnapshot{
			RedFlags: []domain.RedFlag{{ID: "cardio_acs_pattern", Severity: domain.SeverityHigh}},
		},
	}))

	steps, err := store.LoadSteps(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "crushing chest pressure", steps[0].Input)
	require.NotNil(t, steps[0].Reasoning)
	assert.Equal(t, "cardio_acs_pattern", steps[0].Reasoning.RedFlags[0].ID)

	// The stored envelope keeps node ID and timestamp but hides the rest.
	raw, err := inner.LoadSteps(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "cardio", raw[0].NodeID)
	assert.Empty(t, raw[0].Input)
	data, _ := json.Marshal(raw[0])
	assert.NotContains(t, string(data), "crushing")
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()

	oldStore := middleware.Chain(inner, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: testKey(1),
	}))
	_, err := oldStore.MergeContext(ctx, "s1", map[string]any{"a": "written with old key"})
	require.NoError(t, err)

	rotated := middleware.Chain(inner, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    testKey(2),
		FallbackKeys: [][]byte{testKey(1)},
	}))
	loaded, err := rotated.LoadContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "written with old key", loaded["a"])

	// Without the fallback key the data is unreadable.
	wrongKey := middleware.Chain(inner, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: testKey(3),
	}))
	_, err = wrongKey.LoadContext(ctx, "s1")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_FailsClosedOnPlaintext(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()
	_, err := inner.MergeContext(ctx, "s1", map[string]any{"plain": true})
	require.NoError(t, err)

	store := middleware.Chain(inner, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: testKey(1),
	}))
	_, err = store.LoadContext(ctx, "s1")
	assert.Error(t, err)
}
