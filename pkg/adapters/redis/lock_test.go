package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/pkg/adapters/redis"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newTestClient(t)
	locker := redis.NewLocker(client, "intake:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("intake:lock:session-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("intake:lock:session-1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newTestClient(t)
	locker1 := redis.NewLocker(client, "intake:")
	locker2 := redis.NewLocker(client, "intake:")
	ctx := context.Background()
	key := "shared-session"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	// The second holder polls until its context gives up.
	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()
	assert.True(t, mr.Exists("intake:lock:shared-session"))
}

func TestRedisLocker_StaleUnlockIsSafe(t *testing.T) {
	mr, client := newTestClient(t)
	locker := redis.NewLocker(client, "intake:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "s1", time.Second)
	require.NoError(t, err)

	// The first holder's lock expires and another holder takes over.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	// The stale unlock must not release the new holder's lock.
	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("intake:lock:s1"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("intake:lock:s1"))
}
