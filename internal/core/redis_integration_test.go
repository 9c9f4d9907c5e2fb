//go:build integration

// AngelaMos | 2026
// redis_integration_test.go

package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/studentshelf/internal/testutil/containers"
)

func TestAcquireLease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rdb := containers.NewRedis(t)
	ctx := context.Background()

	ok, release, err := rdb.AcquireLease(ctx, "lease:test", "holder-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = rdb.AcquireLease(ctx, "lease:test", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release(ctx)

	ok, releaseB, err := rdb.AcquireLease(ctx, "lease:test", "holder-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale release from the previous holder must not drop b's lease.
	release(ctx)
	holder, err := rdb.Client.Get(ctx, "lease:test").Result()
	require.NoError(t, err)
	assert.Equal(t, "holder-b", holder)

	releaseB(ctx)
	assert.Zero(t, rdb.Client.Exists(ctx, "lease:test").Val())
}

func TestAcquireLeaseExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rdb := containers.NewRedis(t)
	ctx := context.Background()

	ok, _, err := rdb.AcquireLease(ctx, "lease:ttl", "holder-a", 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		ok, _, err := rdb.AcquireLease(ctx, "lease:ttl", "holder-b", time.Minute)
		return err == nil && ok
	}, 3*time.Second, 50*time.Millisecond)
}
