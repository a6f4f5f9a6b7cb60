package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	rec, err := s.Get(ctx, "rec1|10.0.0.1", now)
	require.NoError(t, err)
	assert.Nil(t, rec)

	for i := 1; i <= 3; i++ {
		rec, err = s.RecordFailure(ctx, "rec1|10.0.0.1", now.Add(time.Duration(i)*time.Minute), 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, rec.Count)
		assert.Equal(t, now.Add(time.Minute), rec.FirstAt)
	}

	// The window is anchored at the first failure.
	rec, err = s.Get(ctx, "rec1|10.0.0.1", now.Add(16*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = s.RecordFailure(ctx, "rec1|10.0.0.1", now.Add(17*time.Minute), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestInMemoryLockOutlivesWindow(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.RecordFailure(ctx, "k", now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Lock(ctx, "k", now.Add(time.Hour)))

	rec, err := s.Get(ctx, "k", now.Add(30*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsLockedAt(now.Add(30*time.Minute)))

	require.NoError(t, s.Clear(ctx, "k"))
	rec, err = s.Get(ctx, "k", now)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
