package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "estekhdam/pkg/domain"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, id.UserID(0), UserID(ctx))
	assert.Equal(t, id.Role(""), Role(ctx))
	assert.True(t, SessionID(ctx).IsNil())
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sid := id.NewSessionID()

	ctx := WithPrincipal(context.Background(), id.UserID(9), id.RoleRecruiter)
	ctx = WithUsername(ctx, "rec1")
	ctx = WithSessionID(ctx, sid)
	ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, id.UserID(9), UserID(ctx))
	assert.Equal(t, id.RoleRecruiter, Role(ctx))
	assert.Equal(t, "rec1", Username(ctx))
	assert.Equal(t, sid, SessionID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
