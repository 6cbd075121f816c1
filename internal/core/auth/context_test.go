package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromHeaders_Authenticated(t *testing.T) {
	headers := MapHeaderGetter{
		HeaderUserID:    "user_bc6849d9",
		HeaderUserEmail: "dev@acme.test",
		HeaderUserName:  "Dev User",
		HeaderKeyID:     "key_123",
	}

	ctx := ExtractFromHeaders(headers)
	assert.True(t, ctx.Authenticated)
	assert.Equal(t, "user_bc6849d9", ctx.ReferenceID)
	assert.Equal(t, "dev@acme.test", ctx.Email)
	assert.Equal(t, "Dev User", ctx.Name)
	assert.Equal(t, "key_123", ctx.KeyID)
	assert.Zero(t, ctx.UserID) // resolved later by middleware
}

func TestExtractFromHeaders_Unauthenticated(t *testing.T) {
	ctx := ExtractFromHeaders(MapHeaderGetter{})
	assert.False(t, ctx.Authenticated)
	assert.Empty(t, ctx.ReferenceID)
}

func TestExtractFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderUserID, "user_abc")

	ctx := ExtractFromRequest(r)
	assert.True(t, ctx.Authenticated)
	assert.Equal(t, "user_abc", ctx.ReferenceID)
}

func TestContextRoundTrip(t *testing.T) {
	authCtx := Context{UserID: 7, ReferenceID: "user_abc", Authenticated: true}

	ctx := WithContext(context.Background(), authCtx)
	got := FromContext(ctx)
	assert.Equal(t, authCtx, got)
}

func TestFromContext_Missing(t *testing.T) {
	got := FromContext(context.Background())
	assert.False(t, got.Authenticated)
}
