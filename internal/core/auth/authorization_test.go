package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stencilhq/stencil/internal/core/domain"
)

func TestCanViewTemplate(t *testing.T) {
	published := domain.Template{Published: true, CreatorID: 1}
	unpublished := domain.Template{Published: false, CreatorID: 1}

	anonymous := Context{Authenticated: false}
	creator := Context{Authenticated: true, UserID: 1}
	other := Context{Authenticated: true, UserID: 2}

	assert.True(t, CanViewTemplate(anonymous, published))
	assert.True(t, CanViewTemplate(other, published))
	assert.True(t, CanViewTemplate(creator, unpublished))
	assert.False(t, CanViewTemplate(other, unpublished))
	assert.False(t, CanViewTemplate(anonymous, unpublished))
}

func TestCanModifyTemplate(t *testing.T) {
	template := domain.Template{CreatorID: 1}

	assert.True(t, CanModifyTemplate(Context{Authenticated: true, UserID: 1}, template))
	assert.False(t, CanModifyTemplate(Context{Authenticated: true, UserID: 2}, template))
	assert.False(t, CanModifyTemplate(Context{Authenticated: false, UserID: 1}, template))
	assert.True(t, CanDeleteTemplate(Context{Authenticated: true, UserID: 1}, template))
	assert.True(t, CanPublishTemplate(Context{Authenticated: true, UserID: 1}, template))
}

func TestCanViewAuthorization(t *testing.T) {
	authorization := domain.AppAuthorization{CreatorID: 3}

	assert.True(t, CanViewAuthorization(Context{Authenticated: true, UserID: 3}, authorization))
	assert.False(t, CanViewAuthorization(Context{Authenticated: true, UserID: 4}, authorization))
	assert.False(t, CanDeleteAuthorization(Context{Authenticated: false, UserID: 3}, authorization))
	assert.True(t, CanDeleteAuthorization(Context{Authenticated: true, UserID: 3}, authorization))
}
