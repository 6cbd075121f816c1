package auth

import (
	"github.com/stencilhq/stencil/internal/core/domain"
)

// =============================================================================
// Template Authorization
// =============================================================================

// CanViewTemplate checks if the user can view a template.
// Published templates are visible to everyone.
// Unpublished templates are only visible to their creator.
func CanViewTemplate(ctx Context, template domain.Template) bool {
	if template.Published {
		return true
	}
	return ctx.Authenticated && ctx.UserID == template.CreatorID
}

// CanModifyTemplate checks if the user can modify a template.
// Only the creator can modify their templates.
func CanModifyTemplate(ctx Context, template domain.Template) bool {
	return ctx.Authenticated && ctx.UserID == template.CreatorID
}

// CanDeleteTemplate checks if the user can delete a template.
// Only the creator can delete their templates.
func CanDeleteTemplate(ctx Context, template domain.Template) bool {
	return ctx.Authenticated && ctx.UserID == template.CreatorID
}

// CanPublishTemplate checks if the user can publish a template.
// Only the creator can publish their templates.
func CanPublishTemplate(ctx Context, template domain.Template) bool {
	return ctx.Authenticated && ctx.UserID == template.CreatorID
}

// =============================================================================
// App Authorization Records
// =============================================================================

// CanViewAuthorization checks if the user can view an app authorization.
// Authorizations are only visible to the user who registered them.
func CanViewAuthorization(ctx Context, authorization domain.AppAuthorization) bool {
	return ctx.Authenticated && ctx.UserID == authorization.CreatorID
}

// CanDeleteAuthorization checks if the user can delete an app authorization.
// Only the user who registered an authorization can remove it.
func CanDeleteAuthorization(ctx Context, authorization domain.AppAuthorization) bool {
	return ctx.Authenticated && ctx.UserID == authorization.CreatorID
}
