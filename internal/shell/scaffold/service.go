// Package scaffold implements repository instantiation: turning a stored
// template into a concrete repository in an organization's GitHub account
// and recording the result.
package scaffold

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/core/validation"
	"github.com/stencilhq/stencil/internal/shell/github"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrAuthorizationNotFound is returned when the referenced app
	// authorization does not exist or is not visible to the caller.
	ErrAuthorizationNotFound = errors.New("App authorization not found")

	// ErrTemplateNotFound is returned when the referenced template does not
	// exist.
	ErrTemplateNotFound = errors.New("Template not found")

	// ErrAppNotConfigured is returned when the service has no usable GitHub
	// credentials.
	ErrAppNotConfigured = errors.New("GitHub App not configured")

	// ErrAccountNotFound is returned when the stored authorization's account
	// payload cannot be interpreted.
	ErrAccountNotFound = errors.New("Account not found")

	// ErrTemplateURLInvalid is returned when the stored template's repository
	// URL does not carry an owner and repository name.
	ErrTemplateURLInvalid = errors.New("Template repository URL is invalid")

	// ErrCreateRepositoryFailed is returned when the GitHub API call fails.
	ErrCreateRepositoryFailed = errors.New("Failed to create repository")
)

// ValidationError carries the schema violations of a rejected payload. Its
// message is a single human-readable line listing every violation.
type ValidationError struct {
	Violations []validation.Violation
}

func (e *ValidationError) Error() string {
	return validation.RenderViolations(e.Violations)
}

// =============================================================================
// Service
// =============================================================================

// GitHubClient is the subset of GitHub operations the scaffold service needs.
type GitHubClient interface {
	Configured() bool
	CreateRepositoryFromTemplate(ctx context.Context, installationID int64, req github.CreateFromTemplateRequest) (*github.Repository, error)
}

// Service instantiates repositories from templates.
type Service struct {
	store  store.Store
	github GitHubClient
	logger *slog.Logger
}

// NewService creates a scaffold service.
func NewService(s store.Store, gh GitHubClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		github: gh,
		logger: logger,
	}
}

// Create instantiates a repository from a template for the given organization
// and records the result. The payload is the untyped form-style body
// {name, template_id, private?, app_authorization_id}.
//
// Nothing is persisted unless the GitHub repository was actually created; the
// record write is the last step.
func (s *Service) Create(ctx context.Context, userID int, organizationSlug string, payload any) (*domain.OrganizationTemplate, error) {
	input, violations := validation.ParseCreateOrganizationTemplate(payload)
	if violations != nil {
		return nil, &ValidationError{Violations: violations}
	}

	auth, err := s.store.GetAppAuthorization(ctx, input.AppAuthorizationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuthorizationNotFound
		}
		return nil, err
	}
	// Authorizations are private to their creator; a foreign authorization
	// is indistinguishable from a missing one.
	if auth.CreatorID != userID {
		return nil, ErrAuthorizationNotFound
	}

	template, err := s.store.GetTemplate(ctx, input.TemplateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	if !s.github.Configured() {
		return nil, ErrAppNotConfigured
	}

	account, err := auth.ParseAccount()
	if err != nil {
		return nil, ErrAccountNotFound
	}

	templateOwner, templateRepo, err := domain.ParseRepositoryURL(template.RepositoryURL)
	if err != nil {
		return nil, ErrTemplateURLInvalid
	}

	repo, err := s.github.CreateRepositoryFromTemplate(ctx, auth.InstallationID, github.CreateFromTemplateRequest{
		TemplateOwner: templateOwner,
		TemplateRepo:  templateRepo,
		Owner:         account.Login,
		Name:          input.Name,
		Private:       input.Private,
	})
	if err != nil || repo == nil {
		s.logger.Error("repository creation failed",
			"organization", organizationSlug,
			"template", template.ID,
			"name", input.Name,
			"error", err)
		return nil, ErrCreateRepositoryFailed
	}

	ot, err := domain.NewOrganizationTemplate(
		input.Name,
		repo.HTMLURL,
		repo.Raw,
		input.Private,
		template.ID,
		organizationSlug,
		auth.ID,
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateOrganizationTemplate(ctx, ot); err != nil {
		return nil, err
	}

	s.logger.Info("repository created from template",
		"organization", organizationSlug,
		"template", template.Slug,
		"repository", repo.FullName,
		"private", input.Private)

	return ot, nil
}

// Get returns a single organization template record.
func (s *Service) Get(ctx context.Context, id string) (*domain.OrganizationTemplate, error) {
	return s.store.GetOrganizationTemplate(ctx, id)
}

// ListByOrganization returns the organization template records for an
// organization.
func (s *Service) ListByOrganization(ctx context.Context, organizationSlug string, opts store.ListOptions) ([]domain.OrganizationTemplate, error) {
	return s.store.ListOrganizationTemplatesByOrganization(ctx, organizationSlug, opts)
}
