// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Name validation errors
	ErrNameRequired = errors.New("name is required")
	ErrNameTooShort = errors.New("name must be at least 3 characters")
	ErrNameTooLong  = errors.New("name must be at most 100 characters")

	// Repository URL validation errors
	ErrRepositoryURLRequired = errors.New("repository URL is required")
	ErrRepositoryURLInvalid  = errors.New("repository URL must contain an owner and a repository name")
)

// =============================================================================
// Template
// =============================================================================

// Template is a stored reference to a source repository usable as a scaffold.
// The repository it points at must be a GitHub template repository; new
// repositories are instantiated from it per organization.
type Template struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	RepositoryURL string    `json:"repository_url"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Published     bool      `json:"published"`
	CreatorID     int       `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GenerateTemplateID generates a new template reference ID.
func GenerateTemplateID() string {
	return "tmpl_" + uuid.New().String()[:8]
}

// NewTemplate creates a new template with the given name and source
// repository URL. Returns an error if validation fails.
func NewTemplate(name, repositoryURL string) (*Template, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateRepositoryURL(repositoryURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Template{
		ID:            GenerateTemplateID(),
		Name:          name,
		Slug:          Slugify(name),
		RepositoryURL: repositoryURL,
		Published:     false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Publish marks the template as published.
func (t *Template) Publish() {
	t.Published = true
	t.UpdatedAt = time.Now().UTC()
}

// Unpublish marks the template as unpublished.
func (t *Template) Unpublish() {
	t.Published = false
	t.UpdatedAt = time.Now().UTC()
}

// =============================================================================
// Validation Functions (Pure)
// =============================================================================

// ValidateName validates an entity name. Names are free-form but bounded:
// 3 to 100 characters.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) < 3 {
		return ErrNameTooShort
	}
	if utf8.RuneCountInString(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

// ValidateRepositoryURL checks that a repository URL parses and carries an
// owner and repository name in its path.
func ValidateRepositoryURL(rawURL string) error {
	if rawURL == "" {
		return ErrRepositoryURLRequired
	}
	if _, _, err := ParseRepositoryURL(rawURL); err != nil {
		return err
	}
	return nil
}

// ParseRepositoryURL extracts the owner and repository name from a
// repository URL. The owner and name are the first two path segments, so
// "https://github.com/acme/base-starter" yields ("acme", "base-starter").
// Trailing path segments (e.g. "/tree/main") are ignored.
func ParseRepositoryURL(rawURL string) (owner, repo string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", ErrRepositoryURLInvalid
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", ErrRepositoryURLInvalid
	}

	repo = strings.TrimSuffix(segments[1], ".git")
	return segments[0], repo, nil
}
