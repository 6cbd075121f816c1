// Package catalog loads a declarative template catalog from a YAML file and
// synchronizes it into the store. The catalog is the operator-managed seed of
// templates and organizations a Stencil deployment offers.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Catalog Format
// =============================================================================

// Catalog is the parsed catalog file.
type Catalog struct {
	Templates     []TemplateEntry     `yaml:"templates"`
	Organizations []OrganizationEntry `yaml:"organizations"`
}

// TemplateEntry describes one template in the catalog.
type TemplateEntry struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	RepositoryURL string   `yaml:"repository_url"`
	Category      string   `yaml:"category"`
	Tags          []string `yaml:"tags"`
	Published     bool     `yaml:"published"`
}

// OrganizationEntry describes one organization in the catalog.
type OrganizationEntry struct {
	Name string `yaml:"name"`
}

// =============================================================================
// Loading
// =============================================================================

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every catalog entry against the domain rules.
func (c *Catalog) Validate() error {
	seen := map[string]string{}

	for i, entry := range c.Templates {
		if err := domain.ValidateName(entry.Name); err != nil {
			return fmt.Errorf("template %d (%q): %w", i, entry.Name, err)
		}
		if err := domain.ValidateRepositoryURL(entry.RepositoryURL); err != nil {
			return fmt.Errorf("template %d (%q): %w", i, entry.Name, err)
		}
		slug := domain.Slugify(entry.Name)
		if prev, dup := seen[slug]; dup {
			return fmt.Errorf("template %q: slug %q collides with template %q", entry.Name, slug, prev)
		}
		seen[slug] = entry.Name
	}

	seen = map[string]string{}
	for i, entry := range c.Organizations {
		if err := domain.ValidateName(entry.Name); err != nil {
			return fmt.Errorf("organization %d (%q): %w", i, entry.Name, err)
		}
		slug := domain.Slugify(entry.Name)
		if prev, dup := seen[slug]; dup {
			return fmt.Errorf("organization %q: slug %q collides with organization %q", entry.Name, slug, prev)
		}
		seen[slug] = entry.Name
	}

	return nil
}

// =============================================================================
// Synchronization
// =============================================================================

// Sync reconciles the catalog into the store. Entries are matched by slug:
// existing templates are updated in place, missing ones are created. Entries
// removed from the catalog are left untouched; Sync never deletes.
func Sync(ctx context.Context, c *Catalog, s store.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for _, entry := range c.Organizations {
		slug := domain.Slugify(entry.Name)
		_, err := s.GetOrganizationBySlug(ctx, slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		org, err := domain.NewOrganization(entry.Name)
		if err != nil {
			return err
		}
		if err := s.CreateOrganization(ctx, org); err != nil {
			return err
		}
		logger.Info("catalog organization created", "slug", org.Slug)
	}

	for _, entry := range c.Templates {
		slug := domain.Slugify(entry.Name)
		existing, err := s.GetTemplateBySlug(ctx, slug)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			template, err := domain.NewTemplate(entry.Name, entry.RepositoryURL)
			if err != nil {
				return err
			}
			applyEntry(template, entry)
			if err := s.CreateTemplate(ctx, template); err != nil {
				return err
			}
			logger.Info("catalog template created", "slug", template.Slug)
			continue
		}

		applyEntry(existing, entry)
		if err := s.UpdateTemplate(ctx, existing); err != nil {
			return err
		}
		logger.Debug("catalog template updated", "slug", existing.Slug)
	}

	return nil
}

func applyEntry(template *domain.Template, entry TemplateEntry) {
	template.Description = entry.Description
	template.RepositoryURL = entry.RepositoryURL
	template.Category = entry.Category
	template.Tags = entry.Tags
	template.Published = entry.Published
}
