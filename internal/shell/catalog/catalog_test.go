package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencilhq/stencil/internal/shell/store"
)

const testCatalog = `
templates:
  - name: Base Starter
    description: Baseline service scaffold
    repository_url: https://github.com/acme/base-starter
    category: backend
    tags: [go, service]
    published: true
  - name: Frontend Starter
    repository_url: https://github.com/acme/frontend-starter
    category: frontend

organizations:
  - name: Acme Corp
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	require.Len(t, c.Templates, 2)
	assert.Equal(t, "Base Starter", c.Templates[0].Name)
	assert.Equal(t, []string{"go", "service"}, c.Templates[0].Tags)
	assert.True(t, c.Templates[0].Published)
	assert.False(t, c.Templates[1].Published)

	require.Len(t, c.Organizations, 1)
	assert.Equal(t, "Acme Corp", c.Organizations[0].Name)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "bad yaml",
			yaml: "templates: [",
		},
		{
			name: "short template name",
			yaml: "templates:\n  - name: ab\n    repository_url: https://github.com/acme/x",
		},
		{
			name: "missing repository url",
			yaml: "templates:\n  - name: Base Starter",
		},
		{
			name: "repository url without owner and repo",
			yaml: "templates:\n  - name: Base Starter\n    repository_url: https://github.com/",
		},
		{
			name: "slug collision",
			yaml: "templates:\n  - name: Base Starter\n    repository_url: https://github.com/acme/a\n  - name: base starter\n    repository_url: https://github.com/acme/b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSync(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)
	require.NoError(t, Sync(ctx, c, s, logger))

	org, err := s.GetOrganizationBySlug(ctx, "acme-corp")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", org.Name)

	base, err := s.GetTemplateBySlug(ctx, "base-starter")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/base-starter", base.RepositoryURL)
	assert.True(t, base.Published)

	// Second sync with a changed entry updates in place, keeps the ID
	c.Templates[0].Description = "updated description"
	c.Templates[0].Published = false
	require.NoError(t, Sync(ctx, c, s, logger))

	updated, err := s.GetTemplateBySlug(ctx, "base-starter")
	require.NoError(t, err)
	assert.Equal(t, base.ID, updated.ID)
	assert.Equal(t, "updated description", updated.Description)
	assert.False(t, updated.Published)

	templates, err := s.ListTemplates(ctx, store.DefaultListOptions())
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}
