package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/shell/github"
	"github.com/stencilhq/stencil/internal/shell/scaffold"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Test Setup
// =============================================================================

// fakeGitHub is a canned GitHub client for handler tests.
type fakeGitHub struct {
	configured bool
	repo       *github.Repository
	err        error
}

func (f *fakeGitHub) Configured() bool { return f.configured }

func (f *fakeGitHub) CreateRepositoryFromTemplate(ctx context.Context, installationID int64, req github.CreateFromTemplateRequest) (*github.Repository, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.repo, nil
}

type testAPI struct {
	handler  http.Handler
	store    *store.SQLiteStore
	github   *fakeGitHub
	org      *domain.Organization
	template *domain.Template
	auth     *domain.AppAuthorization
}

// setupTestAPI builds a full handler over an in-memory store seeded with one
// organization, one published template, and one authorization owned by the
// test user.
func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	userID, err := s.ResolveUser(ctx, "user_test", "dev@example.com", "Dev")
	require.NoError(t, err)

	org, err := domain.NewOrganization("Acme Corp")
	require.NoError(t, err)
	require.NoError(t, s.CreateOrganization(ctx, org))

	template, err := domain.NewTemplate("Base Starter", "https://github.com/acme/base-starter")
	require.NoError(t, err)
	template.Publish()
	require.NoError(t, s.CreateTemplate(ctx, template))

	authz, err := domain.NewAppAuthorization(12345, json.RawMessage(`{"login":"acme","type":"Organization"}`))
	require.NoError(t, err)
	authz.CreatorID = userID
	require.NoError(t, s.CreateAppAuthorization(ctx, authz))

	gh := &fakeGitHub{
		configured: true,
		repo: &github.Repository{
			Name:     "my-service",
			FullName: "acme/my-service",
			HTMLURL:  "https://github.com/acme/my-service",
			Private:  true,
			Raw:      json.RawMessage(`{"name":"my-service"}`),
		},
	}

	handler := SetupAPI(APIConfig{
		Store:    s,
		Scaffold: scaffold.NewService(s, gh, logger),
		Logger:   logger,
	})

	return &testAPI{
		handler:  handler,
		store:    s,
		github:   gh,
		org:      org,
		template: template,
		auth:     authz,
	}
}

// doScaffold posts a scaffold request as the test user and returns the
// recorder.
func (a *testAPI) doScaffold(t *testing.T, slug string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/organizations/"+slug+"/templates", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user_test")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) scaffoldPayload() map[string]any {
	return map[string]any{
		"name":                 "my-service",
		"template_id":          a.template.ID,
		"private":              "on",
		"app_authorization_id": a.auth.ID,
	}
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	a := setupTestAPI(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestReadyEndpoint(t *testing.T) {
	a := setupTestAPI(t)

	req := httptest.NewRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestOpenAPIEndpoint(t *testing.T) {
	a := setupTestAPI(t)

	req := httptest.NewRequest("GET", "/openapi.json", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var spec map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, "3.0.3", spec["openapi"])

	paths, ok := spec["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/templates")
	assert.Contains(t, paths, "/organizations/{slug}/templates")
}

// =============================================================================
// Scaffold Endpoint Tests
// =============================================================================

func TestScaffoldCreate(t *testing.T) {
	a := setupTestAPI(t)

	rec := a.doScaffold(t, a.org.Slug, a.scaffoldPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Name          string `json:"name"`
			RepositoryURL string `json:"repository_url"`
			Private       bool   `json:"private"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "my-service", resp.Data.Name)
	assert.Equal(t, "https://github.com/acme/my-service", resp.Data.RepositoryURL)
	assert.True(t, resp.Data.Private)

	// Record is persisted and listable
	listReq := httptest.NewRequest("GET", "/api/v1/organizations/"+a.org.Slug+"/templates", nil)
	listReq.Header.Set("X-User-ID", "user_test")
	listRec := httptest.NewRecorder()
	a.handler.ServeHTTP(listRec, listReq)
	assert.Equal(t, http.StatusOK, listRec.Code)
	assert.Contains(t, listRec.Body.String(), "my-service")
}

func TestScaffoldCreate_Unauthenticated(t *testing.T) {
	a := setupTestAPI(t)

	payload, _ := json.Marshal(a.scaffoldPayload())
	req := httptest.NewRequest("POST", "/api/v1/organizations/"+a.org.Slug+"/templates", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScaffoldCreate_InvalidPayload(t *testing.T) {
	a := setupTestAPI(t)

	payload := a.scaffoldPayload()
	payload["name"] = "ab"
	delete(payload, "template_id")

	rec := a.doScaffold(t, a.org.Slug, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name must be at least 3 characters")
	assert.Contains(t, rec.Body.String(), "template_id is required")
}

func TestScaffoldCreate_NotFoundErrors(t *testing.T) {
	a := setupTestAPI(t)

	t.Run("unknown authorization", func(t *testing.T) {
		payload := a.scaffoldPayload()
		payload["app_authorization_id"] = "auth_missing"
		rec := a.doScaffold(t, a.org.Slug, payload)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "App authorization not found")
	})

	t.Run("unknown template", func(t *testing.T) {
		payload := a.scaffoldPayload()
		payload["template_id"] = "tmpl_missing"
		rec := a.doScaffold(t, a.org.Slug, payload)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Template not found")
	})

	t.Run("unknown organization", func(t *testing.T) {
		rec := a.doScaffold(t, "no-such-org", a.scaffoldPayload())
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Organization not found")
	})
}

func TestScaffoldCreate_AppNotConfigured(t *testing.T) {
	a := setupTestAPI(t)
	a.github.configured = false

	rec := a.doScaffold(t, a.org.Slug, a.scaffoldPayload())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "GitHub App not configured")
}

func TestScaffoldCreate_GitHubFailure(t *testing.T) {
	a := setupTestAPI(t)
	a.github.err = assert.AnError

	rec := a.doScaffold(t, a.org.Slug, a.scaffoldPayload())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to create repository")
}

// =============================================================================
// JSON:API Resource Tests
// =============================================================================

func TestListTemplatesEndpoint(t *testing.T) {
	a := setupTestAPI(t)

	req := httptest.NewRequest("GET", "/api/v1/templates", nil)
	req.Header.Set("Accept", "application/vnd.api+json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "base-starter")
}

func TestPublishTemplateEndpoint(t *testing.T) {
	a := setupTestAPI(t)
	ctx := context.Background()

	// Create an unpublished template owned by the test user
	userID, err := a.store.ResolveUser(ctx, "user_test", "", "")
	require.NoError(t, err)
	draft, err := domain.NewTemplate("Draft Starter", "https://github.com/acme/draft-starter")
	require.NoError(t, err)
	draft.CreatorID = userID
	require.NoError(t, a.store.CreateTemplate(ctx, draft))

	req := httptest.NewRequest("POST", "/api/v1/templates/"+draft.ID+"/publish", nil)
	req.Header.Set("X-User-ID", "user_test")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := a.store.GetTemplate(ctx, draft.ID)
	require.NoError(t, err)
	assert.True(t, updated.Published)

	// Publishing again conflicts
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v1/templates/"+draft.ID+"/publish", nil)
	req.Header.Set("X-User-ID", "user_test")
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
