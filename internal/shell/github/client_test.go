package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{
			name: "token mode with token",
			cfg:  Config{AuthMode: AuthModeToken, Token: "ghp_test"},
			want: true,
		},
		{
			name: "token mode without token",
			cfg:  Config{AuthMode: AuthModeToken},
			want: false,
		},
		{
			name: "app mode without key",
			cfg:  Config{AuthMode: AuthModeApp, AppID: 42},
			want: false,
		},
		{
			name: "unknown mode",
			cfg:  Config{AuthMode: "pat", Token: "ghp_test"},
			want: false,
		},
		{
			name: "empty config",
			cfg:  Config{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := NewApp(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, app.Configured())
		})
	}
}

func TestCreateRepositoryFromTemplate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"name": "my-service",
			"full_name": "acme/my-service",
			"html_url": "https://github.com/acme/my-service",
			"private": true
		}`))
	}))
	defer server.Close()

	app, err := NewApp(Config{AuthMode: AuthModeToken, Token: "ghp_test"}, WithBaseURL(server.URL))
	require.NoError(t, err)

	repo, err := app.CreateRepositoryFromTemplate(context.Background(), 0, CreateFromTemplateRequest{
		TemplateOwner: "acme",
		TemplateRepo:  "base-starter",
		Owner:         "acme",
		Name:          "my-service",
		Private:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/repos/acme/base-starter/generate", gotPath)
	assert.Equal(t, "Bearer ghp_test", gotAuth)
	assert.Equal(t, "my-service", gotBody["name"])
	assert.Equal(t, "acme", gotBody["owner"])
	assert.Equal(t, true, gotBody["private"])

	assert.Equal(t, "my-service", repo.Name)
	assert.Equal(t, "acme/my-service", repo.FullName)
	assert.Equal(t, "https://github.com/acme/my-service", repo.HTMLURL)
	assert.True(t, repo.Private)
	// Repository fields marshal with omitempty, so the raw payload carries
	// exactly what the API returned
	assert.JSONEq(t, `{
		"name": "my-service",
		"full_name": "acme/my-service",
		"html_url": "https://github.com/acme/my-service",
		"private": true
	}`, string(repo.Raw))
}

func TestCreateRepositoryFromTemplate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "name already exists on this account"}`))
	}))
	defer server.Close()

	app, err := NewApp(Config{AuthMode: AuthModeToken, Token: "ghp_test"}, WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = app.CreateRepositoryFromTemplate(context.Background(), 0, CreateFromTemplateRequest{
		TemplateOwner: "acme",
		TemplateRepo:  "base-starter",
		Owner:         "acme",
		Name:          "my-service",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create repository acme/my-service")
}

func TestCreateRepositoryFromTemplate_NotConfigured(t *testing.T) {
	app, err := NewApp(Config{AuthMode: AuthModeApp})
	require.NoError(t, err)

	_, err = app.CreateRepositoryFromTemplate(context.Background(), 42, CreateFromTemplateRequest{
		TemplateOwner: "acme",
		TemplateRepo:  "base-starter",
		Owner:         "acme",
		Name:          "my-service",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
