package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stencilhq/stencil/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// User Resolution
// =============================================================================

func (s *SQLiteStore) ResolveUser(ctx context.Context, referenceID, email, name string) (int, error) {
	return resolveUser(ctx, s.db, referenceID, email, name)
}

func resolveUser(ctx context.Context, exec executor, referenceID, email, name string) (int, error) {
	if referenceID == "" {
		return 0, NewStoreError("ResolveUser", "user", "", "reference ID is required", ErrInvalidData)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO users (reference_id, email, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(reference_id) DO UPDATE SET
			email = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE users.name END,
			updated_at = excluded.updated_at`

	if _, err := exec.ExecContext(ctx, query, referenceID, email, name, now, now); err != nil {
		return 0, NewStoreError("ResolveUser", "user", referenceID, err.Error(), err)
	}

	var id int
	if err := exec.GetContext(ctx, &id, `SELECT id FROM users WHERE reference_id = ?`, referenceID); err != nil {
		return 0, NewStoreError("ResolveUser", "user", referenceID, err.Error(), err)
	}
	return id, nil
}

// =============================================================================
// Organization Operations
// =============================================================================

// organizationRow represents an organization row in the database.
type organizationRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Slug      string `db:"slug"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *SQLiteStore) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	return createOrganization(ctx, s.db, org)
}

func (s *SQLiteStore) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	return getOrganization(ctx, s.db, id)
}

func (s *SQLiteStore) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return getOrganizationBySlug(ctx, s.db, slug)
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context, opts ListOptions) ([]domain.Organization, error) {
	return listOrganizations(ctx, s.db, opts)
}

func (s *SQLiteStore) DeleteOrganization(ctx context.Context, id string) error {
	return deleteOrganization(ctx, s.db, id)
}

// =============================================================================
// Template Operations
// =============================================================================

// templateRow represents a template row in the database.
type templateRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Slug          string  `db:"slug"`
	Description   string  `db:"description"`
	RepositoryURL string  `db:"repository_url"`
	Category      string  `db:"category"`
	Tags          *string `db:"tags"`
	Published     bool    `db:"published"`
	CreatorID     int     `db:"creator_id"`
	CreatedAt     string  `db:"created_at"`
	UpdatedAt     string  `db:"updated_at"`
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, template *domain.Template) error {
	return createTemplate(ctx, s.db, template)
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return getTemplate(ctx, s.db, id)
}

func (s *SQLiteStore) GetTemplateBySlug(ctx context.Context, slug string) (*domain.Template, error) {
	return getTemplateBySlug(ctx, s.db, slug)
}

func (s *SQLiteStore) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	return updateTemplate(ctx, s.db, template)
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	return deleteTemplate(ctx, s.db, id)
}

func (s *SQLiteStore) ListTemplates(ctx context.Context, opts ListOptions) ([]domain.Template, error) {
	return listTemplates(ctx, s.db, opts)
}

// =============================================================================
// App Authorization Operations
// =============================================================================

// appAuthorizationRow represents an app authorization row in the database.
type appAuthorizationRow struct {
	ID             string `db:"id"`
	InstallationID int64  `db:"installation_id"`
	Account        string `db:"account"`
	CreatorID      int    `db:"creator_id"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (s *SQLiteStore) CreateAppAuthorization(ctx context.Context, auth *domain.AppAuthorization) error {
	return createAppAuthorization(ctx, s.db, auth)
}

func (s *SQLiteStore) GetAppAuthorization(ctx context.Context, id string) (*domain.AppAuthorization, error) {
	return getAppAuthorization(ctx, s.db, id)
}

func (s *SQLiteStore) DeleteAppAuthorization(ctx context.Context, id string) error {
	return deleteAppAuthorization(ctx, s.db, id)
}

func (s *SQLiteStore) ListAppAuthorizationsByCreator(ctx context.Context, creatorID int, opts ListOptions) ([]domain.AppAuthorization, error) {
	return listAppAuthorizationsByCreator(ctx, s.db, creatorID, opts)
}

// =============================================================================
// Organization Template Operations
// =============================================================================

// organizationTemplateRow represents an organization template row.
type organizationTemplateRow struct {
	ID                 string `db:"id"`
	Name               string `db:"name"`
	RepositoryURL      string `db:"repository_url"`
	RepositoryData     string `db:"repository_data"`
	Private            bool   `db:"private"`
	TemplateID         string `db:"template_id"`
	OrganizationSlug   string `db:"organization_slug"`
	AppAuthorizationID string `db:"app_authorization_id"`
	CreatedAt          string `db:"created_at"`
}

func (s *SQLiteStore) CreateOrganizationTemplate(ctx context.Context, ot *domain.OrganizationTemplate) error {
	return createOrganizationTemplate(ctx, s.db, ot)
}

func (s *SQLiteStore) GetOrganizationTemplate(ctx context.Context, id string) (*domain.OrganizationTemplate, error) {
	return getOrganizationTemplate(ctx, s.db, id)
}

func (s *SQLiteStore) ListOrganizationTemplatesByOrganization(ctx context.Context, organizationSlug string, opts ListOptions) ([]domain.OrganizationTemplate, error) {
	return listOrganizationTemplatesBy(ctx, s.db, "organization_slug", organizationSlug, opts)
}

func (s *SQLiteStore) ListOrganizationTemplatesByTemplate(ctx context.Context, templateID string, opts ListOptions) ([]domain.OrganizationTemplate, error) {
	return listOrganizationTemplatesBy(ctx, s.db, "template_id", templateID, opts)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) ResolveUser(ctx context.Context, referenceID, email, name string) (int, error) {
	return resolveUser(ctx, s.tx, referenceID, email, name)
}

func (s *txSQLiteStore) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	return createOrganization(ctx, s.tx, org)
}

func (s *txSQLiteStore) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	return getOrganization(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return getOrganizationBySlug(ctx, s.tx, slug)
}

func (s *txSQLiteStore) ListOrganizations(ctx context.Context, opts ListOptions) ([]domain.Organization, error) {
	return listOrganizations(ctx, s.tx, opts)
}

func (s *txSQLiteStore) DeleteOrganization(ctx context.Context, id string) error {
	return deleteOrganization(ctx, s.tx, id)
}

func (s *txSQLiteStore) CreateTemplate(ctx context.Context, template *domain.Template) error {
	return createTemplate(ctx, s.tx, template)
}

func (s *txSQLiteStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return getTemplate(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetTemplateBySlug(ctx context.Context, slug string) (*domain.Template, error) {
	return getTemplateBySlug(ctx, s.tx, slug)
}

func (s *txSQLiteStore) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	return updateTemplate(ctx, s.tx, template)
}

func (s *txSQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	return deleteTemplate(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListTemplates(ctx context.Context, opts ListOptions) ([]domain.Template, error) {
	return listTemplates(ctx, s.tx, opts)
}

func (s *txSQLiteStore) CreateAppAuthorization(ctx context.Context, auth *domain.AppAuthorization) error {
	return createAppAuthorization(ctx, s.tx, auth)
}

func (s *txSQLiteStore) GetAppAuthorization(ctx context.Context, id string) (*domain.AppAuthorization, error) {
	return getAppAuthorization(ctx, s.tx, id)
}

func (s *txSQLiteStore) DeleteAppAuthorization(ctx context.Context, id string) error {
	return deleteAppAuthorization(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListAppAuthorizationsByCreator(ctx context.Context, creatorID int, opts ListOptions) ([]domain.AppAuthorization, error) {
	return listAppAuthorizationsByCreator(ctx, s.tx, creatorID, opts)
}

func (s *txSQLiteStore) CreateOrganizationTemplate(ctx context.Context, ot *domain.OrganizationTemplate) error {
	return createOrganizationTemplate(ctx, s.tx, ot)
}

func (s *txSQLiteStore) GetOrganizationTemplate(ctx context.Context, id string) (*domain.OrganizationTemplate, error) {
	return getOrganizationTemplate(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListOrganizationTemplatesByOrganization(ctx context.Context, organizationSlug string, opts ListOptions) ([]domain.OrganizationTemplate, error) {
	return listOrganizationTemplatesBy(ctx, s.tx, "organization_slug", organizationSlug, opts)
}

func (s *txSQLiteStore) ListOrganizationTemplatesByTemplate(ctx context.Context, templateID string, opts ListOptions) ([]domain.OrganizationTemplate, error) {
	return listOrganizationTemplatesBy(ctx, s.tx, "template_id", templateID, opts)
}

func (s *txSQLiteStore) Ping(ctx context.Context) error {
	// Transaction implies a live connection
	return nil
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions - Organizations
// =============================================================================

func createOrganization(ctx context.Context, exec executor, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES (:id, :name, :slug, :created_at, :updated_at)`

	row := map[string]any{
		"id":         org.ID,
		"name":       org.Name,
		"slug":       org.Slug,
		"created_at": org.CreatedAt.Format(time.RFC3339),
		"updated_at": org.UpdatedAt.Format(time.RFC3339),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: organizations.id") {
			return NewStoreError("CreateOrganization", "organization", org.ID, "organization with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: organizations.slug") {
			return NewStoreError("CreateOrganization", "organization", org.ID, "organization with this slug already exists", ErrDuplicateSlug)
		}
		return NewStoreError("CreateOrganization", "organization", org.ID, err.Error(), err)
	}

	return nil
}

func getOrganization(ctx context.Context, exec executor, id string) (*domain.Organization, error) {
	var row organizationRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM organizations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetOrganization", "organization", id, "organization not found", ErrNotFound)
		}
		return nil, NewStoreError("GetOrganization", "organization", id, err.Error(), err)
	}
	return rowToOrganization(&row), nil
}

func getOrganizationBySlug(ctx context.Context, exec executor, slug string) (*domain.Organization, error) {
	var row organizationRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM organizations WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetOrganizationBySlug", "organization", slug, "organization not found", ErrNotFound)
		}
		return nil, NewStoreError("GetOrganizationBySlug", "organization", slug, err.Error(), err)
	}
	return rowToOrganization(&row), nil
}

func listOrganizations(ctx context.Context, exec executor, opts ListOptions) ([]domain.Organization, error) {
	opts = opts.Normalize()

	var rows []organizationRow
	err := exec.SelectContext(ctx, &rows, `SELECT * FROM organizations ORDER BY created_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListOrganizations", "organization", "", err.Error(), err)
	}

	orgs := make([]domain.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, *rowToOrganization(&row))
	}
	return orgs, nil
}

func deleteOrganization(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM organizations WHERE id = ?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("DeleteOrganization", "organization", id, "organization has linked templates", ErrForeignKey)
		}
		return NewStoreError("DeleteOrganization", "organization", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteOrganization", "organization", id, "organization not found", ErrNotFound)
	}
	return nil
}

func rowToOrganization(row *organizationRow) *domain.Organization {
	return &domain.Organization{
		ID:        row.ID,
		Name:      row.Name,
		Slug:      row.Slug,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
}

// =============================================================================
// Shared Implementation Functions - Templates
// =============================================================================

func createTemplate(ctx context.Context, exec executor, template *domain.Template) error {
	tagsJSON, err := json.Marshal(template.Tags)
	if err != nil {
		return NewStoreError("CreateTemplate", "template", template.ID, "failed to serialize tags", ErrInvalidData)
	}

	query := `
		INSERT INTO templates (
			id, name, slug, description, repository_url, category, tags,
			published, creator_id, created_at, updated_at
		) VALUES (
			:id, :name, :slug, :description, :repository_url, :category, :tags,
			:published, :creator_id, :created_at, :updated_at
		)`

	row := map[string]any{
		"id":             template.ID,
		"name":           template.Name,
		"slug":           template.Slug,
		"description":    template.Description,
		"repository_url": template.RepositoryURL,
		"category":       template.Category,
		"tags":           string(tagsJSON),
		"published":      template.Published,
		"creator_id":     template.CreatorID,
		"created_at":     template.CreatedAt.Format(time.RFC3339),
		"updated_at":     template.UpdatedAt.Format(time.RFC3339),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: templates.id") {
			return NewStoreError("CreateTemplate", "template", template.ID, "template with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: templates.slug") {
			return NewStoreError("CreateTemplate", "template", template.ID, "template with this slug already exists", ErrDuplicateSlug)
		}
		return NewStoreError("CreateTemplate", "template", template.ID, err.Error(), err)
	}

	return nil
}

func getTemplate(ctx context.Context, exec executor, id string) (*domain.Template, error) {
	var row templateRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM templates WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetTemplate", "template", id, "template not found", ErrNotFound)
		}
		return nil, NewStoreError("GetTemplate", "template", id, err.Error(), err)
	}
	return rowToTemplate(&row)
}

func getTemplateBySlug(ctx context.Context, exec executor, slug string) (*domain.Template, error) {
	var row templateRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM templates WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetTemplateBySlug", "template", slug, "template not found", ErrNotFound)
		}
		return nil, NewStoreError("GetTemplateBySlug", "template", slug, err.Error(), err)
	}
	return rowToTemplate(&row)
}

func updateTemplate(ctx context.Context, exec executor, template *domain.Template) error {
	tagsJSON, err := json.Marshal(template.Tags)
	if err != nil {
		return NewStoreError("UpdateTemplate", "template", template.ID, "failed to serialize tags", ErrInvalidData)
	}

	query := `
		UPDATE templates SET
			name = :name,
			slug = :slug,
			description = :description,
			repository_url = :repository_url,
			category = :category,
			tags = :tags,
			published = :published,
			creator_id = :creator_id,
			updated_at = :updated_at
		WHERE id = :id`

	row := map[string]any{
		"id":             template.ID,
		"name":           template.Name,
		"slug":           template.Slug,
		"description":    template.Description,
		"repository_url": template.RepositoryURL,
		"category":       template.Category,
		"tags":           string(tagsJSON),
		"published":      template.Published,
		"creator_id":     template.CreatorID,
		"updated_at":     template.UpdatedAt.Format(time.RFC3339),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateTemplate", "template", template.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateTemplate", "template", template.ID, "template not found", ErrNotFound)
	}

	return nil
}

func deleteTemplate(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("DeleteTemplate", "template", id, "template has linked organization templates", ErrForeignKey)
		}
		return NewStoreError("DeleteTemplate", "template", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteTemplate", "template", id, "template not found", ErrNotFound)
	}
	return nil
}

func listTemplates(ctx context.Context, exec executor, opts ListOptions) ([]domain.Template, error) {
	opts = opts.Normalize()

	var rows []templateRow
	err := exec.SelectContext(ctx, &rows, `SELECT * FROM templates ORDER BY created_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListTemplates", "template", "", err.Error(), err)
	}

	templates := make([]domain.Template, 0, len(rows))
	for _, row := range rows {
		template, err := rowToTemplate(&row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}
	return templates, nil
}

func rowToTemplate(row *templateRow) (*domain.Template, error) {
	var tags []string
	if row.Tags != nil && *row.Tags != "" {
		if err := json.Unmarshal([]byte(*row.Tags), &tags); err != nil {
			return nil, NewStoreError("rowToTemplate", "template", row.ID, "failed to deserialize tags", ErrInvalidData)
		}
	}

	return &domain.Template{
		ID:            row.ID,
		Name:          row.Name,
		Slug:          row.Slug,
		Description:   row.Description,
		RepositoryURL: row.RepositoryURL,
		Category:      row.Category,
		Tags:          tags,
		Published:     row.Published,
		CreatorID:     row.CreatorID,
		CreatedAt:     parseTime(row.CreatedAt),
		UpdatedAt:     parseTime(row.UpdatedAt),
	}, nil
}

// =============================================================================
// Shared Implementation Functions - App Authorizations
// =============================================================================

func createAppAuthorization(ctx context.Context, exec executor, auth *domain.AppAuthorization) error {
	query := `
		INSERT INTO app_authorizations (
			id, installation_id, account, creator_id, created_at, updated_at
		) VALUES (
			:id, :installation_id, :account, :creator_id, :created_at, :updated_at
		)`

	row := map[string]any{
		"id":              auth.ID,
		"installation_id": auth.InstallationID,
		"account":         string(auth.Account),
		"creator_id":      auth.CreatorID,
		"created_at":      auth.CreatedAt.Format(time.RFC3339),
		"updated_at":      auth.UpdatedAt.Format(time.RFC3339),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: app_authorizations.id") {
			return NewStoreError("CreateAppAuthorization", "app_authorization", auth.ID, "authorization with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateAppAuthorization", "app_authorization", auth.ID, err.Error(), err)
	}

	return nil
}

func getAppAuthorization(ctx context.Context, exec executor, id string) (*domain.AppAuthorization, error) {
	var row appAuthorizationRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM app_authorizations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetAppAuthorization", "app_authorization", id, "app authorization not found", ErrNotFound)
		}
		return nil, NewStoreError("GetAppAuthorization", "app_authorization", id, err.Error(), err)
	}
	return rowToAppAuthorization(&row), nil
}

func deleteAppAuthorization(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM app_authorizations WHERE id = ?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("DeleteAppAuthorization", "app_authorization", id, "authorization has linked organization templates", ErrForeignKey)
		}
		return NewStoreError("DeleteAppAuthorization", "app_authorization", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteAppAuthorization", "app_authorization", id, "app authorization not found", ErrNotFound)
	}
	return nil
}

func listAppAuthorizationsByCreator(ctx context.Context, exec executor, creatorID int, opts ListOptions) ([]domain.AppAuthorization, error) {
	opts = opts.Normalize()

	var rows []appAuthorizationRow
	err := exec.SelectContext(ctx, &rows,
		`SELECT * FROM app_authorizations WHERE creator_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		creatorID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListAppAuthorizationsByCreator", "app_authorization", "", err.Error(), err)
	}

	auths := make([]domain.AppAuthorization, 0, len(rows))
	for _, row := range rows {
		auths = append(auths, *rowToAppAuthorization(&row))
	}
	return auths, nil
}

func rowToAppAuthorization(row *appAuthorizationRow) *domain.AppAuthorization {
	return &domain.AppAuthorization{
		ID:             row.ID,
		InstallationID: row.InstallationID,
		Account:        json.RawMessage(row.Account),
		CreatorID:      row.CreatorID,
		CreatedAt:      parseTime(row.CreatedAt),
		UpdatedAt:      parseTime(row.UpdatedAt),
	}
}

// =============================================================================
// Shared Implementation Functions - Organization Templates
// =============================================================================

func createOrganizationTemplate(ctx context.Context, exec executor, ot *domain.OrganizationTemplate) error {
	query := `
		INSERT INTO organization_templates (
			id, name, repository_url, repository_data, private,
			template_id, organization_slug, app_authorization_id, created_at
		) VALUES (
			:id, :name, :repository_url, :repository_data, :private,
			:template_id, :organization_slug, :app_authorization_id, :created_at
		)`

	row := map[string]any{
		"id":                   ot.ID,
		"name":                 ot.Name,
		"repository_url":       ot.RepositoryURL,
		"repository_data":      string(ot.RepositoryData),
		"private":              ot.Private,
		"template_id":          ot.TemplateID,
		"organization_slug":    ot.OrganizationSlug,
		"app_authorization_id": ot.AppAuthorizationID,
		"created_at":           ot.CreatedAt.Format(time.RFC3339),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: organization_templates.id") {
			return NewStoreError("CreateOrganizationTemplate", "organization_template", ot.ID, "organization template with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreateOrganizationTemplate", "organization_template", ot.ID, "referenced template, organization, or authorization does not exist", ErrForeignKey)
		}
		return NewStoreError("CreateOrganizationTemplate", "organization_template", ot.ID, err.Error(), err)
	}

	return nil
}

func getOrganizationTemplate(ctx context.Context, exec executor, id string) (*domain.OrganizationTemplate, error) {
	var row organizationTemplateRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM organization_templates WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetOrganizationTemplate", "organization_template", id, "organization template not found", ErrNotFound)
		}
		return nil, NewStoreError("GetOrganizationTemplate", "organization_template", id, err.Error(), err)
	}
	return rowToOrganizationTemplate(&row), nil
}

func listOrganizationTemplatesBy(ctx context.Context, exec executor, column, value string, opts ListOptions) ([]domain.OrganizationTemplate, error) {
	opts = opts.Normalize()

	// column is always one of the two fixed callers' constants, never user input
	query := fmt.Sprintf(
		`SELECT * FROM organization_templates WHERE %s = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`, column)

	var rows []organizationTemplateRow
	err := exec.SelectContext(ctx, &rows, query, value, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListOrganizationTemplates", "organization_template", "", err.Error(), err)
	}

	templates := make([]domain.OrganizationTemplate, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, *rowToOrganizationTemplate(&row))
	}
	return templates, nil
}

func rowToOrganizationTemplate(row *organizationTemplateRow) *domain.OrganizationTemplate {
	return &domain.OrganizationTemplate{
		ID:                 row.ID,
		Name:               row.Name,
		RepositoryURL:      row.RepositoryURL,
		RepositoryData:     json.RawMessage(row.RepositoryData),
		Private:            row.Private,
		TemplateID:         row.TemplateID,
		OrganizationSlug:   row.OrganizationSlug,
		AppAuthorizationID: row.AppAuthorizationID,
		CreatedAt:          parseTime(row.CreatedAt),
	}
}

// =============================================================================
// Helpers
// =============================================================================

// parseTime parses an RFC3339 timestamp stored as TEXT. Zero time on parse
// failure; timestamps are always written by this package so a failure means
// corrupted data, not a caller error.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
