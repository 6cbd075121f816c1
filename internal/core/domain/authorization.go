package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInstallationIDRequired = errors.New("installation ID is required")
	ErrAccountRequired        = errors.New("account payload is required")
	ErrAccountInvalid         = errors.New("account payload must contain a login")
)

// =============================================================================
// App Authorization
// =============================================================================

// AppAuthorization is a stored credential record granting access to act on
// behalf of a GitHub account via a GitHub App installation. The account
// payload is kept opaque, exactly as GitHub delivered it; only the login
// and type are interpreted.
type AppAuthorization struct {
	ID             string          `json:"id"`
	InstallationID int64           `json:"installation_id"`
	Account        json.RawMessage `json:"account"`
	CreatorID      int             `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Account is the interpreted shape of an authorization's account payload.
type Account struct {
	Login string `json:"login"`
	Type  string `json:"type,omitempty"`
}

// GenerateAuthorizationID generates a new app authorization reference ID.
func GenerateAuthorizationID() string {
	return "auth_" + uuid.New().String()[:8]
}

// NewAppAuthorization creates a new app authorization with validation.
// The account payload must at minimum decode to an object with a login.
func NewAppAuthorization(installationID int64, account json.RawMessage) (*AppAuthorization, error) {
	if installationID <= 0 {
		return nil, ErrInstallationIDRequired
	}
	if len(account) == 0 {
		return nil, ErrAccountRequired
	}

	auth := &AppAuthorization{
		ID:             GenerateAuthorizationID(),
		InstallationID: installationID,
		Account:        account,
	}
	if _, err := auth.ParseAccount(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	auth.CreatedAt = now
	auth.UpdatedAt = now
	return auth, nil
}

// ParseAccount validates the stored account payload against the expected
// shape and returns the interpreted account. A payload that does not decode
// to an object with a non-empty login is invalid.
func (a *AppAuthorization) ParseAccount() (*Account, error) {
	if len(a.Account) == 0 {
		return nil, ErrAccountRequired
	}
	var account Account
	if err := json.Unmarshal(a.Account, &account); err != nil {
		return nil, ErrAccountInvalid
	}
	if account.Login == "" {
		return nil, ErrAccountInvalid
	}
	return &account, nil
}
