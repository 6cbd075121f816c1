package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppAuthorization_Success(t *testing.T) {
	account := json.RawMessage(`{"login":"acme","type":"Organization","id":42}`)

	auth, err := NewAppAuthorization(12345, account)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(auth.ID, "auth_"))
	assert.Equal(t, int64(12345), auth.InstallationID)
	assert.JSONEq(t, string(account), string(auth.Account))
}

func TestNewAppAuthorization_Invalid(t *testing.T) {
	account := json.RawMessage(`{"login":"acme"}`)

	_, err := NewAppAuthorization(0, account)
	assert.ErrorIs(t, err, ErrInstallationIDRequired)

	_, err = NewAppAuthorization(-1, account)
	assert.ErrorIs(t, err, ErrInstallationIDRequired)

	_, err = NewAppAuthorization(12345, nil)
	assert.ErrorIs(t, err, ErrAccountRequired)

	_, err = NewAppAuthorization(12345, json.RawMessage(`{"id":42}`))
	assert.ErrorIs(t, err, ErrAccountInvalid)
}

func TestParseAccount(t *testing.T) {
	auth := &AppAuthorization{
		Account: json.RawMessage(`{"login":"acme","type":"Organization"}`),
	}

	account, err := auth.ParseAccount()
	require.NoError(t, err)
	assert.Equal(t, "acme", account.Login)
	assert.Equal(t, "Organization", account.Type)
}

func TestParseAccount_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		account json.RawMessage
		want    error
	}{
		{name: "empty payload", account: nil, want: ErrAccountRequired},
		{name: "not json", account: json.RawMessage(`{{`), want: ErrAccountInvalid},
		{name: "missing login", account: json.RawMessage(`{"type":"User"}`), want: ErrAccountInvalid},
		{name: "empty login", account: json.RawMessage(`{"login":""}`), want: ErrAccountInvalid},
		{name: "wrong shape", account: json.RawMessage(`[1,2,3]`), want: ErrAccountInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &AppAuthorization{Account: tt.account}
			_, err := auth.ParseAccount()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
