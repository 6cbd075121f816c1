package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization_Success(t *testing.T) {
	org, err := NewOrganization("Acme Corp")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(org.ID, "org_"))
	assert.Equal(t, "Acme Corp", org.Name)
	assert.Equal(t, "acme-corp", org.Slug)
}

func TestNewOrganization_InvalidName(t *testing.T) {
	_, err := NewOrganization("")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = NewOrganization("ab")
	assert.ErrorIs(t, err, ErrNameTooShort)
}

func TestNewOrganization_NameWithoutSluggableChars(t *testing.T) {
	_, err := NewOrganization("!!!")
	assert.ErrorIs(t, err, ErrSlugRequired)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-corp", Slugify("Acme Corp"))
	assert.Equal(t, "base-starter-2", Slugify("Base Starter 2"))
	assert.Equal(t, "my-app-20", Slugify("My App 2.0!"))
	assert.Equal(t, "", Slugify("!!!"))
}
