package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	settings := &TenantMailSettings{
		Enabled:      true,
		ImapHost:     "imap.example.com",
		ImapUsername: "user",
		ImapPassword: "pass",
	}
	assert.NoError(t, settings.Validate())

	settings.ImapHost = ""
	assert.Error(t, settings.Validate())

	// Disabled settings pass even when incomplete
	settings.Enabled = false
	assert.NoError(t, settings.Validate())
}

func TestEffectivePort(t *testing.T) {
	assert.Equal(t, 2143, (&TenantMailSettings{ImapPort: 2143}).EffectivePort())
	assert.Equal(t, 993, (&TenantMailSettings{ImapTLS: true}).EffectivePort())
	assert.Equal(t, 143, (&TenantMailSettings{}).EffectivePort())
}

func TestEffectiveFolder(t *testing.T) {
	assert.Equal(t, "INBOX", (&TenantMailSettings{}).EffectiveFolder())
	assert.Equal(t, "Reservas", (&TenantMailSettings{Folder: "Reservas"}).EffectiveFolder())
}
