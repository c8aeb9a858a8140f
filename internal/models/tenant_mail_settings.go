package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/openstay/reservstack/internal/errors"
)

// TenantMailSettings holds a tenant's reservation-inbox configuration.
// It is read fresh at the start of every check cycle so credential
// rotation takes effect without a restart.
type TenantMailSettings struct {
	ID        string    `gorm:"primary_key;type:uuid;default:gen_random_uuid()" json:"id"`
	Tenant    string    `gorm:"column:tenant;type:varchar(255);uniqueIndex;NOT NULL" json:"tenant"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`

	Enabled bool `gorm:"column:enabled;type:boolean" json:"enabled"`

	ImapHost     string `gorm:"column:imap_host;type:varchar(255)" json:"imapHost"`
	ImapPort     int    `gorm:"column:imap_port;type:integer" json:"imapPort"`
	ImapTLS      bool   `gorm:"column:imap_tls;type:boolean" json:"imapTLS"`
	ImapUsername string `gorm:"column:imap_username;type:varchar(255)" json:"imapUsername"`
	ImapPassword string `gorm:"column:imap_password;type:varchar(255)" json:"imapPassword"`

	Folder          string `gorm:"column:folder;type:varchar(255)" json:"folder"`
	ProcessedFolder string `gorm:"column:processed_folder;type:varchar(255)" json:"processedFolder"`

	FromFilters    pq.StringArray `gorm:"column:from_filters;type:text[]" json:"fromFilters"`
	SubjectFilters pq.StringArray `gorm:"column:subject_filters;type:text[]" json:"subjectFilters"`
}

func (TenantMailSettings) TableName() string {
	return "tenant_mail_settings"
}

// Validate rejects enabled settings with missing required credentials.
// Disabled settings are always valid.
func (s *TenantMailSettings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.ImapHost == "" || s.ImapUsername == "" || s.ImapPassword == "" {
		return errors.ErrIncompleteMailboxConfig
	}
	return nil
}

// EffectivePort falls back to the standard IMAP ports when unset.
func (s *TenantMailSettings) EffectivePort() int {
	if s.ImapPort != 0 {
		return s.ImapPort
	}
	if s.ImapTLS {
		return 993
	}
	return 143
}

// EffectiveFolder defaults to INBOX.
func (s *TenantMailSettings) EffectiveFolder() string {
	if s.Folder != "" {
		return s.Folder
	}
	return "INBOX"
}
