package interfaces

import (
	"context"
	"time"

	"github.com/openstay/reservstack/internal/models"
)

// MailboxClient is a short-lived IMAP session scoped to a single check run.
// Connect must succeed before any other call; Disconnect is safe to call
// regardless of connection state.
type MailboxClient interface {
	Connect(ctx context.Context) error
	FetchMessages(ctx context.Context) ([]*MailMessage, error)
	MarkAsRead(ctx context.Context, messageID string) error
	MoveToFolder(ctx context.Context, messageID string, folder string) error
	Disconnect() error
}

// MailboxClientFactory builds a client for a tenant's mailbox settings.
// Each check run gets a fresh client.
type MailboxClientFactory interface {
	NewClient(settings *models.TenantMailSettings) MailboxClient
}

type MailMessage struct {
	MessageID string
	From      string
	Subject   string
	Text      string
	HTML      string
	Date      time.Time
}
