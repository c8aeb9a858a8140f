package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrTenantMissing = errors.New("tenant is missing")

	// mailbox errors
	ErrNotConnected            = errors.New("mailbox session not open")
	ErrIncompleteMailboxConfig = errors.New("mailbox configuration incomplete")

	// notifier errors
	ErrInvitationNotConfirmed = errors.New("invitation publish not confirmed")
)
