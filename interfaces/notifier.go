package interfaces

import (
	"context"

	"github.com/openstay/reservstack/internal/models"
)

// ContactOverride replaces the contact details extracted from the email
// when the caller already knows better ones.
type ContactOverride struct {
	GuestEmail string
	GuestPhone string
}

type InvitationSender interface {
	SendInvitation(ctx context.Context, reservation *models.Reservation, override *ContactOverride) error
	Close() error
}
