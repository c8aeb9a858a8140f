package interfaces

import "context"

// IngestionService runs a full mailbox check for one tenant: fetch recent
// messages, parse them into reservations, store the new ones and send guest
// invitations where the branch allows it.
type IngestionService interface {
	// CheckTenant returns the number of reservations created during the run.
	CheckTenant(ctx context.Context, tenant string) (int, error)
}
