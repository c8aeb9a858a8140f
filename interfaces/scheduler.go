package interfaces

import "context"

// Scheduler drives periodic mailbox checks across all enabled tenants.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	// TriggerTenant runs a check for a single tenant outside the schedule.
	TriggerTenant(ctx context.Context, tenant string) (int, error)
	// TriggerAll runs one sweep over every enabled tenant.
	TriggerAll(ctx context.Context) error
}
