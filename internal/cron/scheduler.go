package cron

import (
	"context"
	"fmt"
	"sync"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/openstay/reservstack/config"
	"github.com/openstay/reservstack/interfaces"
	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/repository"
	"github.com/openstay/reservstack/internal/tracing"
)

// PollingScheduler drives the recurring mailbox sweep. There is exactly one
// instance per process; tenants are checked sequentially within a sweep so a
// shared mail server never sees a burst of simultaneous sessions.
type PollingScheduler struct {
	cfg          *config.IngestionConfig
	log          logger.Logger
	ingestion    interfaces.IngestionService
	settingsRepo repository.TenantMailSettingsRepository

	mu      sync.Mutex
	cron    *cronv3.Cron
	running bool
}

func NewPollingScheduler(
	cfg *config.IngestionConfig,
	log logger.Logger,
	ingestion interfaces.IngestionService,
	settingsRepo repository.TenantMailSettingsRepository,
) *PollingScheduler {
	return &PollingScheduler{
		cfg:          cfg,
		log:          log,
		ingestion:    ingestion,
		settingsRepo: settingsRepo,
	}
}

// Start arms the recurring sweep and kicks off an immediate first pass.
// Calling Start while running is a no-op.
func (s *PollingScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Info("Polling scheduler already running")
		return nil
	}

	schedule := fmt.Sprintf("@every %dm", s.cfg.PollIntervalMinutes)

	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)

	_, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.sweep(context.Background())
	})
	if err != nil {
		return err
	}

	c.Start()
	s.cron = c
	s.running = true
	s.log.Infof("Polling scheduler started, sweeping every %d minute(s)", s.cfg.PollIntervalMinutes)

	go func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.sweep(ctx)
	}()

	return nil
}

// Stop cancels the timer and waits for an in-flight sweep to finish. Calling
// Stop while stopped is a no-op.
func (s *PollingScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.log.Info("Stopping polling scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron = nil
	s.running = false

	return nil
}

func (s *PollingScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerTenant runs a single-tenant check outside the schedule. Unlike the
// scheduled path, errors propagate to the caller; manual checks are expected
// to surface failures.
func (s *PollingScheduler) TriggerTenant(ctx context.Context, tenant string) (int, error) {
	return s.ingestion.CheckTenant(ctx, tenant)
}

// TriggerAll runs the same sweep a timer tick would.
func (s *PollingScheduler) TriggerAll(ctx context.Context) error {
	s.sweep(ctx)
	return nil
}

// sweep checks every enabled tenant in turn. One tenant's failure is logged
// and never blocks the remaining tenants in the same pass.
func (s *PollingScheduler) sweep(ctx context.Context) {
	span, ctx := tracing.StartTracerSpan(ctx, "PollingScheduler.sweep")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	allSettings, err := s.settingsRepo.GetAll(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Could not load tenant mail settings: %v", err)
		return
	}

	for _, settings := range allSettings {
		if !settings.Enabled {
			continue
		}

		created, err := s.ingestion.CheckTenant(ctx, settings.Tenant)
		if err != nil {
			s.log.Errorf("[%s] Scheduled check failed: %v", settings.Tenant, err)
			continue
		}

		if created > 0 {
			s.log.Infof("[%s] Scheduled check created %d reservation(s)", settings.Tenant, created)
		}
	}
}
