package ingestion

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/openstay/reservstack/interfaces"
	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/repository"
	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/internal/utils"
	"github.com/openstay/reservstack/services/parser"
)

type ingestionService struct {
	log           logger.Logger
	repositories  *repository.Repositories
	clientFactory interfaces.MailboxClientFactory
	notifier      interfaces.InvitationSender
	parser        *parser.ReservationEmailParser
}

func NewIngestionService(
	log logger.Logger,
	repositories *repository.Repositories,
	clientFactory interfaces.MailboxClientFactory,
	notifier interfaces.InvitationSender,
	emailParser *parser.ReservationEmailParser,
) interfaces.IngestionService {
	return &ingestionService{
		log:           log,
		repositories:  repositories,
		clientFactory: clientFactory,
		notifier:      notifier,
		parser:        emailParser,
	}
}

// CheckTenant runs one full check cycle for a tenant. A missing, disabled or
// incomplete mailbox configuration is a normal outcome and yields 0 without
// error; connection and search failures propagate to the caller. Individual
// message failures are logged and skipped so one broken email cannot stall
// the batch.
func (s *ingestionService) CheckTenant(ctx context.Context, tenant string) (int, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "IngestionService.CheckTenant")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenant)

	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{Tenant: tenant})

	settings, err := s.repositories.TenantMailSettingsRepository.GetByTenant(ctx, tenant)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	if settings == nil || !settings.Enabled {
		s.log.Infof("[%s] Email ingestion not enabled, skipping", tenant)
		return 0, nil
	}
	if err := settings.Validate(); err != nil {
		s.log.Warnf("[%s] Mailbox configuration incomplete, skipping: %v", tenant, err)
		return 0, nil
	}

	client := s.clientFactory.NewClient(settings)
	if err := client.Connect(ctx); err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	defer client.Disconnect()

	messages, err := client.FetchMessages(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	span.LogFields(tracingLog.Int("messages.fetched", len(messages)))
	if len(messages) == 0 {
		s.log.Infof("[%s] No recent messages found", tenant)
		return 0, nil
	}

	created := 0
	for _, message := range messages {
		reservation, err := s.processMessage(ctx, tenant, message)
		if err != nil {
			s.log.Errorf("[%s] Failed to process message %s: %v", tenant, message.MessageID, err)
			continue
		}
		if reservation != nil {
			created++
		}
	}

	s.log.Infof("[%s] Check cycle done: %d of %d message(s) turned into reservations", tenant, created, len(messages))
	span.LogFields(tracingLog.Int("reservations.created", created))

	return created, nil
}

// processMessage parses one email and persists it. Returns nil without error
// for messages that are not reservations or that were already ingested; the
// message is deliberately left untouched in the mailbox either way, since
// duplicate detection rests on the booking code, not on mailbox state.
func (s *ingestionService) processMessage(ctx context.Context, tenant string, message *interfaces.MailMessage) (*models.Reservation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IngestionService.processMessage")
	defer span.Finish()
	span.SetTag("message.id", message.MessageID)

	text := message.Text
	if text == "" {
		text = message.HTML
	}

	parsed := s.parser.Parse(text, message.HTML)
	if parsed == nil {
		s.log.Debugf("[%s] Message %s is not a reservation email", tenant, message.MessageID)
		return nil, nil
	}

	existing, err := s.repositories.ReservationRepository.GetByBookingCode(ctx, parsed.ReservationCode)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if existing != nil {
		s.log.Infof("[%s] Reservation %s already exists (%s), skipping", tenant, parsed.ReservationCode, existing.ID)
		return nil, nil
	}

	branch, err := s.repositories.BranchRepository.GetDefaultBranch(ctx, tenant)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	reservation := s.buildReservation(tenant, branch, parsed, message)

	if err := s.repositories.ReservationRepository.Create(ctx, reservation); err != nil {
		// A concurrent check may have created the same booking code between
		// our lookup and this insert. The unique index is the final
		// authority; losing that race is the same idempotent no-op as
		// finding the record up front.
		if repository.IsDuplicateKey(err) {
			s.log.Infof("[%s] Reservation %s created concurrently, skipping", tenant, parsed.ReservationCode)
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.log.Infof("[%s] Created reservation %s from message %s (code %s)", tenant, reservation.ID, message.MessageID, parsed.ReservationCode)

	s.maybeSendInvitation(ctx, tenant, branch, reservation)

	return reservation, nil
}

func (s *ingestionService) buildReservation(tenant string, branch *models.Branch, parsed *parser.ParsedReservation, message *interfaces.MailMessage) *models.Reservation {
	reservation := &models.Reservation{
		Tenant:          tenant,
		BookingCode:     parsed.ReservationCode,
		GuestName:       parsed.GuestName,
		GuestEmail:      parsed.GuestEmail,
		GuestPhone:      parsed.GuestPhone,
		CheckInDate:     parsed.CheckInDate,
		CheckOutDate:    parsed.CheckOutDate,
		Amount:          parsed.Amount,
		Currency:        parsed.Currency,
		Nights:          parsed.Nights,
		Rooms:           parsed.Rooms,
		Guests:          parsed.Guests,
		Nationality:     parsed.Nationality,
		Commission:      parsed.Commission,
		SourceMessageID: message.MessageID,
	}
	if reservation.Currency == "" {
		reservation.Currency = "COP"
	}
	if branch != nil {
		reservation.BranchID = utils.Ptr(branch.ID)
	}
	return reservation
}

// maybeSendInvitation notifies the guest right away when the stay has already
// begun and the branch opted into automatic sending. Notification failures
// are logged only; the reservation is already stored and a later reminder run
// can pick it up.
func (s *ingestionService) maybeSendInvitation(ctx context.Context, tenant string, branch *models.Branch, reservation *models.Reservation) {
	if s.notifier == nil {
		return
	}
	if branch == nil || !branch.AutoSendInvitation {
		s.log.Infof("[%s] Automatic invitations disabled for reservation %s", tenant, reservation.ID)
		return
	}
	if reservation.CheckInDate.After(utils.StartOfDayInUTC(utils.Now())) {
		return
	}

	err := s.notifier.SendInvitation(ctx, reservation, nil)
	if err != nil {
		s.log.Warnf("[%s] Could not send invitation for reservation %s: %v", tenant, reservation.ID, err)
		return
	}

	if err := s.repositories.ReservationRepository.MarkInvitationSent(ctx, reservation.ID); err != nil {
		s.log.Errorf("[%s] Invitation sent but could not be recorded for reservation %s: %v", tenant, reservation.ID, err)
	}
}
