package services

import (
	"github.com/openstay/reservstack/config"
	"github.com/openstay/reservstack/interfaces"
	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/repository"
	"github.com/openstay/reservstack/services/imap"
	"github.com/openstay/reservstack/services/ingestion"
	"github.com/openstay/reservstack/services/notifier"
	"github.com/openstay/reservstack/services/parser"
)

type Services struct {
	MailboxClientFactory interfaces.MailboxClientFactory
	ReservationParser    *parser.ReservationEmailParser
	InvitationSender     interfaces.InvitationSender
	IngestionService     interfaces.IngestionService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	clientFactory := imap.NewClientFactory(log)
	reservationParser := parser.NewReservationEmailParser(log)

	// Invitation delivery runs on RabbitMQ; without a broker URL the pipeline
	// still ingests but never notifies.
	var invitationSender interfaces.InvitationSender
	if cfg.AppConfig.RabbitMQURL != "" {
		senderConfig := &notifier.SenderConfig{
			MessageTTL:          notifier.DefaultMessageTTL,
			MaxRetries:          notifier.DefaultMaxRetries,
			PublishTimeout:      notifier.DefaultPublishTimeout,
			ReconnectBackoff:    notifier.DefaultReconnectBackoff,
			MaxReconnectBackoff: notifier.DefaultMaxReconnectBackoff,
		}

		sender, err := notifier.NewRabbitMQInvitationSender(cfg.AppConfig.RabbitMQURL, log, senderConfig)
		if err != nil {
			return nil, err
		}
		invitationSender = sender
	} else {
		log.Warn("RABBITMQ_URL not set, guest invitations are disabled")
	}

	services := Services{
		MailboxClientFactory: clientFactory,
		ReservationParser:    reservationParser,
		InvitationSender:     invitationSender,
		IngestionService:     ingestion.NewIngestionService(log, repos, clientFactory, invitationSender, reservationParser),
	}

	return &services, nil
}
