package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/openstay/reservstack/interfaces"
	er "github.com/openstay/reservstack/internal/errors"
	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/internal/utils"
)

const (
	ExchangeReservstackDirect = "reservstack-direct"
	ExchangeDeadLetter        = "dead-letter"

	QueueInvitations = "guest-invitations"
	DLQInvitations   = QueueInvitations + "-dlq"

	RoutingKeyDeadLetter = "dead-letter"
	RoutingKeyInvitation = "reservstack-send-invitation"

	DefaultMessageTTL          = 240 * time.Hour // after TTL message moves to DLQ
	DefaultMaxRetries          = 3
	DefaultPublishTimeout      = 5 * time.Second
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

// InvitationRequested is the message handed to the downstream delivery
// worker. The worker owns channel selection (WhatsApp, email) and templating;
// ingestion only says who to invite and for which stay.
type InvitationRequested struct {
	ReservationID string    `json:"reservationId"`
	Tenant        string    `json:"tenant"`
	BookingCode   string    `json:"bookingCode"`
	GuestName     string    `json:"guestName"`
	GuestEmail    string    `json:"guestEmail,omitempty"`
	GuestPhone    string    `json:"guestPhone,omitempty"`
	CheckInDate   string    `json:"checkInDate"`
	CheckOutDate  string    `json:"checkOutDate"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

type SenderConfig struct {
	MessageTTL          time.Duration
	MaxRetries          int
	PublishTimeout      time.Duration
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

// RabbitMQInvitationSender publishes invitation requests on a direct
// exchange with publisher confirms, so a reported success means the broker
// accepted the message.
type RabbitMQInvitationSender struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	url             string
	logger          logger.Logger
	confirms        chan amqp091.Confirmation
	config          SenderConfig
}

func NewRabbitMQInvitationSender(rabbitmqURL string, logger logger.Logger, config *SenderConfig) (interfaces.InvitationSender, error) {
	if config == nil {
		config = &SenderConfig{
			MessageTTL:          DefaultMessageTTL,
			MaxRetries:          DefaultMaxRetries,
			PublishTimeout:      DefaultPublishTimeout,
			ReconnectBackoff:    DefaultReconnectBackoff,
			MaxReconnectBackoff: DefaultMaxReconnectBackoff,
		}
	}

	sender := &RabbitMQInvitationSender{
		url:    rabbitmqURL,
		logger: logger,
		config: *config,
	}

	err := sender.connect()
	if err != nil {
		return nil, err
	}

	return sender, nil
}

func (r *RabbitMQInvitationSender) SendInvitation(ctx context.Context, reservation *models.Reservation, override *interfaces.ContactOverride) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQInvitationSender.SendInvitation")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, reservation.Tenant)
	tracing.TagEntity(span, reservation.ID)

	message := InvitationRequested{
		ReservationID: reservation.ID,
		Tenant:        reservation.Tenant,
		BookingCode:   reservation.BookingCode,
		GuestName:     reservation.GuestName,
		GuestEmail:    reservation.GuestEmail,
		GuestPhone:    reservation.GuestPhone,
		CheckInDate:   reservation.CheckInDate.Format("2006-01-02"),
		CheckOutDate:  reservation.CheckOutDate.Format("2006-01-02"),
		Amount:        reservation.Amount,
		Currency:      reservation.Currency,
		Timestamp:     utils.Now(),
	}
	if override != nil {
		if override.GuestEmail != "" {
			message.GuestEmail = override.GuestEmail
		}
		if override.GuestPhone != "" {
			message.GuestPhone = override.GuestPhone
		}
	}

	tracing.LogObjectAsJson(span, "invitation", message)

	for attempt := 0; attempt < r.config.MaxRetries; attempt++ {
		err := r.publishWithConfirm(ctx, message)
		if err == nil {
			return nil
		}

		r.logger.Warnf("Publish attempt %d failed: %v", attempt+1, err)
		if attempt < r.config.MaxRetries-1 {
			time.Sleep(time.Millisecond * 100 * time.Duration(attempt+1))
		}
	}

	return errors.New("Failed to publish invitation after all retries")
}

func (r *RabbitMQInvitationSender) publishWithConfirm(ctx context.Context, message interface{}) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.ensureConnectionAndChannel(); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal invitation")
	}

	err = r.publishChannel.Publish(
		ExchangeReservstackDirect,
		RoutingKeyInvitation,
		true,  // mandatory - ensure message is routed
		false, // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         jsonBody,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return errors.Wrap(err, "Failed to publish invitation")
	}

	select {
	case confirm := <-r.confirms:
		if !confirm.Ack {
			return er.ErrInvitationNotConfirmed
		}
	case <-time.After(r.config.PublishTimeout):
		return errors.Wrap(er.ErrInvitationNotConfirmed, "confirm timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (r *RabbitMQInvitationSender) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	r.connection, err = amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}

	err = r.setupExchangesAndQueues()
	if err != nil {
		return errors.Wrap(err, "Failed to setup exchanges and queues")
	}

	err = r.setupPublishChannel()
	if err != nil {
		return errors.Wrap(err, "Failed to setup publish channel")
	}

	go r.handleReconnection()

	return nil
}

func (r *RabbitMQInvitationSender) ensureConnectionAndChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		if err := r.connect(); err != nil {
			return errors.Wrap(err, "Failed to establish connection")
		}
	}

	if r.publishChannel == nil || r.publishChannel.IsClosed() {
		if err := r.setupPublishChannel(); err != nil {
			return errors.Wrap(err, "Failed to establish channel")
		}
	}

	return nil
}

func (r *RabbitMQInvitationSender) setupPublishChannel() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "Failed to open publish channel")
	}

	// Enable publisher confirms
	err = channel.Confirm(false)
	if err != nil {
		channel.Close()
		return errors.Wrap(err, "Failed to enable publisher confirms")
	}

	r.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQInvitationSender) setupExchangesAndQueues() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "Failed to open channel for exchange/queue setup")
	}
	defer channel.Close()

	err = channel.ExchangeDeclare(
		ExchangeDeadLetter,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return errors.Wrap(err, "Failed to declare dead letter exchange")
	}

	err = channel.ExchangeDeclare(
		ExchangeReservstackDirect,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "Failed to declare direct exchange")
	}

	_, err = channel.QueueDeclare(
		DLQInvitations,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "Failed to declare DLQ %s", DLQInvitations)
	}

	err = channel.QueueBind(
		DLQInvitations,
		RoutingKeyDeadLetter,
		ExchangeDeadLetter,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "Failed to bind DLQ %s to exchange", DLQInvitations)
	}

	args := make(map[string]interface{})
	args["x-dead-letter-exchange"] = ExchangeDeadLetter
	args["x-dead-letter-routing-key"] = RoutingKeyDeadLetter
	args["x-message-ttl"] = int64(r.config.MessageTTL.Milliseconds())

	_, err = channel.QueueDeclare(
		QueueInvitations,
		true,
		false,
		false,
		false,
		args,
	)
	if err != nil {
		return errors.Wrapf(err, "Failed to declare queue %s", QueueInvitations)
	}

	err = channel.QueueBind(
		QueueInvitations,
		RoutingKeyInvitation,
		ExchangeReservstackDirect,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "Failed to bind queue %s to exchange", QueueInvitations)
	}

	return nil
}

func (r *RabbitMQInvitationSender) handleReconnection() {
	backoff := r.config.ReconnectBackoff

	for {
		notifyClose := r.connection.NotifyClose(make(chan *amqp091.Error))
		err := <-notifyClose
		r.logger.Warnf("RabbitMQ connection closed: %v, attempting to reconnect", err)

		for {
			err := r.connect()
			if err == nil {
				r.logger.Info("Successfully reconnected to RabbitMQ")
				break
			}

			r.logger.Errorf("Failed to reconnect: %v, retrying in %v", err, backoff)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > r.config.MaxReconnectBackoff {
				backoff = r.config.MaxReconnectBackoff
			}
		}

		backoff = r.config.ReconnectBackoff
	}
}

// Close gracefully shuts down the sender
func (r *RabbitMQInvitationSender) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	if r.publishChannel != nil {
		err = r.publishChannel.Close()
		if err != nil {
			r.logger.Errorf("Error closing publish channel: %v", err)
		}
	}

	if r.connection != nil {
		if closeErr := r.connection.Close(); closeErr != nil {
			r.logger.Errorf("Error closing connection: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}
