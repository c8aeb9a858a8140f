package repository

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/internal/utils"
)

type reservationRepository struct {
	gormDb *gorm.DB
}

type ReservationRepository interface {
	GetByBookingCode(ctx context.Context, bookingCode string) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	MarkInvitationSent(ctx context.Context, id string) error
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{gormDb: db}
}

// IsDuplicateKey reports whether a create failed on the booking-code
// unique index. The store is the final authority on uniqueness; the
// orchestrator treats this as the already-processed path.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value")
}

func (r *reservationRepository) GetByBookingCode(ctx context.Context, bookingCode string) (*models.Reservation, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReservationRepository.GetByBookingCode")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	span.LogFields(tracingLog.String("bookingCode", bookingCode))

	var result models.Reservation
	err := r.gormDb.WithContext(ctx).
		Where("booking_code = ?", bookingCode).
		First(&result).
		Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		span.LogFields(tracingLog.Bool("result.found", false))
		return nil, nil
	}

	span.LogFields(tracingLog.Bool("result.found", true))
	return &result, nil
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReservationRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, reservation.ID)
	span.LogFields(tracingLog.String("bookingCode", reservation.BookingCode))

	err := r.gormDb.WithContext(ctx).Create(reservation).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *reservationRepository) MarkInvitationSent(ctx context.Context, id string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ReservationRepository.MarkInvitationSent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	err := r.gormDb.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"invitation_sent_at": utils.Now(),
			"updated_at":         utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}
