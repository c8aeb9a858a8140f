package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/tracing"
)

type tenantMailSettingsRepository struct {
	gormDb *gorm.DB
}

type TenantMailSettingsRepository interface {
	GetByTenant(ctx context.Context, tenant string) (*models.TenantMailSettings, error)
	GetAll(ctx context.Context) ([]*models.TenantMailSettings, error)
}

func NewTenantMailSettingsRepository(db *gorm.DB) TenantMailSettingsRepository {
	return &tenantMailSettingsRepository{gormDb: db}
}

func (r *tenantMailSettingsRepository) GetByTenant(ctx context.Context, tenant string) (*models.TenantMailSettings, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "TenantMailSettingsRepository.GetByTenant")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagTenant(span, tenant)

	var result models.TenantMailSettings
	err := r.gormDb.WithContext(ctx).
		Where("tenant = ?", tenant).
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

func (r *tenantMailSettingsRepository) GetAll(ctx context.Context) ([]*models.TenantMailSettings, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "TenantMailSettingsRepository.GetAll")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var result []*models.TenantMailSettings
	err := r.gormDb.WithContext(ctx).
		Find(&result).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(result)))
	return result, nil
}
