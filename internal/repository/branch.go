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

type branchRepository struct {
	gormDb *gorm.DB
}

type BranchRepository interface {
	GetDefaultBranch(ctx context.Context, tenant string) (*models.Branch, error)
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{gormDb: db}
}

func (r *branchRepository) GetDefaultBranch(ctx context.Context, tenant string) (*models.Branch, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "BranchRepository.GetDefaultBranch")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagTenant(span, tenant)

	var result models.Branch
	err := r.gormDb.WithContext(ctx).
		Where("tenant = ? and is_default = ?", tenant, true).
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

	return &result, nil
}
