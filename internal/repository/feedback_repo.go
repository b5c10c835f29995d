package repository

import (
	"context"

	"github.com/cauafreitas/portfolio-api/internal/domain"
	"gorm.io/gorm"
)

type GormFeedbackRepo struct {
	db *gorm.DB
}

func NewGormFeedbackRepo(db *gorm.DB) *GormFeedbackRepo {
	return &GormFeedbackRepo{db: db}
}

func (r *GormFeedbackRepo) Create(ctx context.Context, f *domain.Feedback) error {
	model := feedbackModelFromDomain(f)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if f != nil {
		*f = *feedbackModelToDomain(model)
	}
	return nil
}
