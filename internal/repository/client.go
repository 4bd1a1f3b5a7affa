package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"CoachCheck/internal/model"
	pkgerrors "CoachCheck/pkg/errors"
)

type coachRepository struct {
	db *gorm.DB
}

func (r *coachRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Coach, error) {
	var coach model.Coach
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).Take(&coach).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: coach %s", pkgerrors.Unauthorized, publicID)
	}
	if err != nil {
		return nil, fmt.Errorf("query coach: %w", err)
	}
	return &coach, nil
}

type clientRepository struct {
	db *gorm.DB
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *clientRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Client, error) {
	return r.take(ctx, "public_id = ?", publicID)
}

func (r *clientRepository) take(ctx context.Context, query string, arg interface{}) (*model.Client, error) {
	var client model.Client
	err := r.db.WithContext(ctx).Where(query, arg).Take(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ClientNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) ListByCoach(ctx context.Context, coachID int64) ([]*model.Client, error) {
	var clients []*model.Client
	if err := r.db.WithContext(ctx).
		Where("coach_id = ?", coachID).
		Order("display_name ASC").
		Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) MarkOnboarded(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Client{}).
		Where("id = ? AND onboarded_at IS NULL", id).
		Update("onboarded_at", at).Error
}

type formRepository struct {
	db *gorm.DB
}

func (r *formRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Form, error) {
	var form model.Form
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).Take(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.FormNotFound, publicID)
	}
	if err != nil {
		return nil, fmt.Errorf("query form: %w", err)
	}
	return &form, nil
}
