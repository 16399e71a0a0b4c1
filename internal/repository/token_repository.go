package repository

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)
}

type GormTokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

func (r *GormTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return translate(err, "store refresh token")
	}
	return nil
}

// FindActive returns the ledger row for a jti unless it has been revoked.
func (r *GormTokenRepository) FindActive(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("id = ? AND revoked = ?", id, false).
		First(&token).Error
	if err != nil {
		return nil, translate(err, "find refresh token")
	}
	return &token, nil
}
