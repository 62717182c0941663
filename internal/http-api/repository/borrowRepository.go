package repository

import (
	"context"
	"fmt"

	"bookhub/internal/http-api/models"

	"gorm.io/gorm"
)

// BorrowStore reads the loan audit trail.
type BorrowStore interface {
	OpenCount(ctx context.Context, userID string) (int64, error)
	HistoryForUser(ctx context.Context, userID string) ([]models.BorrowRecord, error)
}

type BorrowRepo struct {
	db *gorm.DB
}

func NewBorrowRepo(db *gorm.DB) *BorrowRepo {
	return &BorrowRepo{db: db}
}

func (r *BorrowRepo) OpenCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BorrowRecord{}).
		Where("user_id = ? AND returned_at IS NULL", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count open borrows: %w", err)
	}
	return count, nil
}

// HistoryForUser returns the user's open and closed loans, newest first.
func (r *BorrowRepo) HistoryForUser(ctx context.Context, userID string) ([]models.BorrowRecord, error) {
	var history []models.BorrowRecord
	if err := r.db.WithContext(ctx).
		Preload("Copy").
		Preload("Copy.Book").
		Where("user_id = ?", userID).
		Order("borrowed_at DESC").
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("get borrow history: %w", err)
	}
	return history, nil
}
