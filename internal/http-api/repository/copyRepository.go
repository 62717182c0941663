package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookhub/internal/http-api/models"

	"gorm.io/gorm"
)

var (
	// ErrCopyUnavailable signals a lost claim race: the copy was available
	// when listed but another borrower flipped it first.
	ErrCopyUnavailable = errors.New("copy is no longer available")

	// ErrNoOpenBorrow signals that no open borrow record exists for the
	// user/book pair.
	ErrNoOpenBorrow = errors.New("no open borrow record")
)

// CopyStore owns copy availability. Claim and Release are the only writers
// of the availability flag, and both are conditional storage-level updates.
type CopyStore interface {
	CreateForBook(ctx context.Context, bookID int64) (*models.Copy, error)
	GetAll(ctx context.Context) ([]models.Copy, error)
	GetByBook(ctx context.Context, bookID int64) ([]models.Copy, error)
	AvailableIDs(ctx context.Context, bookID int64) ([]int64, error)
	Claim(ctx context.Context, copyID int64, userID string) (*models.BorrowRecord, error)
	Release(ctx context.Context, userID string, bookID int64) (*models.BorrowRecord, error)
}

type CopyRepo struct {
	db *gorm.DB
}

func NewCopyRepo(db *gorm.DB) *CopyRepo {
	return &CopyRepo{db: db}
}

func (r *CopyRepo) CreateForBook(ctx context.Context, bookID int64) (*models.Copy, error) {
	c := &models.Copy{BookID: bookID, Available: true}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create copy: %w", err)
	}
	return c, nil
}

func (r *CopyRepo) GetAll(ctx context.Context) ([]models.Copy, error) {
	var list []models.Copy
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Order("id asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get copies: %w", err)
	}
	return list, nil
}

func (r *CopyRepo) GetByBook(ctx context.Context, bookID int64) ([]models.Copy, error) {
	var list []models.Copy
	if err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("id asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get copies for book: %w", err)
	}
	return list, nil
}

func (r *CopyRepo) AvailableIDs(ctx context.Context, bookID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Copy{}).
		Where("book_id = ? AND available", bookID).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list available copies: %w", err)
	}
	return ids, nil
}

// Claim flips one copy to borrowed and opens its borrow record in a single
// transaction. The availability flip is a conditional update; RowsAffected 0
// means a concurrent borrower won the copy and the caller should try another.
func (r *CopyRepo) Claim(ctx context.Context, copyID int64, userID string) (*models.BorrowRecord, error) {
	var rec *models.BorrowRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Copy{}).
			Where("id = ? AND available", copyID).
			Update("available", false)
		if res.Error != nil {
			return fmt.Errorf("claim copy: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCopyUnavailable
		}

		rec = &models.BorrowRecord{
			UserID:     userID,
			CopyID:     copyID,
			BorrowedAt: time.Now().UTC(),
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("create borrow record: %w", err)
		}

		var c models.Copy
		if err := tx.Preload("Book").First(&c, copyID).Error; err != nil {
			return fmt.Errorf("load claimed copy: %w", err)
		}
		rec.Copy = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Release closes the user's open borrow record for the given book and flips
// the copy back to available. Closing is conditional on the record still
// being open, so a repeated return reports ErrNoOpenBorrow instead of
// double-releasing.
func (r *CopyRepo) Release(ctx context.Context, userID string, bookID int64) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Preload("Copy").
			Preload("Copy.Book").
			Joins("JOIN copies ON copies.id = borrow_records.copy_id").
			Where("borrow_records.user_id = ? AND copies.book_id = ? AND borrow_records.returned_at IS NULL", userID, bookID).
			Order("borrow_records.borrowed_at asc").
			First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoOpenBorrow
			}
			return fmt.Errorf("find open borrow: %w", err)
		}

		now := time.Now().UTC()
		res := tx.Model(&models.BorrowRecord{}).
			Where("id = ? AND returned_at IS NULL", rec.ID).
			Update("returned_at", now)
		if res.Error != nil {
			return fmt.Errorf("close borrow record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoOpenBorrow
		}
		rec.ReturnedAt = &now

		if err := tx.Model(&models.Copy{}).
			Where("id = ?", rec.CopyID).
			Update("available", true).Error; err != nil {
			return fmt.Errorf("release copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
