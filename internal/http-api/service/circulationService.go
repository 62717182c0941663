package service

import (
	"context"
	"errors"

	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrBorrowLimitExceeded = errors.New("borrow limit exceeded")
	ErrNoAvailableCopy     = errors.New("no available copy")
	ErrNotBorrowed         = errors.New("book is not borrowed by this user")
)

// ItemFailure reports why one book id in a batch could not be processed.
type ItemFailure struct {
	BookID int64  `json:"book_id"`
	Reason string `json:"reason"`
}

// BorrowOutcome carries per-id results of one borrow batch. The borrow limit
// is checked before any mutation, so a limit failure never produces an
// outcome; availability failures are per-id and siblings still commit.
type BorrowOutcome struct {
	Borrowed []models.BorrowRecord `json:"borrowed"`
	Failed   []ItemFailure         `json:"failed,omitempty"`
}

// ReturnOutcome carries per-id results of one return batch.
type ReturnOutcome struct {
	Returned []models.BorrowRecord `json:"returned"`
	Failed   []ItemFailure         `json:"failed,omitempty"`
}

type CirculationService interface {
	Borrow(ctx context.Context, userID string, bookIDs []int64) (*BorrowOutcome, error)
	Return(ctx context.Context, userID string, bookIDs []int64) (*ReturnOutcome, error)
	History(ctx context.Context, userID string) ([]models.BorrowRecord, error)
}

type circulationService struct {
	bookRepo     repository.BookStore
	copyRepo     repository.CopyStore
	borrowRepo   repository.BorrowStore
	userRepo     repository.UserStore
	defaultLimit int
}

// NewCirculationService builds the borrow/return engine. defaultLimit (the
// BORROW_LIMIT setting) applies to users without a positive per-user limit.
func NewCirculationService(
	bookRepo repository.BookStore,
	copyRepo repository.CopyStore,
	borrowRepo repository.BorrowStore,
	userRepo repository.UserStore,
	defaultLimit int,
) CirculationService {
	return &circulationService{
		bookRepo:     bookRepo,
		copyRepo:     copyRepo,
		borrowRepo:   borrowRepo,
		userRepo:     userRepo,
		defaultLimit: defaultLimit,
	}
}

// Borrow claims one available copy per requested book id for the user.
// The open-borrow count plus the whole request must fit the user's limit
// before any copy is touched; duplicates in the request count individually.
func (s *circulationService) Borrow(ctx context.Context, userID string, bookIDs []int64) (*BorrowOutcome, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	open, err := s.borrowRepo.OpenCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit := user.BorrowLimit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if open+int64(len(bookIDs)) > int64(limit) {
		return nil, ErrBorrowLimitExceeded
	}

	out := &BorrowOutcome{}
	for _, bookID := range bookIDs {
		rec, err := s.claimOne(ctx, userID, bookID)
		switch {
		case errors.Is(err, ErrNoAvailableCopy):
			out.Failed = append(out.Failed, ItemFailure{BookID: bookID, Reason: "no available copy"})
		case errors.Is(err, ErrBookNotFound):
			out.Failed = append(out.Failed, ItemFailure{BookID: bookID, Reason: "book not found"})
		case err != nil:
			// storage failure: propagate, already-claimed siblings stay
			// committed and visible in the user's history
			return nil, err
		default:
			out.Borrowed = append(out.Borrowed, *rec)
		}
	}
	return out, nil
}

// claimOne walks the snapshot of available copies and attempts a conditional
// claim on each. Losing the race on one candidate moves on to the next; an
// exhausted snapshot means no copy is available.
func (s *circulationService) claimOne(ctx context.Context, userID string, bookID int64) (*models.BorrowRecord, error) {
	ids, err := s.copyRepo.AvailableIDs(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBookNotFound
			}
			return nil, err
		}
		return nil, ErrNoAvailableCopy
	}

	for _, copyID := range ids {
		rec, err := s.copyRepo.Claim(ctx, copyID, userID)
		if errors.Is(err, repository.ErrCopyUnavailable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, ErrNoAvailableCopy
}

// Return closes the user's open borrow per book id. Ids with no open borrow
// fail individually; repeating a successful return reports the same failure.
func (s *circulationService) Return(ctx context.Context, userID string, bookIDs []int64) (*ReturnOutcome, error) {
	out := &ReturnOutcome{}
	for _, bookID := range bookIDs {
		rec, err := s.copyRepo.Release(ctx, userID, bookID)
		switch {
		case errors.Is(err, repository.ErrNoOpenBorrow):
			out.Failed = append(out.Failed, ItemFailure{BookID: bookID, Reason: "not borrowed"})
		case err != nil:
			return nil, err
		default:
			out.Returned = append(out.Returned, *rec)
		}
	}
	return out, nil
}

func (s *circulationService) History(ctx context.Context, userID string) ([]models.BorrowRecord, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.borrowRepo.HistoryForUser(ctx, userID)
}
