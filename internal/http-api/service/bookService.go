package service

import (
	"context"
	"errors"

	"bookhub/internal/cache"
	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"
	"bookhub/internal/isbn"

	"gorm.io/gorm"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateISBN = errors.New("a book with this ISBN already exists")
	ErrBookInUse     = errors.New("book has copies with open borrows")
)

type BookService interface {
	GetAll(ctx context.Context, page, perPage int) ([]models.Book, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, raw string) (*models.Book, error)
	GetFiltered(ctx context.Context, f dto.BookFilter) ([]models.Book, int64, error)
	Create(ctx context.Context, b *models.Book, authorIDs []int64) error
	Update(ctx context.Context, id int64, in dto.UpdateBookDTO) (*models.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)

	CreateCopy(ctx context.Context, bookID int64) (*models.Copy, error)
	GetAllCopies(ctx context.Context) ([]models.Copy, error)
	GetCopiesForBook(ctx context.Context, bookID int64) ([]models.Copy, error)
}

type bookService struct {
	repo     repository.BookStore
	copyRepo repository.CopyStore
	cache    *cache.BookCache
}

func NewBookService(repo repository.BookStore, copyRepo repository.CopyStore, bookCache *cache.BookCache) BookService {
	return &bookService{repo: repo, copyRepo: copyRepo, cache: bookCache}
}

func (s *bookService) GetAll(ctx context.Context, page, perPage int) ([]models.Book, int64, error) {
	return s.repo.GetAll(ctx, page, perPage)
}

func (s *bookService) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	if cached, err := s.cache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	// best-effort, a failed cache write never fails the read
	_ = s.cache.Set(ctx, b)
	return b, nil
}

func (s *bookService) GetByISBN(ctx context.Context, raw string) (*models.Book, error) {
	normalized, err := isbn.Validate(raw)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetByISBN(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetFiltered resolves a catalog filter. An empty result is a valid terminal
// state, not an error.
func (s *bookService) GetFiltered(ctx context.Context, f dto.BookFilter) ([]models.Book, int64, error) {
	f.Normalize()
	return s.repo.GetFiltered(ctx, f)
}

// Create validates and canonicalizes the ISBN, rejects duplicates, then
// persists the book and its author links.
func (s *bookService) Create(ctx context.Context, b *models.Book, authorIDs []int64) error {
	normalized, err := isbn.Validate(b.ISBN)
	if err != nil {
		return err
	}
	b.ISBN = normalized

	exists, err := s.repo.ExistsByISBN(ctx, normalized)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateISBN
	}

	if err := s.repo.Create(ctx, b); err != nil {
		// two concurrent creates can both pass the existence check; the
		// unique index is the arbiter
		if repository.IsUniqueViolation(err) {
			return ErrDuplicateISBN
		}
		return err
	}

	if err := s.repo.ReplaceAuthors(ctx, b.ID, authorIDs); err != nil {
		if errors.Is(err, repository.ErrUnknownAuthor) {
			return ErrAuthorNotFound
		}
		return err
	}
	return nil
}

// Update applies a partial update. A changed ISBN is re-validated and
// re-checked for duplicates.
func (s *bookService) Update(ctx context.Context, id int64, in dto.UpdateBookDTO) (*models.Book, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	if in.ISBN != nil {
		normalized, err := isbn.Validate(*in.ISBN)
		if err != nil {
			return nil, err
		}
		if normalized != existing.ISBN {
			exists, err := s.repo.ExistsByISBN(ctx, normalized)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrDuplicateISBN
			}
		}
		in.ISBN = &normalized
	}

	in.ApplyTo(existing)

	if err := s.repo.Update(ctx, id, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, err
	}

	_ = s.cache.Invalidate(ctx, id)
	return existing, nil
}

// Delete reports false, not an error, when the id does not exist.
func (s *bookService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCopiesInUse) {
			return false, ErrBookInUse
		}
		return false, err
	}
	if deleted {
		_ = s.cache.Invalidate(ctx, id)
	}
	return deleted, nil
}

func (s *bookService) CreateCopy(ctx context.Context, bookID int64) (*models.Copy, error) {
	if _, err := s.repo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return s.copyRepo.CreateForBook(ctx, bookID)
}

func (s *bookService) GetAllCopies(ctx context.Context) ([]models.Copy, error) {
	return s.copyRepo.GetAll(ctx)
}

func (s *bookService) GetCopiesForBook(ctx context.Context, bookID int64) ([]models.Copy, error) {
	if _, err := s.repo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return s.copyRepo.GetByBook(ctx, bookID)
}
