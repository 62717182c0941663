package repository

import (
	"context"
	"errors"
	"fmt"

	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// BookStore is the persistence contract the catalog services depend on.
type BookStore interface {
	GetAll(ctx context.Context, page, perPage int) ([]models.Book, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	GetFiltered(ctx context.Context, f dto.BookFilter) ([]models.Book, int64, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	Create(ctx context.Context, b *models.Book) error
	ReplaceAuthors(ctx context.Context, bookID int64, authorIDs []int64) error
	Update(ctx context.Context, id int64, b *models.Book) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type BookRepo struct {
	db *gorm.DB
}

func NewBookRepo(db *gorm.DB) *BookRepo {
	return &BookRepo{db: db}
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation. Used to map a create race on ISBN to a conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *BookRepo) GetAll(ctx context.Context, page, perPage int) ([]models.Book, int64, error) {
	var list []models.Book
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	offset := (page - 1) * perPage

	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Authors").
		Order("id asc").
		Limit(perPage).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("get books: %w", err)
	}

	return list, total, nil
}

func (r *BookRepo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Authors").
		First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepo) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Authors").
		Where("isbn = ?", isbn).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepo) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("isbn = ?", isbn).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check isbn: %w", err)
	}
	return count > 0, nil
}

// filterQuery composes the WHERE/JOIN part of a filtered catalog read.
// The category join is always present so sortBy=category can order on the
// resolved name; the author filter goes through a subquery to keep book rows
// unique under the many-to-many link table.
func (r *BookRepo) filterQuery(ctx context.Context, f dto.BookFilter) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Joins("JOIN categories ON categories.id = books.category_id")

	if f.Search != "" {
		p := "%" + f.Search + "%"
		q = q.Where("(books.title ILIKE ? OR books.isbn ILIKE ?)", p, p)
	}
	if f.CategoryName != "" {
		q = q.Where("categories.name ILIKE ?", f.CategoryName)
	}
	if f.Publisher != "" {
		q = q.Where("books.publisher ILIKE ?", f.Publisher)
	}
	if f.Edition != "" {
		q = q.Where("books.edition = ?", f.Edition)
	}
	if f.AuthorName != "" {
		q = q.Where(
			"books.id IN (SELECT ba.book_id FROM book_authors ba JOIN authors ON authors.id = ba.author_id WHERE authors.name ILIKE ?)",
			f.AuthorName,
		)
	}
	return q
}

var sortColumns = map[string]string{
	"id":        "books.id",
	"title":     "books.title",
	"edition":   "books.edition",
	"category":  "categories.name",
	"publisher": "books.publisher",
}

// GetFiltered resolves a filter into a paginated, sorted catalog page. A
// filter that matches nothing returns an empty slice with total 0, never an
// error.
func (r *BookRepo) GetFiltered(ctx context.Context, f dto.BookFilter) ([]models.Book, int64, error) {
	f.Normalize()

	var total int64
	if err := r.filterQuery(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count filtered books: %w", err)
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "books.id"
	}
	order := col + " asc"
	if f.SortOrder == "desc" {
		order = col + " desc"
	}

	var list []models.Book
	if err := r.filterQuery(ctx, f).
		Preload("Category").
		Preload("Authors").
		Order(order).
		Limit(f.PerPage).
		Offset((f.Page - 1) * f.PerPage).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("get filtered books: %w", err)
	}

	return list, total, nil
}

func (r *BookRepo) Create(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// ErrUnknownAuthor rejects linking a book to an author id that does not
// exist. Association().Replace would upsert a phantom author row otherwise.
var ErrUnknownAuthor = errors.New("unknown author id")

func (r *BookRepo) ReplaceAuthors(ctx context.Context, bookID int64, authorIDs []int64) error {
	if len(authorIDs) == 0 {
		return nil
	}
	unique := make(map[int64]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		unique[id] = struct{}{}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Book
		if err := tx.First(&b, bookID).Error; err != nil {
			return fmt.Errorf("book not found: %w", err)
		}
		var authors []models.Author
		if err := tx.Find(&authors, authorIDs).Error; err != nil {
			return fmt.Errorf("load authors: %w", err)
		}
		if len(authors) != len(unique) {
			return ErrUnknownAuthor
		}
		if err := tx.Model(&b).Association("Authors").Replace(&authors); err != nil {
			return fmt.Errorf("replace authors: %w", err)
		}
		return nil
	})
}

func (r *BookRepo) Update(ctx context.Context, id int64, b *models.Book) error {
	// ensure ID set for Save
	b.ID = id
	if err := r.db.WithContext(ctx).Omit("Authors", "Category", "Copies").Save(b).Error; err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// ErrCopiesInUse rejects deleting a book while one of its copies is out on
// loan. Copies referenced by an open borrow are never silently removed.
var ErrCopiesInUse = errors.New("book has copies with open borrows")

// Delete removes the book and its copies. Borrow records stay behind as the
// audit trail. The bool result distinguishes "did not exist" from failure.
func (r *BookRepo) Delete(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.BorrowRecord{}).
			Joins("JOIN copies ON copies.id = borrow_records.copy_id").
			Where("copies.book_id = ? AND borrow_records.returned_at IS NULL", id).
			Count(&open).Error; err != nil {
			return fmt.Errorf("count open borrows: %w", err)
		}
		if open > 0 {
			return ErrCopiesInUse
		}
		if err := tx.Where("book_id = ?", id).Delete(&models.Copy{}).Error; err != nil {
			return fmt.Errorf("delete copies: %w", err)
		}
		res := tx.Delete(&models.Book{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete book: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
