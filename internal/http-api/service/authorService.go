package service

import (
	"context"
	"errors"
	"strings"

	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"

	"gorm.io/gorm"
)

var ErrAuthorNotFound = errors.New("author not found")

type AuthorService interface {
	GetAll(ctx context.Context) ([]models.Author, error)
	GetByID(ctx context.Context, id int64) (*models.Author, error)
	Create(ctx context.Context, a *models.Author) error
	GetBooksByAuthor(ctx context.Context, authorID int64) ([]models.Book, error)
}

type authorService struct {
	repo repository.AuthorStore
}

func NewAuthorService(repo repository.AuthorStore) AuthorService {
	return &authorService{repo: repo}
}

func (s *authorService) GetAll(ctx context.Context) ([]models.Author, error) {
	return s.repo.GetAll(ctx)
}

func (s *authorService) GetByID(ctx context.Context, id int64) (*models.Author, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *authorService) Create(ctx context.Context, a *models.Author) error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("name is required")
	}
	a.Name = strings.TrimSpace(a.Name)
	return s.repo.Create(ctx, a)
}

func (s *authorService) GetBooksByAuthor(ctx context.Context, authorID int64) ([]models.Book, error) {
	if _, err := s.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	return s.repo.GetBooksByAuthor(ctx, authorID)
}
