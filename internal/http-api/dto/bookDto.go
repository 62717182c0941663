package dto

import (
	"time"

	"bookhub/internal/http-api/models"
)

// CreateBookDTO used for POST /api/v1/books
type CreateBookDTO struct {
	ISBN        string  `json:"isbn" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Edition     string  `json:"edition" binding:"required"`
	Publisher   string  `json:"publisher" binding:"required"`
	Description *string `json:"description,omitempty"`
	CategoryID  int64   `json:"category_id" binding:"required"`
	AuthorIDs   []int64 `json:"author_ids" binding:"required,min=1"`
}

// UpdateBookDTO used for PUT /api/v1/books/:id (partial updates allowed)
type UpdateBookDTO struct {
	ISBN        *string `json:"isbn,omitempty"`
	Title       *string `json:"title,omitempty"`
	Edition     *string `json:"edition,omitempty"`
	Publisher   *string `json:"publisher,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
}

// BookFilter carries the recognized catalog filter fields. All fields are
// optional and combine with AND semantics; Search alone matches title OR ISBN.
type BookFilter struct {
	Search       string `form:"search"`
	CategoryName string `form:"categoryName"`
	Publisher    string `form:"publisher"`
	Edition      string `form:"edition"`
	AuthorName   string `form:"authorName"`
	SortBy       string `form:"sortBy" binding:"omitempty,oneof=id title edition category publisher"`
	SortOrder    string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Page         int    `form:"page"`
	PerPage      int    `form:"perPage"`
}

// Normalize fills in defaults and clamps pagination.
func (f *BookFilter) Normalize() {
	if f.SortBy == "" {
		f.SortBy = "id"
	}
	if f.SortOrder == "" {
		f.SortOrder = "asc"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 10
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

// BookResponse DTO for responses
type BookResponse struct {
	ID          int64      `json:"id"`
	ISBN        string     `json:"isbn"`
	Title       string     `json:"title"`
	Edition     string     `json:"edition"`
	Publisher   string     `json:"publisher"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Converters
func (d CreateBookDTO) ToModel() models.Book {
	return models.Book{
		ISBN:        d.ISBN,
		Title:       d.Title,
		Edition:     d.Edition,
		Publisher:   d.Publisher,
		Description: d.Description,
		CategoryID:  d.CategoryID,
	}
}

func (d UpdateBookDTO) ApplyTo(b *models.Book) {
	if d.ISBN != nil {
		b.ISBN = *d.ISBN
	}
	if d.Title != nil {
		b.Title = *d.Title
	}
	if d.Edition != nil {
		b.Edition = *d.Edition
	}
	if d.Publisher != nil {
		b.Publisher = *d.Publisher
	}
	if d.Description != nil {
		b.Description = d.Description
	}
	if d.CategoryID != nil {
		b.CategoryID = *d.CategoryID
	}
}

func FromModelToResponse(b models.Book) BookResponse {
	resp := BookResponse{
		ID:          b.ID,
		ISBN:        b.ISBN,
		Title:       b.Title,
		Edition:     b.Edition,
		Publisher:   b.Publisher,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
	if b.Category != nil {
		resp.Category = &b.Category.Name
	}
	for _, a := range b.Authors {
		resp.Authors = append(resp.Authors, a.Name)
	}
	return resp
}
