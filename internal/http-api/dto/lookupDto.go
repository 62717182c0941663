package dto

// CreateCategoryDTO used for POST /api/v1/categories
type CreateCategoryDTO struct {
	Name string `json:"name" binding:"required"`
}

// CreateAuthorDTO used for POST /api/v1/authors
type CreateAuthorDTO struct {
	Name string `json:"name" binding:"required"`
}
