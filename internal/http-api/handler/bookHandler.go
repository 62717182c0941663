package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/middleware"
	"bookhub/internal/http-api/service"
	"bookhub/internal/isbn"

	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	svc service.BookService
}

func NewBookHandler(svc service.BookService) *BookHandler {
	return &BookHandler{svc: svc}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	// Public catalog reads
	rg.GET("", h.List)
	rg.GET("/copy", h.ListCopies)
	rg.GET("/copy/:id", h.CopiesForBook)
	rg.GET("/isbn/:isbn", h.GetByISBN)
	rg.GET("/:id", h.Get)

	// Admin-only catalog writes
	rg.POST("", authMW, middleware.RequireScopes("write:books"), middleware.RequireAdmin(), h.Create)
	rg.POST("/copy/:id", authMW, middleware.RequireScopes("write:books"), middleware.RequireAdmin(), h.CreateCopy)
	rg.PUT("/:id", authMW, middleware.RequireScopes("write:books"), middleware.RequireAdmin(), h.Update)
	rg.DELETE("/:id", authMW, middleware.RequireScopes("delete:books"), middleware.RequireAdmin(), h.Delete)
}

// respondBookError maps catalog service errors to status codes. Storage
// failures fall through to 500 and are never reported as absence.
func respondBookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, isbn.ErrInvalid), errors.Is(err, isbn.ErrChecksum),
		errors.Is(err, service.ErrAuthorNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateISBN), errors.Is(err, service.ErrBookInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// List handles GET /api/v1/books. With ?filter=1 the recognized filter
// fields apply; otherwise the full catalog is returned, still paginated.
func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var f dto.BookFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f.Normalize()

	var (
		list  []interface{}
		total int64
	)
	if c.Query("filter") == "1" {
		books, t, err := h.svc.GetFiltered(ctx, f)
		if err != nil {
			respondBookError(c, err)
			return
		}
		total = t
		for _, b := range books {
			list = append(list, dto.FromModelToResponse(b))
		}
	} else {
		books, t, err := h.svc.GetAll(ctx, f.Page, f.PerPage)
		if err != nil {
			respondBookError(c, err)
			return
		}
		total = t
		for _, b := range books {
			list = append(list, dto.FromModelToResponse(b))
		}
	}

	if list == nil {
		list = []interface{}{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data": list,
		"pagination": gin.H{
			"page":        f.Page,
			"per_page":    f.PerPage,
			"total":       total,
			"total_pages": (total + int64(f.PerPage) - 1) / int64(f.PerPage),
		},
	})
}

func (h *BookHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.GetByID(ctx, id)
	if err != nil {
		respondBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToResponse(*b))
}

func (h *BookHandler) GetByISBN(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.GetByISBN(ctx, c.Param("isbn"))
	if err != nil {
		respondBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToResponse(*b))
}

func (h *BookHandler) Create(c *gin.Context) {
	var in dto.CreateBookDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	model := in.ToModel()
	if err := h.svc.Create(ctx, &model, in.AuthorIDs); err != nil {
		respondBookError(c, err)
		return
	}

	// Fetch with associations to return complete data
	created, err := h.svc.GetByID(ctx, model.ID)
	if err != nil {
		c.JSON(http.StatusCreated, dto.FromModelToResponse(model))
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToResponse(*created))
}

func (h *BookHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var in dto.UpdateBookDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	updated, err := h.svc.Update(ctx, id, in)
	if err != nil {
		respondBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToResponse(*updated))
}

// Delete handles DELETE /api/v1/books/:id. A missing id is 404, not an
// error; a book with copies out on loan is a conflict.
func (h *BookHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.svc.Delete(ctx, id)
	if err != nil {
		respondBookError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookHandler) CreateCopy(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	copyModel, err := h.svc.CreateCopy(ctx, bookID)
	if err != nil {
		respondBookError(c, err)
		return
	}
	c.JSON(http.StatusCreated, copyModel)
}

func (h *BookHandler) ListCopies(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	copies, err := h.svc.GetAllCopies(ctx)
	if err != nil {
		respondBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, copies)
}

func (h *BookHandler) CopiesForBook(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	copies, err := h.svc.GetCopiesForBook(ctx, bookID)
	if err != nil {
		respondBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, copies)
}
