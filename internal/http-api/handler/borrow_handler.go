package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/middleware"
	"bookhub/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type CirculationHandler struct {
	svc service.CirculationService
}

func NewCirculationHandler(svc service.CirculationService) *CirculationHandler {
	return &CirculationHandler{svc: svc}
}

// RegisterRoutes mounts the circulation endpoints on the books group. All of
// them act on behalf of the authenticated user.
func (h *CirculationHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/borrow", authMW, middleware.RequireScopes("borrow:books"), h.Borrow)
	rg.POST("/return", authMW, middleware.RequireScopes("borrow:books"), h.Return)
	rg.GET("/history", authMW, h.History)
}

func (h *CirculationHandler) Borrow(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var in dto.BorrowRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	out, err := h.svc.Borrow(ctx, userID, in.BookIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBorrowLimitExceeded):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	borrowed := make([]dto.LoanResponse, 0, len(out.Borrowed))
	for _, rec := range out.Borrowed {
		borrowed = append(borrowed, dto.FromRecordToLoanResponse(rec))
	}
	c.JSON(http.StatusOK, gin.H{
		"borrowed": borrowed,
		"failed":   out.Failed,
	})
}

func (h *CirculationHandler) Return(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var in dto.BorrowRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	out, err := h.svc.Return(ctx, userID, in.BookIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	returned := make([]dto.LoanResponse, 0, len(out.Returned))
	for _, rec := range out.Returned {
		returned = append(returned, dto.FromRecordToLoanResponse(rec))
	}
	c.JSON(http.StatusOK, gin.H{
		"returned": returned,
		"failed":   out.Failed,
	})
}

func (h *CirculationHandler) History(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, err := h.svc.History(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history := make([]dto.LoanResponse, 0, len(records))
	for _, rec := range records {
		history = append(history, dto.FromRecordToLoanResponse(rec))
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
