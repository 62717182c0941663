package dto

import (
	"time"

	"bookhub/internal/http-api/models"
)

// BorrowRequest used for POST /api/v1/books/borrow and /return
type BorrowRequest struct {
	BookIDs []int64 `json:"book_ids" binding:"required,min=1"`
}

// LoanResponse is one borrow record as returned to clients.
type LoanResponse struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	CopyID     int64      `json:"copy_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

func FromRecordToLoanResponse(rec models.BorrowRecord) LoanResponse {
	resp := LoanResponse{
		ID:         rec.ID,
		CopyID:     rec.CopyID,
		BorrowedAt: rec.BorrowedAt,
		ReturnedAt: rec.ReturnedAt,
	}
	if rec.Copy != nil {
		resp.BookID = rec.Copy.BookID
		if rec.Copy.Book != nil {
			resp.BookTitle = rec.Copy.Book.Title
		}
	}
	return resp
}
