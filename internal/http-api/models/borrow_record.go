package models

import "time"

// BorrowRecord is the audit trail of one loan. A record with a nil
// ReturnedAt is an open borrow; a copy has at most one open record.
// Records are never deleted, even when the book is removed from the catalog.
type BorrowRecord struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     string     `json:"user_id" gorm:"type:uuid;index;not null"`
	CopyID     int64      `json:"copy_id" gorm:"index;not null"`
	BorrowedAt time.Time  `json:"borrowed_at" gorm:"index;not null"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" gorm:"index"`

	// Associations. No FK constraint to copies: the audit trail outlives the
	// copy row, which goes away with its book while records keep the copy id.
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Copy *Copy `json:"copy,omitempty" gorm:"foreignKey:CopyID;constraint:-"`
}

func (BorrowRecord) TableName() string {
	return "borrow_records"
}
