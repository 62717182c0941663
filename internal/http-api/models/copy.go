package models

import "time"

// Copy is one physical, individually borrowable instance of a Book.
// Availability is flipped by the circulation service only.
type Copy struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	BookID    int64      `json:"book_id" gorm:"index;not null"`
	Available bool       `json:"available" gorm:"not null;default:true"`
	CreatedAt *time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`

	Book *Book `json:"book,omitempty" gorm:"foreignKey:BookID"`
}

func (Copy) TableName() string {
	return "copies"
}
