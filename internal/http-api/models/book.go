package models

import "time"

type Book struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ISBN        string     `json:"isbn" gorm:"uniqueIndex;size:13;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Edition     string     `json:"edition"`
	Publisher   string     `json:"publisher"`
	Description *string    `json:"description,omitempty"`
	CategoryID  int64      `json:"category_id" gorm:"index;not null"`
	CreatedAt   *time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`

	// associations
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Authors  []Author  `json:"authors,omitempty" gorm:"many2many:book_authors;constraint:OnDelete:CASCADE;"`
	Copies   []Copy    `json:"copies,omitempty" gorm:"foreignKey:BookID"`
}

func (Book) TableName() string {
	return "books"
}
