package models

type Author struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"index;not null"`
}

func (Author) TableName() string {
	return "authors"
}
