package model

import "time"

type BookCategory string

const (
	CategoryDesign      BookCategory = "Design"
	CategoryDevelopment BookCategory = "Development"
	CategoryFrameworks  BookCategory = "Frameworks"
	CategoryDevOps      BookCategory = "DevOps"
	CategoryApps        BookCategory = "Apps"
)

// Valid は定義済みカテゴリかどうか。
func (c BookCategory) Valid() bool {
	switch c {
	case CategoryDesign, CategoryDevelopment, CategoryFrameworks, CategoryDevOps, CategoryApps:
		return true
	default:
		return false
	}
}

type Book struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Author      string       `gorm:"type:varchar(255);not null;index" json:"author"`
	Price       int64        `gorm:"not null" json:"price"`
	Category    BookCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	InStock     bool         `gorm:"not null;default:true" json:"inStock"`
	Image       string       `gorm:"type:varchar(1024);not null" json:"image"`
	CreatedAt   time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
