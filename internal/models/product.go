package models

import "time"

// Product represents a product in the catalogue.
type Product struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	Price        float64   `json:"price" gorm:"type:float;not null"`
	Availability bool      `json:"availability" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName pins the table name regardless of GORM naming strategy.
func (Product) TableName() string {
	return "products"
}

// ProductSummary is the listing projection of a Product. GORM selects only
// these columns when it is used as the Find destination.
type ProductSummary struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Availability bool    `json:"availability"`
}

// Summary returns the listing projection of p.
func (p Product) Summary() ProductSummary {
	return ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Availability: p.Availability,
	}
}

// ProductInput carries the client-controlled fields of a product.
type ProductInput struct {
	Name         string
	Price        float64
	Availability bool
}
