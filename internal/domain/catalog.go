package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"notblank,max=200"`
	CreatedAt time.Time `json:"createdDate"`
	UpdatedAt time.Time `json:"updatedDate"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name" validate:"notblank,max=200"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	// Price is stored as NUMERIC(12,2).
	Price      decimal.Decimal `json:"price" validate:"gte=0,lt=10000000000"`
	CategoryID int64           `json:"categoryId" validate:"gt=0"`
	CreatedAt  time.Time       `json:"createdDate"`
	UpdatedAt  time.Time       `json:"updatedDate"`
}

// ProductFilter narrows product listings. Limit <= 0 means no limit.
type ProductFilter struct {
	CategoryID *int64
	Search     string
	Limit      int
	Offset     int
}
