package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	productTable  = "product"
	categoryTable = "category"
)

type Product struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"product_name"`
	Description string          `json:"product_description"`
	Stock       int64           `json:"product_stock"`
	Price       decimal.Decimal `json:"product_price"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"category_name"`
}

// ProductFilter narrows a product listing. A zero CategoryID lists everything.
type ProductFilter struct {
	CategoryID int64
}

// NewProduct is the validated input of an insert.
type NewProduct struct {
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"product_name"`
	Description string          `json:"product_description"`
	Stock       int64           `json:"product_stock"`
	Price       decimal.Decimal `json:"product_price"`
}

func (p NewProduct) Validate() error {
	switch {
	case p.CategoryID <= 0:
		return &ValidationError{Field: "category_id", Reason: "must be a positive integer"}
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "product_name", Reason: "required"}
	case p.Stock < 0:
		return &ValidationError{Field: "product_stock", Reason: "must not be negative"}
	case p.Price.IsNegative():
		return &ValidationError{Field: "product_price", Reason: "must not be negative"}
	}
	return nil
}
