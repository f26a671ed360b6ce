package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FormValue holds a numeric field that may arrive as a JSON number or as a
// string, which is what HTML forms post. Conversion happens in Parse.
type FormValue struct {
	raw string
	set bool
}

func FormString(s string) FormValue {
	return FormValue{raw: strings.TrimSpace(s), set: true}
}

func (v *FormValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = FormValue{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FormString(s)
		return nil
	}
	*v = FormValue{raw: string(b), set: true}
	return nil
}

func (v FormValue) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

func (v FormValue) empty() bool { return !v.set || v.raw == "" }

// ProductInput is the loosely typed insert payload coming from a form or a
// JSON client.
type ProductInput struct {
	CategoryID  FormValue `json:"category_id"`
	Name        string    `json:"product_name"`
	Description string    `json:"product_description"`
	Stock       FormValue `json:"product_stock"`
	Price       FormValue `json:"product_price"`
}

// Parse converts the numeric fields and validates the result. Name and
// description pass through unchanged.
func (in ProductInput) Parse() (NewProduct, error) {
	categoryID, err := parseInt("category_id", in.CategoryID)
	if err != nil {
		return NewProduct{}, err
	}
	stock, err := parseInt("product_stock", in.Stock)
	if err != nil {
		return NewProduct{}, err
	}
	price, err := parseDecimal("product_price", in.Price)
	if err != nil {
		return NewProduct{}, err
	}

	p := NewProduct{
		CategoryID:  categoryID,
		Name:        in.Name,
		Description: in.Description,
		Stock:       stock,
		Price:       price,
	}
	if err := p.Validate(); err != nil {
		return NewProduct{}, err
	}
	return p, nil
}

func parseDecimal(field string, v FormValue) (decimal.Decimal, error) {
	if v.empty() {
		return decimal.Decimal{}, &ValidationError{Field: field, Reason: "required"}
	}
	d, err := decimal.NewFromString(v.raw)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: field, Reason: "must be a number"}
	}
	return d, nil
}

func parseInt(field string, v FormValue) (int64, error) {
	d, err := parseDecimal(field, v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	if d.Abs().GreaterThan(maxInt64) {
		return 0, &ValidationError{Field: field, Reason: "out of range"}
	}
	return d.IntPart(), nil
}
