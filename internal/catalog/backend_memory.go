package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemBackend keeps rows in memory. It orders and filters the way the remote
// service does and hands out increasing ids on insert.
type MemBackend struct {
	mu         sync.RWMutex
	lastID     int64
	products   []Product
	categories []Category
}

func NewMemBackend() *MemBackend {
	return &MemBackend{}
}

// NewDemoBackend returns a MemBackend with a handful of rows for local runs.
func NewDemoBackend() *MemBackend {
	b := NewMemBackend()
	b.Seed(
		[]Category{{ID: 1, Name: "Peripherals"}, {ID: 2, Name: "Audio"}},
		[]Product{
			{ID: 1, CategoryID: 1, Name: "Keyboard", Description: "Mechanical, 87 keys", Stock: 12, Price: decimal.RequireFromString("49.90")},
			{ID: 2, CategoryID: 1, Name: "Mouse", Description: "Wireless", Stock: 30, Price: decimal.RequireFromString("19.90")},
			{ID: 3, CategoryID: 2, Name: "Headphones", Description: "Closed back", Stock: 5, Price: decimal.RequireFromString("89.00")},
		},
	)
	return b
}

// Seed appends rows as-is, keeping their ids.
func (b *MemBackend) Seed(categories []Category, products []Product) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.categories = append(b.categories, categories...)
	b.products = append(b.products, products...)
	for _, p := range products {
		b.lastID = max(b.lastID, p.ID)
	}
}

func (b *MemBackend) Ping(ctx context.Context) error { return ctx.Err() }

func (b *MemBackend) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Product, 0, len(b.products))
	for _, p := range b.products {
		if f.CategoryID > 0 && p.CategoryID != f.CategoryID {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *MemBackend) ListCategories(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Category, len(b.categories))
	copy(out, b.categories)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *MemBackend) InsertProduct(ctx context.Context, p NewProduct) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	row := Product{
		ID:          b.lastID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Stock:       p.Stock,
		Price:       p.Price,
	}
	b.products = append(b.products, row)
	return row, nil
}
