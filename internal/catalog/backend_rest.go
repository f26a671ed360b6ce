package catalog

import (
	"context"
	"fmt"

	"Storefront/internal/postgrest"
)

// RESTBackend reads and writes through the hosted service's REST API.
type RESTBackend struct {
	client *postgrest.Client
}

func NewRESTBackend(c *postgrest.Client) *RESTBackend {
	return &RESTBackend{client: c}
}

func (b *RESTBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}

func (b *RESTBackend) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := postgrest.From(productTable)
	if f.CategoryID > 0 {
		q.Eq("category_id", f.CategoryID)
	}
	q.Order("product_name", true)

	var out []Product
	if err := b.client.Select(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *RESTBackend) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := b.client.Select(ctx, postgrest.From(categoryTable).Order("category_name", true), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *RESTBackend) InsertProduct(ctx context.Context, p NewProduct) (Product, error) {
	var out []Product
	if err := b.client.Insert(ctx, productTable, []NewProduct{p}, &out); err != nil {
		return Product{}, err
	}
	if len(out) != 1 {
		return Product{}, fmt.Errorf("%w: insert returned %d rows", postgrest.ErrBadResponse, len(out))
	}
	return out[0], nil
}
