package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

const (
	OpGetAllProducts     = "get_all_products"
	OpGetAllCategories   = "get_all_categories"
	OpGetProductsByCat   = "get_products_by_category"
	OpAddNewProduct      = "add_new_product"
	defaultQueryDeadline = 5 * time.Second
)

// Backend is the remote relational service the store reads from and
// inserts into. Listings come back ordered by name ascending.
type Backend interface {
	Ping(ctx context.Context) error
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	InsertProduct(ctx context.Context, p NewProduct) (Product, error)
}

// QueryObserver is told about every backend call the store makes.
type QueryObserver interface {
	ObserveQuery(op string, d time.Duration, err error)
}

// QueryError reports a failed backend call. Err is whatever the backend
// returned: *postgrest.APIError, postgrest.ErrUnavailable, *pgconn.PgError...
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// Store keeps the last fetched products and categories. Failed calls leave
// the containers untouched.
type Store struct {
	Products   *Observable[[]Product]
	Categories *Observable[[]Category]

	// Observer may be nil.
	Observer QueryObserver
	// Timeout bounds each backend call; zero means defaultQueryDeadline.
	Timeout time.Duration

	backend Backend
	log     *zap.Logger
}

func NewStore(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		Products:   NewObservable([]Product{}),
		Categories: NewObservable([]Category{}),
		backend:    backend,
		log:        log,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// GetAllProducts replaces Products with every product ordered by name.
func (s *Store) GetAllProducts(ctx context.Context) error {
	rows, err := s.listProducts(ctx, OpGetAllProducts, ProductFilter{})
	if err != nil {
		s.log.Error("get all products failed", zap.Error(err))
		return err
	}
	s.Products.Set(rows)
	return nil
}

// GetAllCategories replaces Categories with every category ordered by name.
func (s *Store) GetAllCategories(ctx context.Context) error {
	var rows []Category
	err := s.call(ctx, OpGetAllCategories, func(ctx context.Context) error {
		var err error
		rows, err = s.backend.ListCategories(ctx)
		return err
	})
	if err != nil {
		s.log.Error("get all categories failed", zap.Error(err))
		return err
	}
	if rows == nil {
		rows = []Category{}
	}
	s.Categories.Set(rows)
	return nil
}

// GetProductsByCat replaces Products with the products of one category.
// A categoryID of zero or less falls back to GetAllProducts.
func (s *Store) GetProductsByCat(ctx context.Context, categoryID int64) error {
	if categoryID <= 0 {
		return s.GetAllProducts(ctx)
	}

	rows, err := s.listProducts(ctx, OpGetProductsByCat, ProductFilter{CategoryID: categoryID})
	if err != nil {
		s.log.Error("get products by category failed", zap.Int64("category_id", categoryID), zap.Error(err))
		return err
	}
	s.Products.Set(rows)
	return nil
}

// AddNewProduct inserts p and returns the row as stored by the service.
// It does not touch Products; refresh it if the new row should show up.
func (s *Store) AddNewProduct(ctx context.Context, p NewProduct) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	var row Product
	err := s.call(ctx, OpAddNewProduct, func(ctx context.Context) error {
		var err error
		row, err = s.backend.InsertProduct(ctx, p)
		return err
	})
	if err != nil {
		s.log.Error("add new product failed",
			zap.Int64("category_id", p.CategoryID),
			zap.String("product_name", p.Name),
			zap.Error(err),
		)
		return Product{}, err
	}
	return row, nil
}

// Refresh loads categories then products. Both are attempted even if the
// first fails.
func (s *Store) Refresh(ctx context.Context) error {
	return errors.Join(s.GetAllCategories(ctx), s.GetAllProducts(ctx))
}

func (s *Store) ProductsSnapshot() []Product {
	return slices.Clone(s.Products.Get())
}

func (s *Store) CategoriesSnapshot() []Category {
	return slices.Clone(s.Categories.Get())
}

func (s *Store) listProducts(ctx context.Context, op string, f ProductFilter) ([]Product, error) {
	var rows []Product
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		rows, err = s.backend.ListProducts(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Product{}
	}
	return rows, nil
}

func (s *Store) call(parent context.Context, op string, fn func(ctx context.Context) error) error {
	d := s.Timeout
	if d <= 0 {
		d = defaultQueryDeadline
	}

	start := time.Now()
	err := withTimeout(parent, d, fn)
	if s.Observer != nil {
		s.Observer.ObserveQuery(op, time.Since(start), err)
	}
	if err != nil {
		return &QueryError{Op: op, Err: err}
	}
	return nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
