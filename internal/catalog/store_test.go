package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errServiceDown = errors.New("service down")

// flakyBackend wraps a MemBackend and fails every call while fail is set.
type flakyBackend struct {
	*MemBackend
	fail error
}

func (b *flakyBackend) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	return b.MemBackend.ListProducts(ctx, f)
}

func (b *flakyBackend) ListCategories(ctx context.Context) ([]Category, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	return b.MemBackend.ListCategories(ctx)
}

func (b *flakyBackend) InsertProduct(ctx context.Context, p NewProduct) (Product, error) {
	if b.fail != nil {
		return Product{}, b.fail
	}
	return b.MemBackend.InsertProduct(ctx, p)
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (o *recordingObserver) ObserveQuery(op string, _ time.Duration, err error) {
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func fixture() *flakyBackend {
	b := NewMemBackend()
	b.Seed(
		[]Category{{ID: 5, Name: "Toys"}, {ID: 3, Name: "Books"}},
		[]Product{
			{ID: 1, CategoryID: 3, Name: "A", Stock: 1, Price: decimal.NewFromInt(10)},
			{ID: 2, CategoryID: 5, Name: "B", Stock: 2, Price: decimal.NewFromInt(20)},
			{ID: 3, CategoryID: 3, Name: "C", Stock: 3, Price: decimal.NewFromInt(30)},
		},
	)
	return &flakyBackend{MemBackend: b}
}

func names(ps []Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func newProduct(name string) NewProduct {
	return NewProduct{CategoryID: 3, Name: name, Description: "d", Stock: 1, Price: decimal.RequireFromString("9.99")}
}

func TestNewStore_StartsEmpty(t *testing.T) {
	s := NewStore(fixture(), nil)

	if ps := s.Products.Get(); ps == nil || len(ps) != 0 {
		t.Fatalf("products=%v", ps)
	}
	if cs := s.Categories.Get(); cs == nil || len(cs) != 0 {
		t.Fatalf("categories=%v", cs)
	}
}

func TestStore_GetAllProducts(t *testing.T) {
	backend := fixture()
	backend.Seed(nil, []Product{{ID: 10, CategoryID: 5, Name: "Aardvark"}})
	s := NewStore(backend, zap.NewNop())

	if err := s.GetAllProducts(context.Background()); err != nil {
		t.Fatalf("get all: %v", err)
	}

	got := names(s.Products.Get())
	want := []string{"A", "Aardvark", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("products=%v want=%v", got, want)
	}

	seen := map[int64]bool{}
	for _, p := range s.Products.Get() {
		if seen[p.ID] {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestStore_GetAllCategories(t *testing.T) {
	s := NewStore(fixture(), zap.NewNop())

	if err := s.GetAllCategories(context.Background()); err != nil {
		t.Fatalf("get categories: %v", err)
	}

	want := []Category{{ID: 3, Name: "Books"}, {ID: 5, Name: "Toys"}}
	if got := s.Categories.Get(); !reflect.DeepEqual(got, want) {
		t.Fatalf("categories=%v want=%v", got, want)
	}
}

func TestStore_GetProductsByCat_Filters(t *testing.T) {
	s := NewStore(fixture(), zap.NewNop())

	if err := s.GetProductsByCat(context.Background(), 3); err != nil {
		t.Fatalf("by cat: %v", err)
	}

	got := s.Products.Get()
	if !reflect.DeepEqual(names(got), []string{"A", "C"}) {
		t.Fatalf("products=%v", names(got))
	}
	for _, p := range got {
		if p.CategoryID != 3 {
			t.Fatalf("row %d has category %d", p.ID, p.CategoryID)
		}
	}
}

func TestStore_GetProductsByCat_NonPositiveFetchesAll(t *testing.T) {
	ctx := context.Background()

	all := NewStore(fixture(), zap.NewNop())
	if err := all.GetAllProducts(ctx); err != nil {
		t.Fatalf("get all: %v", err)
	}

	for _, id := range []int64{0, -1, -42} {
		s := NewStore(fixture(), zap.NewNop())
		if err := s.GetProductsByCat(ctx, id); err != nil {
			t.Fatalf("by cat %d: %v", id, err)
		}
		if !reflect.DeepEqual(s.Products.Get(), all.Products.Get()) {
			t.Fatalf("by cat %d = %v, want %v", id, names(s.Products.Get()), names(all.Products.Get()))
		}
	}
}

func TestStore_GetProductsByCat_UnknownCategoryIsEmpty(t *testing.T) {
	s := NewStore(fixture(), zap.NewNop())

	if err := s.GetProductsByCat(context.Background(), 99); err != nil {
		t.Fatalf("by cat: %v", err)
	}
	if ps := s.Products.Get(); ps == nil || len(ps) != 0 {
		t.Fatalf("products=%v", ps)
	}
}

func TestStore_FailedReadsKeepPriorValue(t *testing.T) {
	ctx := context.Background()
	backend := fixture()
	s := NewStore(backend, zap.NewNop())

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	prevProducts := s.Products.Get()
	prevCategories := s.Categories.Get()

	notified := 0
	unsub := s.Products.Subscribe(func([]Product) { notified++ })
	defer unsub()

	backend.fail = errServiceDown

	reads := []struct {
		name string
		call func() error
	}{
		{"all products", func() error { return s.GetAllProducts(ctx) }},
		{"categories", func() error { return s.GetAllCategories(ctx) }},
		{"by category", func() error { return s.GetProductsByCat(ctx, 5) }},
		{"by category fallback", func() error { return s.GetProductsByCat(ctx, 0) }},
	}

	for _, r := range reads {
		t.Run(r.name, func(t *testing.T) {
			err := r.call()

			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("expected *QueryError, got %v", err)
			}
			if !errors.Is(err, errServiceDown) {
				t.Fatalf("cause lost: %v", err)
			}
			if !reflect.DeepEqual(s.Products.Get(), prevProducts) {
				t.Fatalf("products overwritten: %v", names(s.Products.Get()))
			}
			if !reflect.DeepEqual(s.Categories.Get(), prevCategories) {
				t.Fatalf("categories overwritten: %v", s.Categories.Get())
			}
		})
	}

	if notified != 1 {
		t.Fatalf("subscribers notified %d times, want only the initial call", notified)
	}
}

func TestStore_AddNewProduct(t *testing.T) {
	s := NewStore(fixture(), zap.NewNop())

	row, err := s.AddNewProduct(context.Background(), newProduct("Lamp"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if row.ID == 0 || row.Name != "Lamp" || row.CategoryID != 3 {
		t.Fatalf("row=%+v", row)
	}
	if !row.Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("price=%s", row.Price)
	}
	if len(s.Products.Get()) != 0 {
		t.Fatalf("insert must not touch the products container")
	}
}

func TestStore_AddNewProduct_TwiceInsertsTwoRows(t *testing.T) {
	ctx := context.Background()
	s := NewStore(fixture(), zap.NewNop())

	first, err := s.AddNewProduct(ctx, newProduct("Lamp"))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := s.AddNewProduct(ctx, newProduct("Lamp"))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("expected distinct rows, both have id %d", first.ID)
	}

	if err := s.GetProductsByCat(ctx, 3); err != nil {
		t.Fatalf("by cat: %v", err)
	}
	lamps := 0
	for _, p := range s.Products.Get() {
		if p.Name == "Lamp" {
			lamps++
		}
	}
	if lamps != 2 {
		t.Fatalf("lamps=%d", lamps)
	}
}

func TestStore_AddNewProduct_FailureReturnsZero(t *testing.T) {
	backend := fixture()
	backend.fail = errServiceDown
	s := NewStore(backend, zap.NewNop())

	row, err := s.AddNewProduct(context.Background(), newProduct("Lamp"))
	if !errors.Is(err, errServiceDown) {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(row, Product{}) {
		t.Fatalf("expected zero Product, got %+v", row)
	}
}

func TestStore_AddNewProduct_InvalidInputSkipsBackend(t *testing.T) {
	obs := &recordingObserver{}
	s := NewStore(fixture(), zap.NewNop())
	s.Observer = obs

	_, err := s.AddNewProduct(context.Background(), NewProduct{Name: "x"})

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "category_id" {
		t.Fatalf("err=%v", err)
	}
	if len(obs.ops) != 0 {
		t.Fatalf("backend was called: %v", obs.ops)
	}
}

func TestStore_ObserverSeesEveryCall(t *testing.T) {
	ctx := context.Background()
	backend := fixture()
	obs := &recordingObserver{}
	s := NewStore(backend, zap.NewNop())
	s.Observer = obs

	_ = s.GetProductsByCat(ctx, 3)
	_ = s.GetProductsByCat(ctx, 0)
	_ = s.GetAllCategories(ctx)
	backend.fail = errServiceDown
	_, _ = s.AddNewProduct(ctx, newProduct("x"))

	want := []string{OpGetProductsByCat, OpGetAllProducts, OpGetAllCategories, OpAddNewProduct}
	if !reflect.DeepEqual(obs.ops, want) {
		t.Fatalf("ops=%v want=%v", obs.ops, want)
	}
	if obs.errs[3] == nil || obs.errs[0] != nil {
		t.Fatalf("errs=%v", obs.errs)
	}
}

func TestStore_CallsAreBoundedByTimeout(t *testing.T) {
	s := NewStore(blockingBackend{NewMemBackend()}, zap.NewNop())
	s.Timeout = 20 * time.Millisecond

	err := s.GetAllCategories(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := NewStore(fixture(), zap.NewNop())
	if err := s.GetAllProducts(context.Background()); err != nil {
		t.Fatalf("get all: %v", err)
	}

	snap := s.ProductsSnapshot()
	snap[0].Name = "mutated"

	if s.Products.Get()[0].Name == "mutated" {
		t.Fatalf("snapshot aliases the container")
	}
}

type blockingBackend struct{ *MemBackend }

func (blockingBackend) ListCategories(ctx context.Context) ([]Category, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
