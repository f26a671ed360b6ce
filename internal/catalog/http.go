package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/internal/postgrest"
	"Storefront/pkg/kit"
)

const readyTimeout = 1 * time.Second

type Server struct {
	Store *Store
	Log   *zap.Logger

	// WriterTokenHash is the bcrypt hash of the token POST /products
	// requires. Empty disables writes.
	WriterTokenHash []byte
	// WriteLimiter may be nil.
	WriteLimiter *kit.IPRateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/products", s.listProducts)
	r.Get("/categories", s.listCategories)

	r.Group(func(wr chi.Router) {
		if s.WriteLimiter != nil {
			wr.Use(s.WriteLimiter.Middleware)
		}
		wr.Use(RequireWriter(s.WriterTokenHash))
		wr.Post("/products", s.createProduct)
	})

	return r
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad category_id", map[string]any{"category_id": raw})
			return
		}
		categoryID = id
	}

	if err := s.Store.GetProductsByCat(r.Context(), categoryID); err != nil {
		writeQueryError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.Store.ProductsSnapshot())
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.GetAllCategories(r.Context()); err != nil {
		writeQueryError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.Store.CategoriesSnapshot())
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := kit.DecodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := in.Parse()
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	row, err := s.Store.AddNewProduct(r.Context(), p)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	if err := s.Store.GetAllProducts(r.Context()); err != nil {
		s.logger().Warn("refresh after insert failed", zap.Int64("product_id", row.ID), zap.Error(err))
	}

	kit.WriteJSON(w, http.StatusCreated, row)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve     *ValidationError
		apiErr *postgrest.APIError
	)
	switch {
	case errors.As(err, &ve):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", map[string]any{
			"field":  ve.Field,
			"reason": ve.Reason,
		})
	case errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "catalog backend timeout", nil)
	case errors.Is(err, postgrest.ErrUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog backend unavailable", nil)
	case errors.As(err, &apiErr):
		kit.WriteError(w, r, http.StatusBadGateway, "catalog backend error", map[string]any{
			"status": apiErr.Status,
			"code":   apiErr.Code,
		})
	default:
		kit.WriteError(w, r, http.StatusBadGateway, "catalog backend error", nil)
	}
}
