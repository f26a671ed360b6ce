//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8082")

type product struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Name       string `json:"product_name"`
}

type category struct {
	ID   int64  `json:"id"`
	Name string `json:"category_name"`
}

func TestSystem_E2E_AgainstBackend(t *testing.T) {
	writer := os.Getenv("E2E_WRITER_TOKEN")
	if writer == "" {
		t.Skip("E2E_WRITER_TOKEN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var categories []category
	doJSON(t, http.MethodGet, baseURL+"/categories", "", nil, &categories, http.StatusOK)
	if len(categories) == 0 {
		t.Fatalf("expected seeded categories")
	}
	for i := 1; i < len(categories); i++ {
		if categories[i-1].Name > categories[i].Name {
			t.Fatalf("categories not ordered by name: %v", categories)
		}
	}
	catID := categories[0].ID

	name := fmt.Sprintf("e2e product %d", time.Now().UnixNano())
	body := map[string]any{
		"category_id":         catID,
		"product_name":        name,
		"product_description": "inserted by the e2e suite",
		"product_stock":       "3",
		"product_price":       "9.90",
	}

	var first, second product
	doJSON(t, http.MethodPost, baseURL+"/products", writer, body, &first, http.StatusCreated)
	doJSON(t, http.MethodPost, baseURL+"/products", writer, body, &second, http.StatusCreated)
	if first.ID == 0 || first.ID == second.ID {
		t.Fatalf("expected two distinct rows, got %d and %d", first.ID, second.ID)
	}

	var byCat []product
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/products?category_id=%d", baseURL, catID), "", nil, &byCat, http.StatusOK)
	seen := 0
	for _, p := range byCat {
		if p.CategoryID != catID {
			t.Fatalf("product %d has category %d, want %d", p.ID, p.CategoryID, catID)
		}
		if p.Name == name {
			seen++
		}
	}
	if seen != 2 {
		t.Fatalf("inserted rows visible=%d", seen)
	}

	if os.Getenv("E2E_RESTART") == "1" {
		restartContainer(t, ctx, "storefront")
		waitReady(t, ctx, baseURL+"/readyz")
		doJSON(t, http.MethodGet, baseURL+"/products", "", nil, &byCat, http.StatusOK)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == http.StatusOK {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
