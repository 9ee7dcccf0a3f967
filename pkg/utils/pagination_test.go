package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func paginationFor(t *testing.T, query string) Pagination {
	t.Helper()

	app := fiber.New()
	var parsed Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		parsed = ParsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return parsed
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 20},
		{name: "explicit values", query: "?page=3&limit=10", wantPage: 3, wantLimit: 10},
		{name: "zero page falls back", query: "?page=0", wantPage: 1, wantLimit: 20},
		{name: "negative limit falls back", query: "?limit=-5", wantPage: 1, wantLimit: 20},
		{name: "limit capped at 100", query: "?limit=5000", wantPage: 1, wantLimit: 100},
		{name: "non-numeric values fall back", query: "?page=abc&limit=xyz", wantPage: 1, wantLimit: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paginationFor(t, tt.query)
			if p.Page != tt.wantPage {
				t.Fatalf("expected page %d, got %d", tt.wantPage, p.Page)
			}
			if p.Limit != tt.wantLimit {
				t.Fatalf("expected limit %d, got %d", tt.wantLimit, p.Limit)
			}
		})
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	first, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken() error = %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}

	second, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken() error = %v", err)
	}
	if first == second {
		t.Fatal("expected two generated tokens to differ")
	}
}
