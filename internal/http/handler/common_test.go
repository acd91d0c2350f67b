package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
	}{
		{"defaults", "", 1, 20},
		{"explicit values", "?page=3&page_size=50", 3, 50},
		{"size capped", "?page=2&page_size=1000", 2, 200},
		{"size at cap", "?page_size=200", 1, 200},
		{"garbage falls back", "?page=-4&page_size=abc", 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/pedidos"+tt.query, nil)
			page, pageSize := pagination(r)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, pageSize)
		})
	}
}
