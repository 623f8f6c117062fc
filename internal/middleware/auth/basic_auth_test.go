package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		password string
		setAuth  func(r *http.Request)
		wantCode int
	}{
		{"valid", "secret", func(r *http.Request) { r.SetBasicAuth("admin", "secret") }, http.StatusNoContent},
		{"wrong password", "secret", func(r *http.Request) { r.SetBasicAuth("admin", "nope") }, http.StatusUnauthorized},
		{"wrong user", "secret", func(r *http.Request) { r.SetBasicAuth("root", "secret") }, http.StatusUnauthorized},
		{"no header", "secret", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer", "secret", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x") }, http.StatusUnauthorized},
		{"empty configured password", "", func(r *http.Request) { r.SetBasicAuth("admin", "") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/report/excel", nil)
			tt.setAuth(req)
			rr := httptest.NewRecorder()

			BasicAuth("admin", tt.password)(ok).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}
