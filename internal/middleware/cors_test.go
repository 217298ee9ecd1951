package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"listed origin", []string{"http://a.test"}, http.MethodGet, "http://a.test", http.StatusOK, "http://a.test"},
		{"unlisted origin", []string{"http://a.test"}, http.MethodGet, "http://b.test", http.StatusOK, ""},
		{"wildcard", []string{"*"}, http.MethodGet, "http://b.test", http.StatusOK, "http://b.test"},
		{"preflight", []string{"*"}, http.MethodOptions, "http://b.test", http.StatusNoContent, "http://b.test"},
		{"write rejected", []string{"*"}, http.MethodPost, "http://b.test", http.StatusMethodNotAllowed, "http://b.test"},
		{"no origin header", []string{"*"}, http.MethodGet, "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/threads", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			CORS(tt.allowed)(ok).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Expected origin %q, got %q", tt.wantOrigin, got)
			}
		})
	}
}
