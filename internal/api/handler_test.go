//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/router"
)

type fakeState struct {
	connected bool
	session   *domain.Session
	threads   []domain.Thread
	messages  map[string][]domain.Message
	contacts  []domain.Contact
}

func (f *fakeState) Connected() bool          { return f.connected }
func (f *fakeState) Session() *domain.Session { return f.session }
func (f *fakeState) Threads() []domain.Thread { return f.threads }
func (f *fakeState) Contacts() []domain.Contact {
	return f.contacts
}

func (f *fakeState) Messages(id string) ([]domain.Message, error) {
	msgs, ok := f.messages[id]
	if !ok {
		return nil, router.ErrThreadNotFound
	}
	return msgs, nil
}

func newFakeState() *fakeState {
	return &fakeState{
		connected: true,
		session:   &domain.Session{DisplayName: "cenk", LoggedInAt: time.Unix(1, 0).UTC()},
		threads:   []domain.Thread{{ID: "t1", Peer: "rauf"}, {ID: "t2", Peer: "ayse"}},
		messages: map[string][]domain.Message{
			"t1": {{ID: "m1", ThreadID: "t1", From: "rauf", To: "cenk", Body: "hi"}},
			"t2": nil,
		},
		contacts: []domain.Contact{{Name: "rauf", State: domain.PresenceOnline}},
	}
}

func get(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Result()
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name         string
		db           Pinger
		wantStatus   int
		wantDatabase string
	}{
		{"no store", nil, http.StatusOK, "disabled"},
		{"store reachable", fakePinger{}, http.StatusOK, "ok"},
		{"store unreachable", fakePinger{err: errors.New("disk gone")}, http.StatusServiceUnavailable, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, NewRouter(newFakeState(), tt.db, nil, nil), "/health")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			var got struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got.Checks["database"] != tt.wantDatabase {
				t.Errorf("Expected database=%s, got %v", tt.wantDatabase, got.Checks)
			}
			if got.Checks["transport"] != "connected" {
				t.Errorf("Expected transport=connected, got %v", got.Checks)
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	resp := get(t, NewRouter(newFakeState(), nil, nil, nil), "/api/session")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !got.Connected || got.Session == nil || got.Session.DisplayName != "cenk" {
		t.Errorf("Unexpected session response %+v", got)
	}
}

func TestGetSessionLoggedOut(t *testing.T) {
	state := newFakeState()
	state.session = nil
	resp := get(t, NewRouter(state, nil, nil, nil), "/api/session")

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["session"] != nil {
		t.Errorf("Expected null session, got %v", got["session"])
	}
}

func TestListThreads(t *testing.T) {
	resp := get(t, NewRouter(newFakeState(), nil, nil, nil), "/api/threads")

	var got []domain.Thread
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t2" {
		t.Errorf("Unexpected threads %+v", got)
	}
}

func TestListMessages(t *testing.T) {
	h := NewRouter(newFakeState(), nil, nil, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCount  int
	}{
		{"existing thread", "/api/threads/t1/messages", http.StatusOK, 1},
		{"empty thread", "/api/threads/t2/messages", http.StatusOK, 0},
		{"unknown thread", "/api/threads/nope/messages", http.StatusNotFound, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, h, tt.path)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantCount < 0 {
				return
			}
			var got []domain.Message
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got == nil || len(got) != tt.wantCount {
				t.Errorf("Expected %d messages, got %v", tt.wantCount, got)
			}
		})
	}
}

func TestListContactsEmptyIsArray(t *testing.T) {
	state := newFakeState()
	state.contacts = nil
	resp := get(t, NewRouter(state, nil, nil, nil), "/api/contacts")

	var got []domain.Contact
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got == nil {
		t.Error("Expected [] rather than null")
	}
}

func TestCORSOnlyWhenConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	w := httptest.NewRecorder()
	NewRouter(newFakeState(), nil, []string{"http://localhost:3000"}, nil).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin, got %q", got)
	}

	w = httptest.NewRecorder()
	NewRouter(newFakeState(), nil, nil, nil).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header, got %q", got)
	}
}
