package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/handpose/internal/handpose"
	"github.com/ayusman/handpose/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// seedSession creates a finished session with one observation per fingers entry.
func seedSession(t *testing.T, s *store.Store, fingers ...handpose.FingerState) *store.Session {
	t.Helper()

	sess, err := s.Sessions().Create("camera:0")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	obs := make([]store.Observation, len(fingers))
	for i, f := range fingers {
		obs[i] = store.Observation{SessionID: sess.ID, FrameIndex: i, Hands: 1, Fingers: f}
	}
	if err := s.Observations().AddBatch(obs); err != nil {
		t.Fatalf("failed to add observations: %v", err)
	}
	if err := s.Sessions().Finish(sess.ID, len(fingers)); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	return sess
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s, handpose.FingerState{})

	rec := serve(handler, http.MethodGet, "/api/sessions")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(response.Sessions))
	}
	got := response.Sessions[0]
	if got.ID != sess.ID || got.Frames != 1 || got.EndedAt == "" {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionHandler_List_Empty(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	rec := serve(handler, http.MethodGet, "/api/sessions")

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Sessions == nil || len(response.Sessions) != 0 {
		t.Errorf("expected empty non-null list, got %v", response.Sessions)
	}
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s)

	t.Run("existing session", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var got sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Source != "camera:0" {
			t.Errorf("Source = %q", got.Source)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/missing")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSessionHandler_Observations(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	open := handpose.FingerState{true, true, true, true, true}
	sess := seedSession(t, s, open, handpose.FingerState{}, open)

	rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID+"/observations?limit=2&offset=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response observationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(response.Observations))
	}
	if response.Observations[0].FrameIndex != 1 || response.Observations[1].Fingers != open {
		t.Errorf("observations = %+v", response.Observations)
	}

	t.Run("invalid paging", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID+"/observations?limit=abc")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/missing/observations")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSessionHandler_Histogram(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	two := handpose.FingerState{false, true, true, false, false}
	sess := seedSession(t, s, two, two, handpose.FingerState{})

	rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID+"/histogram")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response histogramResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Raised[2] != 2 || response.Raised[0] != 1 {
		t.Errorf("Raised = %v", response.Raised)
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s, handpose.FingerState{})

	rec := serve(handler, http.MethodDelete, "/api/sessions/"+sess.ID)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = serve(handler, http.MethodGet, "/api/sessions/"+sess.ID)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = serve(handler, http.MethodDelete, "/api/sessions/"+sess.ID)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_Methods(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodPost, "/api/sessions", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/sessions/" + sess.ID, http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/sessions/" + sess.ID + "/observations", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/sessions/" + sess.ID + "/histogram", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/sessions/" + sess.ID + "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(handler, tt.method, tt.target)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
