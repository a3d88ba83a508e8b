package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"nanopaste/internal/id"
	"nanopaste/internal/server"
	"nanopaste/internal/storage"
)

type memStore struct {
	mu     sync.RWMutex
	pastes map[string][]byte
}

func (m *memStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pastes[id]
	return ok, nil
}

func (m *memStore) Get(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.pastes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return content, nil
}

func (m *memStore) Put(ctx context.Context, id string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pastes[id]; ok {
		return storage.ErrExists
	}
	m.pastes[id] = content
	return nil
}

func (m *memStore) Close() error { return nil }

func newAdminHandler(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	store := &memStore{pastes: make(map[string][]byte)}
	srv, err := server.New(server.Config{
		Store: store,
		IDs:   id.New(store),
		Host:  "paste.test",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return Handler(srv, nil), store
}

func TestHealthz(t *testing.T) {
	h, _ := newAdminHandler(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestStats(t *testing.T) {
	h, _ := newAdminHandler(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status %d", rr.Code)
	}
	var st server.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.OpenConnections != 0 || st.PastesCreated != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestPasteQR(t *testing.T) {
	h, store := newAdminHandler(t)
	if err := store.Put(context.Background(), "xK3f", []byte("hello")); err != nil {
		t.Fatalf("seed paste: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pastes/xK3f/qr", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("qr status %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("empty png")
	}
}

func TestPasteQRMissing(t *testing.T) {
	h, _ := newAdminHandler(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pastes/none/qr", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rr.Code)
	}
}
