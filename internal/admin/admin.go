// Package admin exposes an operator-facing HTTP introspection surface,
// separate from the paste protocol listener.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/skip2/go-qrcode"

	"nanopaste/internal/server"
	"nanopaste/internal/storage"
)

// Handler returns the introspection router: health, a stats snapshot, and a
// QR code for a paste's retrieval URL.
func Handler(srv *server.Server, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(srv.Snapshot()); err != nil && logger != nil {
			logger.Error("encode stats", "error", err)
		}
	})

	r.Get("/pastes/{id}/qr", func(w http.ResponseWriter, req *http.Request) {
		pasteID := chi.URLParam(req, "id")
		ok, err := srv.HasPaste(req.Context(), pasteID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			if logger != nil {
				logger.Error("check paste", "id", pasteID, "error", err)
			}
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, req)
			return
		}
		png, err := qrcode.Encode(srv.PublicURL(pasteID), qrcode.Medium, 256)
		if err != nil {
			if logger != nil {
				logger.Error("encode qr", "id", pasteID, "error", err)
			}
			http.Error(w, "qr error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	})

	return r
}
