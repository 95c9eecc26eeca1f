package receipt

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/gestionviaticos/viaticos/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Storage Storage
}

func NewHandler(storage Storage, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Storage:     storage,
	}
}

// Upload accepts a multipart "receipt" file and returns the stored URL for
// the expense submission that follows.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	url, err := h.Storage.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("receipt stored", "url", url, "filename", header.Filename)
	h.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Serve streams a stored receipt back.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, err := h.Storage.Open(r.Context(), name)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		h.Logger.Error("failed to stream receipt", "name", name, "error", err)
	}
}
