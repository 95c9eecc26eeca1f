package extraction

import (
	"log/slog"
	"net/http"

	"github.com/gestionviaticos/viaticos/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Extractor Extractor
}

func NewHandler(extractor Extractor, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Extractor:   extractor,
	}
}

// Extract accepts a multipart "receipt" file and returns the prefill
// suggestions. Nothing is persisted here.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Extractor.Extract(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
