package invoice

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	invoiceDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/invoice"
	movementDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/movement"
	"github.com/gestionviaticos/viaticos/internal/transport"
)

type ServiceAPI interface {
	Generate(ctx context.Context, dto GenerateInvoiceDTO) (*invoiceDatamodel.Invoice, error)
	Get(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error)
	List(ctx context.Context, status string) ([]*invoiceDatamodel.Invoice, error)
	Annul(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error)
	MarkPaid(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error)
	ImportMovements(ctx context.Context, csv io.Reader) ([]*movementDatamodel.Movement, error)
	Reconcile(ctx context.Context, dto ReconcileDTO) (*ReconcileReport, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var dto GenerateInvoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Generate: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.Service.Generate(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"invoices": invoices})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.invoiceID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	inv, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) Annul(w http.ResponseWriter, r *http.Request) {
	id, err := h.invoiceID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	inv, err := h.Service.Annul(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := h.invoiceID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	inv, err := h.Service.MarkPaid(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, inv)
}

// ImportMovements accepts a multipart upload with a "statement" CSV file.
func (h *Handler) ImportMovements(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("statement")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "statement file is required")
		return
	}
	defer file.Close()

	movements, err := h.Service.ImportMovements(r.Context(), file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"imported":  len(movements),
		"movements": movements,
	})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var dto ReconcileDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	report, err := h.Service.Reconcile(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) invoiceID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
