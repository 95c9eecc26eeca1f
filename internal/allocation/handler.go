package allocation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/gestionviaticos/viaticos/internal/auth"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	"github.com/gestionviaticos/viaticos/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateAllocationDTO) (*allocationDatamodel.Allocation, error)
	Get(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error)
	List(ctx context.Context, filter ListFilter) ([]*allocationDatamodel.Allocation, error)
	ListForUser(ctx context.Context, userID string) ([]*allocationDatamodel.Allocation, error)
	Edit(ctx context.Context, id int64, dto EditAllocationDTO) (*allocationDatamodel.Allocation, error)
	Delete(ctx context.Context, id int64) error
	Transfer(ctx context.Context, dto TransferDTO) ([]*allocationDatamodel.Allocation, error)
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateAllocationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Create: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alloc, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, alloc)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.allocationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid allocation ID")
		return
	}

	alloc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, alloc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{UserID: r.URL.Query().Get("user_id")}

	if projectStr := r.URL.Query().Get("project_id"); projectStr != "" {
		if pid, err := strconv.ParseInt(projectStr, 10, 64); err == nil {
			filter.ProjectID = &pid
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	allocations, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"allocations": allocations,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})
}

// ListMine returns the caller's own allocations.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	allocations, err := h.Service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"allocations": allocations})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.allocationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid allocation ID")
		return
	}

	var dto EditAllocationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Update: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alloc, err := h.Service.Edit(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, alloc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.allocationID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid allocation ID")
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var dto TransferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Transfer: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	legs, err := h.Service.Transfer(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"allocations": legs})
}

func (h *Handler) allocationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
