package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/gestionviaticos/viaticos/internal/auth"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
	"github.com/gestionviaticos/viaticos/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateUserDTO) (*userDatamodel.User, error)
	Get(ctx context.Context, id string) (*userDatamodel.User, error)
	List(ctx context.Context) ([]*Profile, error)
	Update(ctx context.Context, id string, dto UpdateUserDTO) (*userDatamodel.User, error)
	Profile(ctx context.Context, id string) (*Profile, error)
	Migrate(ctx context.Context, oldID string, dto MigrateAccountDTO) error
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
	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Create: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, sanitize(u))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, map[string]interface{}{
			"user":    sanitize(p.User),
			"summary": p.Summary,
		})
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

// Me returns the caller's own profile with the derived summary.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.Service.Profile(r.Context(), principal.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    sanitize(profile.User),
		"summary": profile.Summary,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.Service.Profile(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    sanitize(profile.User),
		"summary": profile.Summary,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto UpdateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Update: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, sanitize(u))
}

func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto MigrateAccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Migrate: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.Migrate(r.Context(), id, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "migrated", "new_id": dto.NewID})
}

// sanitize strips the password hash from API responses.
func sanitize(u *userDatamodel.User) map[string]interface{} {
	return map[string]interface{}{
		"id":                   u.ID,
		"name":                 u.Name,
		"email":                u.Email,
		"role":                 u.Role,
		"balance":              u.Balance,
		"is_active":            u.IsActive,
		"must_change_password": u.MustChangePassword,
		"created_at":           u.CreatedAt,
	}
}
