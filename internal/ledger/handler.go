package ledger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gestionviaticos/viaticos/internal/transport"
)

type RepairAPI interface {
	Repair(ctx context.Context) (*RepairReport, error)
}

// Handler exposes the maintenance surface of the ledger. Balance mutations
// have no direct endpoints; they ride inside the domain operations.
type Handler struct {
	*transport.BaseHandler
	Service RepairAPI
}

func NewHandler(service RepairAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// Repair recomputes every cached balance from the raw records and reports
// which users drifted.
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Repair(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("balance repair completed",
		"users_scanned", report.UsersScanned,
		"drifted", len(report.Drifted))
	h.WriteJSON(w, http.StatusOK, report)
}
