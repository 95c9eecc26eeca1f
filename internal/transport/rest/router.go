package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/gestionviaticos/viaticos/internal/allocation"
	"github.com/gestionviaticos/viaticos/internal/auth"
	"github.com/gestionviaticos/viaticos/internal/expense"
	"github.com/gestionviaticos/viaticos/internal/extraction"
	"github.com/gestionviaticos/viaticos/internal/invoice"
	"github.com/gestionviaticos/viaticos/internal/ledger"
	"github.com/gestionviaticos/viaticos/internal/project"
	"github.com/gestionviaticos/viaticos/internal/receipt"
	"github.com/gestionviaticos/viaticos/internal/transport/middleware"
	"github.com/gestionviaticos/viaticos/internal/user"
)

// Handlers bundles every mounted handler so the wiring stays in one place.
type Handlers struct {
	Auth       *auth.Handler
	User       *user.Handler
	Expense    *expense.Handler
	Allocation *allocation.Handler
	Project    *project.Handler
	Invoice    *invoice.Handler
	Receipt    *receipt.Handler
	Extraction *extraction.Handler
	Ledger     *ledger.Handler
}

// RegisterAllRoutes mounts the API under /api/v1. Professionals get their own
// expense surface; everything that moves other people's money is admin only.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authService *auth.Service, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.Refresh)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(authService.Middleware)

			pr.Post("/auth/change-password", h.Auth.ChangePassword)

			pr.Get("/users/me", h.User.Me)
			pr.Get("/allocations/mine", h.Allocation.ListMine)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.Create)
				er.Post("/split", h.Expense.CreateSplit)
				er.Get("/mine", h.Expense.ListMine)
				er.Get("/{id}", h.Expense.Get)
				er.Patch("/{id}", h.Expense.Update)
				er.Delete("/{id}", h.Expense.Delete)
				er.Get("/split-group/{groupID}", h.Expense.GetSplitGroup)

				// Review surface
				er.Group(func(ar chi.Router) {
					ar.Use(auth.RequireAdmin)
					ar.Get("/", h.Expense.List)
					ar.Patch("/{id}/approve", h.Expense.Approve)
					ar.Patch("/{id}/reject", h.Expense.Reject)
				})
			})

			pr.Post("/receipts", h.Receipt.Upload)
			pr.Get("/receipts/{name}", h.Receipt.Serve)
			pr.Post("/receipts/extract", h.Extraction.Extract)

			pr.Get("/projects", h.Project.List)
			pr.Get("/projects/{id}", h.Project.Get)

			// Admin-only surface
			pr.Group(func(ar chi.Router) {
				ar.Use(auth.RequireAdmin)

				ar.Route("/users", func(ur chi.Router) {
					ur.Get("/", h.User.List)
					ur.Post("/", h.User.Create)
					ur.Get("/{id}", h.User.Get)
					ur.Patch("/{id}", h.User.Update)
					ur.Post("/{id}/migrate", h.User.Migrate)
				})

				ar.Route("/allocations", func(alr chi.Router) {
					alr.Post("/", h.Allocation.Create)
					alr.Get("/", h.Allocation.List)
					alr.Get("/{id}", h.Allocation.Get)
					alr.Patch("/{id}", h.Allocation.Update)
					alr.Delete("/{id}", h.Allocation.Delete)
					alr.Post("/transfer", h.Allocation.Transfer)
				})

				ar.Post("/projects", h.Project.Create)
				ar.Get("/projects/{id}/detail", h.Project.Detail)
				ar.Patch("/projects/{id}", h.Project.Update)
				ar.Delete("/projects/{id}", h.Project.Delete)

				ar.Route("/invoices", func(ir chi.Router) {
					ir.Post("/", h.Invoice.Generate)
					ir.Get("/", h.Invoice.List)
					ir.Get("/{id}", h.Invoice.Get)
					ir.Post("/{id}/annul", h.Invoice.Annul)
					ir.Post("/{id}/pay", h.Invoice.MarkPaid)
				})

				ar.Post("/bank/movements", h.Invoice.ImportMovements)
				ar.Post("/bank/reconcile", h.Invoice.Reconcile)

				ar.Post("/admin/repair", h.Ledger.Repair)
			})
		})
	})
}
