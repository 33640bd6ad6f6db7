package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brimstock/brimstock/internal/audit"
	"github.com/brimstock/brimstock/internal/catalog"
	"github.com/brimstock/brimstock/internal/expense"
	"github.com/brimstock/brimstock/internal/ledger"
	"github.com/brimstock/brimstock/internal/notify"
	"github.com/brimstock/brimstock/internal/reporting"
	"github.com/brimstock/brimstock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	LedgerHandler    *ledger.Handler
	ExpenseHandler   *expense.Handler
	AuditHandler     *audit.Handler
	NotifyHandler    *notify.Handler
	ReportingHandler *reporting.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with brimstock defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Route("/products", params.CatalogHandler.MountRoutes)
		params.LedgerHandler.MountRoutes(r)
		r.Route("/expenses", params.ExpenseHandler.MountRoutes)
		r.Route("/audit", params.AuditHandler.MountRoutes)
		r.Route("/notifications", params.NotifyHandler.MountRoutes)
		r.Route("/reports", params.ReportingHandler.MountRoutes)
	})

	return r
}
