package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/projects"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/vendors"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/treasury"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler         *auth.Handler
	RBACHandler         *rbac.Handler
	VendorsHandler      *vendors.Handler
	ProjectsHandler     *projects.Handler
	ProcurementHandler  *procurement.Handler
	InvoicesHandler     *ap.Handler
	RequisitionHandler  *treasury.RequisitionHandler
	DisbursementHandler *treasury.DisbursementHandler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics

	// ReadyChecks lists backing services probed by GET /readyz.
	ReadyChecks map[string]Pinger
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		Actor:          params.RBACMiddleware.WithActor,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if len(params.ReadyChecks) > 0 {
		r.Get("/readyz", ReadyCheck(params.Logger, params.ReadyChecks))
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.RBACHandler != nil {
		r.Route("/rbac", params.RBACHandler.MountRoutes)
	}
	if params.VendorsHandler != nil {
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
	}
	if params.ProjectsHandler != nil {
		r.Route("/projects", params.ProjectsHandler.MountRoutes)
	}
	if params.ProcurementHandler != nil {
		r.Route("/purchase-orders", params.ProcurementHandler.MountRoutes)
	}
	if params.InvoicesHandler != nil {
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	}
	if params.RequisitionHandler != nil {
		r.Route("/check-requisitions", params.RequisitionHandler.MountRoutes)
	}
	if params.DisbursementHandler != nil {
		r.Route("/disbursements", params.DisbursementHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
