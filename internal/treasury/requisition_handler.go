package treasury

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RequisitionHandler wires check requisition HTTP endpoints.
type RequisitionHandler struct {
	logger    *slog.Logger
	service   *RequisitionService
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewRequisitionHandler constructs a RequisitionHandler instance.
func NewRequisitionHandler(logger *slog.Logger, service *RequisitionService, rbac rbac.Middleware) *RequisitionHandler {
	return &RequisitionHandler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers requisition routes.
func (h *RequisitionHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCheckRequisitionsView, shared.PermCheckRequisitionsEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCheckRequisitionsEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/submit", h.Submit)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/restore", h.Restore)
		r.Delete("/{id}/force", h.ForceDelete)
	})
}

type requisitionRequest struct {
	InvoiceID *int64  `json:"invoice_id"`
	VendorID  int64   `json:"vendor_id" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency"`
	Purpose   string  `json:"purpose" validate:"required"`
	Note      string  `json:"note"`
}

type reviewRequest struct {
	Note string `json:"note"`
}

func (h *RequisitionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}
	vendorID, _ := strconv.ParseInt(q.Get("vendor_id"), 10, 64)
	filters := RequisitionFilters{
		Page:        page,
		Limit:       limit,
		Status:      q.Get("status"),
		VendorID:    vendorID,
		Search:      q.Get("search"),
		WithTrashed: q.Get("with_trashed") == "true",
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list check requisitions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"check_requisitions": list, "meta": shared.NewPagination(page, limit, total)})
}

func (h *RequisitionHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition id")
		return
	}
	cr, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get check requisition", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cr)
}

func (h *RequisitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req requisitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cr, err := h.service.Create(r.Context(), CreateRequisitionInput{
		InvoiceID: req.InvoiceID,
		VendorID:  req.VendorID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Purpose:   req.Purpose,
		Note:      req.Note,
	})
	if err != nil {
		h.respondErr(w, "create check requisition", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cr)
}

func (h *RequisitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition id")
		return
	}
	var req requisitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err = h.service.Update(r.Context(), id, UpdateRequisitionInput{
		InvoiceID: req.InvoiceID,
		VendorID:  req.VendorID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Purpose:   req.Purpose,
		Note:      req.Note,
	})
	if err != nil {
		h.respondErr(w, "update check requisition", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RequisitionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, "submit check requisition", h.service.Submit)
}

func (h *RequisitionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, "approve check requisition", h.service.Approve)
}

func (h *RequisitionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, "reject check requisition", h.service.Reject)
}

func (h *RequisitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "delete check requisition", h.service.Delete)
}

func (h *RequisitionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "restore check requisition", h.service.Restore)
}

func (h *RequisitionHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "force delete check requisition", h.service.ForceDelete)
}

func (h *RequisitionHandler) reviewAction(w http.ResponseWriter, r *http.Request, label string, fn func(ctx context.Context, id int64, note string) error) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition id")
		return
	}
	var req reviewRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
	}
	if err := fn(r.Context(), id, req.Note); err != nil {
		h.respondErr(w, label, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RequisitionHandler) idAction(w http.ResponseWriter, r *http.Request, label string, fn func(ctx context.Context, id int64) error) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondErr(w, label, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RequisitionHandler) respondErr(w http.ResponseWriter, label string, err error) {
	respondTreasuryErr(w, h.logger, label, err)
}

func respondTreasuryErr(w http.ResponseWriter, logger *slog.Logger, label string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrStateChanged):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, httpx.ErrForbidden), errors.Is(err, httpx.ErrUnauthorized):
		httpx.RespondError(w, err)
	default:
		logger.Error(label, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
