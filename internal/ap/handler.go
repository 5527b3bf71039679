package ap

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires invoice HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers invoice routes. Review endpoints are gated by the
// invoice_review scope, a separate permission from invoice data entry.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInvoicesView, shared.PermInvoicesEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInvoicesEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/restore", h.Restore)
		r.Delete("/{id}/force", h.ForceDelete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInvoiceReviewEdit))
		r.Post("/{id}/receive", h.MarkReceived)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}

type invoiceRequest struct {
	Number      string     `json:"number" validate:"required"`
	POID        int64      `json:"po_id" validate:"required,gt=0"`
	VendorID    int64      `json:"vendor_id" validate:"required,gt=0"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Currency    string     `json:"currency"`
	InvoiceDate *time.Time `json:"invoice_date"`
	DueDate     *time.Time `json:"due_date"`
	Note        string     `json:"note"`
}

type invoiceUpdateRequest struct {
	Number      string     `json:"number"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Currency    string     `json:"currency"`
	InvoiceDate *time.Time `json:"invoice_date"`
	DueDate     *time.Time `json:"due_date"`
	Note        string     `json:"note"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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
	poID, _ := strconv.ParseInt(q.Get("po_id"), 10, 64)
	filters := ListFilters{
		Page:        page,
		Limit:       limit,
		Status:      q.Get("status"),
		VendorID:    vendorID,
		POID:        poID,
		Search:      q.Get("search"),
		WithTrashed: q.Get("with_trashed") == "true",
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": list, "meta": shared.NewPagination(page, limit, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Create(r.Context(), CreateInvoiceInput{
		Number:      req.Number,
		POID:        req.POID,
		VendorID:    req.VendorID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		InvoiceDate: timeOrZero(req.InvoiceDate),
		DueDate:     timeOrZero(req.DueDate),
		Note:        req.Note,
	})
	if err != nil {
		h.respondErr(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var req invoiceUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err = h.service.Update(r.Context(), id, UpdateInvoiceInput{
		Number:      req.Number,
		Amount:      req.Amount,
		Currency:    req.Currency,
		InvoiceDate: timeOrZero(req.InvoiceDate),
		DueDate:     timeOrZero(req.DueDate),
		Note:        req.Note,
	})
	if err != nil {
		h.respondErr(w, "update invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "delete invoice", h.service.Delete)
}

func (h *Handler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "mark invoice received", h.service.MarkReceived)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "approve invoice", h.service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "reject invoice", h.service.Reject)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "restore invoice", h.service.Restore)
}

func (h *Handler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "force delete invoice", h.service.ForceDelete)
}

func (h *Handler) idAction(w http.ResponseWriter, r *http.Request, label string, fn func(ctx context.Context, id int64) error) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondErr(w, label, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, label string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrStateChanged):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, httpx.ErrForbidden), errors.Is(err, httpx.ErrUnauthorized):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(label, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
