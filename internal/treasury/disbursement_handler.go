package treasury

import (
	"context"
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

// DisbursementHandler wires disbursement HTTP endpoints.
type DisbursementHandler struct {
	logger    *slog.Logger
	service   *DisbursementService
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewDisbursementHandler constructs a DisbursementHandler instance.
func NewDisbursementHandler(logger *slog.Logger, service *DisbursementService, rbac rbac.Middleware) *DisbursementHandler {
	return &DisbursementHandler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers disbursement routes.
func (h *DisbursementHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDisbursementsView, shared.PermDisbursementsEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDisbursementsEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/check-dates", h.UpdateCheckDates)
		r.Post("/{id}/release", h.ReleaseCheck)
		r.Post("/{id}/restore", h.Restore)
		r.Delete("/{id}/force", h.ForceDelete)
	})
}

type disbursementRequest struct {
	RequisitionID int64   `json:"requisition_id" validate:"required,gt=0"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	CheckNumber   string  `json:"check_number"`
	Note          string  `json:"note"`
}

type disbursementUpdateRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency"`
	CheckNumber string  `json:"check_number"`
	Note        string  `json:"note"`
}

type checkDatesRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	PrintedAt   *time.Time `json:"printed_at"`
}

type releaseRequest struct {
	CheckNumber string `json:"check_number"`
}

func (h *DisbursementHandler) List(w http.ResponseWriter, r *http.Request) {
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
	requisitionID, _ := strconv.ParseInt(q.Get("requisition_id"), 10, 64)
	filters := DisbursementFilters{
		Page:          page,
		Limit:         limit,
		VendorID:      vendorID,
		RequisitionID: requisitionID,
		Search:        q.Get("search"),
		WithTrashed:   q.Get("with_trashed") == "true",
	}
	if v := q.Get("released"); v != "" {
		released := v == "true"
		filters.Released = &released
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list disbursements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"disbursements": list, "meta": shared.NewPagination(page, limit, total)})
}

func (h *DisbursementHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid disbursement id")
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get disbursement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DisbursementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req disbursementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.Create(r.Context(), CreateDisbursementInput{
		RequisitionID: req.RequisitionID,
		Amount:        req.Amount,
		CheckNumber:   req.CheckNumber,
		Note:          req.Note,
	})
	if err != nil {
		h.respondErr(w, "create disbursement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *DisbursementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid disbursement id")
		return
	}
	var req disbursementUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err = h.service.Update(r.Context(), id, UpdateDisbursementInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		CheckNumber: req.CheckNumber,
		Note:        req.Note,
	})
	if err != nil {
		h.respondErr(w, "update disbursement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DisbursementHandler) UpdateCheckDates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid disbursement id")
		return
	}
	var req checkDatesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.service.UpdateCheckDates(r.Context(), id, req.ScheduledAt, req.PrintedAt); err != nil {
		h.respondErr(w, "update check dates", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DisbursementHandler) ReleaseCheck(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid disbursement id")
		return
	}
	var req releaseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
	}
	key := r.Header.Get("Idempotency-Key")
	if err := h.service.ReleaseCheck(r.Context(), id, req.CheckNumber, key); err != nil {
		h.respondErr(w, "release check", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DisbursementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "delete disbursement", h.service.Delete)
}

func (h *DisbursementHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "restore disbursement", h.service.Restore)
}

func (h *DisbursementHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "force delete disbursement", h.service.ForceDelete)
}

func (h *DisbursementHandler) idAction(w http.ResponseWriter, r *http.Request, label string, fn func(ctx context.Context, id int64) error) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid disbursement id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondErr(w, label, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DisbursementHandler) respondErr(w http.ResponseWriter, label string, err error) {
	respondTreasuryErr(w, h.logger, label, err)
}
