package procurement

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

// Handler wires purchase order HTTP endpoints.
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

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseOrdersView, shared.PermPurchaseOrdersEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseOrdersEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Put("/{id}/vendor", h.UpdateVendor)
		r.Post("/{id}/finalize", h.Finalize)
		r.Post("/{id}/close", h.Close)
		r.Post("/{id}/cancel", h.Cancel)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/restore", h.Restore)
		r.Delete("/{id}/force", h.ForceDelete)
	})
}

type poLineRequest struct {
	Description string  `json:"description" validate:"required"`
	Qty         float64 `json:"qty" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type createPORequest struct {
	Number       string          `json:"number"`
	VendorID     int64           `json:"vendor_id" validate:"required,gt=0"`
	ProjectID    int64           `json:"project_id"`
	Currency     string          `json:"currency"`
	OrderDate    *time.Time      `json:"order_date"`
	ExpectedDate *time.Time      `json:"expected_date"`
	Note         string          `json:"note"`
	Lines        []poLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updatePORequest struct {
	ProjectID    int64           `json:"project_id"`
	Currency     string          `json:"currency"`
	OrderDate    *time.Time      `json:"order_date"`
	ExpectedDate *time.Time      `json:"expected_date"`
	Note         string          `json:"note"`
	Lines        []poLineRequest `json:"lines" validate:"omitempty,min=1,dive"`
}

func toLineInputs(lines []poLineRequest) []POLineInput {
	if lines == nil {
		return nil
	}
	inputs := make([]POLineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, POLineInput{Description: line.Description, Qty: line.Qty, UnitPrice: line.UnitPrice})
	}
	return inputs
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
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
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	filters := ListFilters{
		Page:        page,
		Limit:       limit,
		Status:      q.Get("status"),
		VendorID:    vendorID,
		ProjectID:   projectID,
		Search:      q.Get("search"),
		WithTrashed: q.Get("with_trashed") == "true",
	}
	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list purchase orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": list, "meta": shared.NewPagination(page, limit, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase order id")
		return
	}
	po, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_order": po, "lines": lines, "total": Total(lines)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	po, err := h.service.Create(r.Context(), CreatePOInput{
		Number:       req.Number,
		VendorID:     req.VendorID,
		ProjectID:    req.ProjectID,
		Currency:     req.Currency,
		OrderDate:    timeOrZero(req.OrderDate),
		ExpectedDate: timeOrZero(req.ExpectedDate),
		Note:         req.Note,
		Lines:        toLineInputs(req.Lines),
	})
	if err != nil {
		h.respondErr(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase order id")
		return
	}
	var req updatePORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err = h.service.Update(r.Context(), id, UpdatePOInput{
		ProjectID:    req.ProjectID,
		Currency:     req.Currency,
		OrderDate:    timeOrZero(req.OrderDate),
		ExpectedDate: timeOrZero(req.ExpectedDate),
		Note:         req.Note,
		Lines:        toLineInputs(req.Lines),
	})
	if err != nil {
		h.respondErr(w, "update purchase order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase order id")
		return
	}
	var req struct {
		VendorID int64 `json:"vendor_id" validate:"required,gt=0"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateVendor(r.Context(), id, req.VendorID); err != nil {
		h.respondErr(w, "update purchase order vendor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "finalize purchase order", h.service.Finalize)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "close purchase order", h.service.Close)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "cancel purchase order", h.service.Cancel)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "delete purchase order", h.service.Delete)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "restore purchase order", h.service.Restore)
}

func (h *Handler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "force delete purchase order", h.service.ForceDelete)
}

func (h *Handler) idAction(w http.ResponseWriter, r *http.Request, label string, fn func(ctx context.Context, id int64) error) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase order id")
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
