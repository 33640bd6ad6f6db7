package expense

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brimstock/brimstock/internal/platform/httpx"
	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

// Handler wires HTTP endpoints for expenses.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the expense handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type createPayload struct {
	Category      string     `json:"category" validate:"required"`
	Amount        int64      `json:"amount" validate:"required,gt=0"`
	Description   string     `json:"description"`
	PaymentMethod string     `json:"paymentMethod"`
	SpentAt       *time.Time `json:"spentAt"`
}

type updatePayload struct {
	Category      *string    `json:"category"`
	Amount        *int64     `json:"amount" validate:"omitempty,gt=0"`
	Description   *string    `json:"description"`
	PaymentMethod *string    `json:"paymentMethod"`
	SpentAt       *time.Time `json:"spentAt"`
}

type expenseResponse struct {
	ID            int64     `json:"id"`
	Category      string    `json:"category"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	PaymentMethod string    `json:"paymentMethod"`
	Actor         string    `json:"actor"`
	SpentAt       time.Time `json:"spentAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toResponse(exp Expense) expenseResponse {
	return expenseResponse{
		ID:            exp.ID,
		Category:      exp.Category,
		Amount:        int64(exp.Amount),
		Description:   exp.Description,
		PaymentMethod: exp.PaymentMethod,
		Actor:         exp.Actor,
		SpentAt:       exp.SpentAt,
		CreatedAt:     exp.CreatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		Category:      payload.Category,
		Amount:        types.Money(payload.Amount),
		Description:   payload.Description,
		PaymentMethod: payload.PaymentMethod,
	}
	if payload.SpentAt != nil {
		input.SpentAt = *payload.SpentAt
	}
	exp, err := h.service.Create(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(exp))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var payload updatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	patch := UpdateInput{
		Category:      payload.Category,
		Description:   payload.Description,
		PaymentMethod: payload.PaymentMethod,
		SpentAt:       payload.SpentAt,
	}
	if payload.Amount != nil {
		amount := types.Money(*payload.Amount)
		patch.Amount = &amount
	}
	exp, err := h.service.Update(r.Context(), id, patch, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(exp))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	exp, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(exp))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Category: q.Get("category")}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = t.AddDate(0, 0, 1)
		}
	}
	expenses, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]expenseResponse, 0, len(expenses))
	for _, exp := range expenses {
		items = append(items, toResponse(exp))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": page})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
