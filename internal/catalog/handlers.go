package catalog

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

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type createPayload struct {
	Name             string `json:"name" validate:"required"`
	SKU              string `json:"sku" validate:"required"`
	Category         string `json:"category" validate:"required"`
	CostPrice        int64  `json:"costPrice" validate:"gte=0"`
	SellingPrice     int64  `json:"sellingPrice" validate:"gte=0"`
	ReorderThreshold int64  `json:"reorderThreshold" validate:"gte=0"`
}

type updatePayload struct {
	Name             *string `json:"name"`
	SKU              *string `json:"sku"`
	Category         *string `json:"category"`
	CostPrice        *int64  `json:"costPrice" validate:"omitempty,gte=0"`
	SellingPrice     *int64  `json:"sellingPrice" validate:"omitempty,gte=0"`
	ReorderThreshold *int64  `json:"reorderThreshold" validate:"omitempty,gte=0"`
}

type productResponse struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	SKU              string    `json:"sku"`
	Category         string    `json:"category"`
	CostPrice        int64     `json:"costPrice"`
	SellingPrice     int64     `json:"sellingPrice"`
	StockQuantity    int64     `json:"stockQuantity"`
	ReorderThreshold int64     `json:"reorderThreshold"`
	IsLowStock       bool      `json:"isLowStock"`
	StockValue       int64     `json:"stockValue"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toResponse(p Product) productResponse {
	return productResponse{
		ID:               p.ID,
		Name:             p.Name,
		SKU:              p.SKU,
		Category:         p.Category,
		CostPrice:        int64(p.CostPrice),
		SellingPrice:     int64(p.SellingPrice),
		StockQuantity:    p.StockQuantity,
		ReorderThreshold: p.ReorderThreshold,
		IsLowStock:       p.IsLowStock(),
		StockValue:       int64(p.StockValue()),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
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
		Name:             payload.Name,
		SKU:              payload.SKU,
		Category:         payload.Category,
		CostPrice:        types.Money(payload.CostPrice),
		SellingPrice:     types.Money(payload.SellingPrice),
		ReorderThreshold: payload.ReorderThreshold,
	}
	product, err := h.service.Create(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(product))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
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
		Name:             payload.Name,
		SKU:              payload.SKU,
		Category:         payload.Category,
		ReorderThreshold: payload.ReorderThreshold,
	}
	if payload.CostPrice != nil {
		cost := types.Money(*payload.CostPrice)
		patch.CostPrice = &cost
	}
	if payload.SellingPrice != nil {
		price := types.Money(*payload.SellingPrice)
		patch.SellingPrice = &price
	}
	product, err := h.service.Update(r.Context(), id, patch, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
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
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	products, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": page})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
