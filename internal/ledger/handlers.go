package ledger

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

// Handler wires HTTP endpoints for the transaction recorder.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.handleListSales)
		r.Post("/", h.handleCreateSale)
		r.Get("/{id}", h.handleGetSale)
		r.Patch("/{id}", h.handleUpdateSale)
		r.Delete("/{id}", h.handleDeleteSale)
	})
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", h.handleListPurchases)
		r.Post("/", h.handleCreatePurchase)
		r.Get("/{id}", h.handleGetPurchase)
		r.Patch("/{id}", h.handleUpdatePurchase)
		r.Delete("/{id}", h.handleDeletePurchase)
	})
	r.Route("/adjustments", func(r chi.Router) {
		r.Get("/", h.handleListAdjustments)
		r.Post("/", h.handlePostAdjustment)
	})
}

type salePayload struct {
	ProductID     int64  `json:"productId" validate:"required,gt=0"`
	Quantity      int64  `json:"quantity" validate:"required,gte=1"`
	UnitPrice     int64  `json:"unitPrice" validate:"gte=0"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,oneof=paid pending"`
}

type saleUpdatePayload struct {
	Quantity      *int64  `json:"quantity" validate:"omitempty,gte=1"`
	UnitPrice     *int64  `json:"unitPrice" validate:"omitempty,gte=0"`
	PaymentMethod *string `json:"paymentMethod"`
	PaymentStatus *string `json:"paymentStatus" validate:"omitempty,oneof=paid pending"`
}

type purchasePayload struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gte=1"`
	UnitCost  int64  `json:"unitCost" validate:"gte=0"`
	Supplier  string `json:"supplier" validate:"required"`
}

type purchaseUpdatePayload struct {
	Quantity *int64  `json:"quantity" validate:"omitempty,gte=1"`
	UnitCost *int64  `json:"unitCost" validate:"omitempty,gte=0"`
	Supplier *string `json:"supplier"`
}

type adjustmentPayload struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Delta     int64  `json:"delta" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type snapshotResponse struct {
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Price int64  `json:"price"`
}

type saleResponse struct {
	ID            int64            `json:"id"`
	ProductID     int64            `json:"productId"`
	Product       snapshotResponse `json:"product"`
	Quantity      int64            `json:"quantity"`
	UnitPrice     int64            `json:"unitPrice"`
	TotalPrice    int64            `json:"totalPrice"`
	PaymentMethod string           `json:"paymentMethod"`
	PaymentStatus string           `json:"paymentStatus"`
	Actor         string           `json:"actor"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

type purchaseResponse struct {
	ID         int64            `json:"id"`
	ProductID  int64            `json:"productId"`
	Product    snapshotResponse `json:"product"`
	Quantity   int64            `json:"quantity"`
	UnitCost   int64            `json:"unitCost"`
	TotalCost  int64            `json:"totalCost"`
	Supplier   string           `json:"supplier"`
	Actor      string           `json:"actor"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type adjustmentResponse struct {
	ID         int64            `json:"id"`
	ProductID  int64            `json:"productId"`
	Product    snapshotResponse `json:"product"`
	Delta      int64            `json:"delta"`
	Reason     string           `json:"reason"`
	Actor      string           `json:"actor"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func toSaleResponse(s Sale) saleResponse {
	return saleResponse{
		ID:            s.ID,
		ProductID:     s.ProductID,
		Product:       snapshotResponse{Name: s.Snapshot.Name, SKU: s.Snapshot.SKU, Price: int64(s.Snapshot.Price)},
		Quantity:      s.Quantity,
		UnitPrice:     int64(s.UnitPrice),
		TotalPrice:    int64(s.TotalPrice),
		PaymentMethod: s.PaymentMethod,
		PaymentStatus: string(s.PaymentStatus),
		Actor:         s.Actor,
		OccurredAt:    s.OccurredAt,
	}
}

func toPurchaseResponse(p Purchase) purchaseResponse {
	return purchaseResponse{
		ID:         p.ID,
		ProductID:  p.ProductID,
		Product:    snapshotResponse{Name: p.Snapshot.Name, SKU: p.Snapshot.SKU, Price: int64(p.Snapshot.Price)},
		Quantity:   p.Quantity,
		UnitCost:   int64(p.UnitCost),
		TotalCost:  int64(p.TotalCost),
		Supplier:   p.Supplier,
		Actor:      p.Actor,
		OccurredAt: p.OccurredAt,
	}
}

func toAdjustmentResponse(a Adjustment) adjustmentResponse {
	return adjustmentResponse{
		ID:         a.ID,
		ProductID:  a.ProductID,
		Product:    snapshotResponse{Name: a.Snapshot.Name, SKU: a.Snapshot.SKU, Price: int64(a.Snapshot.Price)},
		Delta:      a.Delta,
		Reason:     a.Reason,
		Actor:      a.Actor,
		OccurredAt: a.OccurredAt,
	}
}

func (h *Handler) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var payload salePayload
	if !h.decode(w, r, &payload) {
		return
	}
	input := CreateSaleInput{
		ProductID:     payload.ProductID,
		Quantity:      payload.Quantity,
		UnitPrice:     types.Money(payload.UnitPrice),
		PaymentMethod: payload.PaymentMethod,
		PaymentStatus: PaymentStatus(payload.PaymentStatus),
	}
	sale, err := h.service.CreateSale(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSaleResponse(sale))
}

func (h *Handler) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	var payload saleUpdatePayload
	if !h.decode(w, r, &payload) {
		return
	}
	patch := UpdateSaleInput{
		Quantity:      payload.Quantity,
		PaymentMethod: payload.PaymentMethod,
	}
	if payload.UnitPrice != nil {
		price := types.Money(*payload.UnitPrice)
		patch.UnitPrice = &price
	}
	if payload.PaymentStatus != nil {
		status := PaymentStatus(*payload.PaymentStatus)
		patch.PaymentStatus = &status
	}
	sale, err := h.service.UpdateSale(r.Context(), id, patch, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSale(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	sales, page, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]saleResponse, 0, len(sales))
	for _, sale := range sales {
		items = append(items, toSaleResponse(sale))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": page})
}

func (h *Handler) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var payload purchasePayload
	if !h.decode(w, r, &payload) {
		return
	}
	input := CreatePurchaseInput{
		ProductID: payload.ProductID,
		Quantity:  payload.Quantity,
		UnitCost:  types.Money(payload.UnitCost),
		Supplier:  payload.Supplier,
	}
	purchase, err := h.service.CreatePurchase(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPurchaseResponse(purchase))
}

func (h *Handler) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	var payload purchaseUpdatePayload
	if !h.decode(w, r, &payload) {
		return
	}
	patch := UpdatePurchaseInput{
		Quantity: payload.Quantity,
		Supplier: payload.Supplier,
	}
	if payload.UnitCost != nil {
		cost := types.Money(*payload.UnitCost)
		patch.UnitCost = &cost
	}
	purchase, err := h.service.UpdatePurchase(r.Context(), id, patch, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchaseResponse(purchase))
}

func (h *Handler) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePurchase(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchaseResponse(purchase))
}

func (h *Handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	purchases, page, err := h.service.ListPurchases(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]purchaseResponse, 0, len(purchases))
	for _, purchase := range purchases {
		items = append(items, toPurchaseResponse(purchase))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": page})
}

func (h *Handler) handlePostAdjustment(w http.ResponseWriter, r *http.Request) {
	var payload adjustmentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	input := AdjustmentInput{ProductID: payload.ProductID, Delta: payload.Delta, Reason: payload.Reason}
	adj, err := h.service.PostAdjustment(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAdjustmentResponse(adj))
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	adjustments, page, err := h.service.ListAdjustments(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]adjustmentResponse, 0, len(adjustments))
	for _, adj := range adjustments {
		items = append(items, toAdjustmentResponse(adj))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": page})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := httpx.DecodeJSON(r, payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func parsePathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func parseListFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{}
	filter.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
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
	return filter
}
