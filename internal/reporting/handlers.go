package reporting

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/brimstock/brimstock/internal/platform/httpx"
	"github.com/brimstock/brimstock/internal/shared"
)

// Handler serves the read-only report endpoints. Identical in-flight report
// requests are collapsed into one build through the singleflight group.
type Handler struct {
	logger  *slog.Logger
	service *Service
	loc     *time.Location
	group   singleflight.Group
}

// NewHandler constructs the reporting handler.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, loc: loc}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.handleSales)
	r.Get("/purchases", h.handlePurchases)
	r.Get("/stock", h.handleStock)
	r.Get("/expenses", h.handleExpenses)
	r.Get("/dashboard", h.handleDashboard)
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	rng, groupBy, export, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	value, err, _ := h.group.Do("sales:"+rangeToken(rng)+":"+string(groupBy), func() (any, error) {
		return h.service.SalesReport(r.Context(), rng, groupBy)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report := value.(SalesReport)
	if export {
		httpx.JSON(w, http.StatusOK, SalesExport(report))
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handlePurchases(w http.ResponseWriter, r *http.Request) {
	rng, groupBy, export, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	value, err, _ := h.group.Do("purchases:"+rangeToken(rng)+":"+string(groupBy), func() (any, error) {
		return h.service.PurchasesReport(r.Context(), rng, groupBy)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report := value.(PurchasesReport)
	if export {
		httpx.JSON(w, http.StatusOK, PurchasesExport(report))
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	value, err, _ := h.group.Do("stock", func() (any, error) {
		return h.service.StockReport(r.Context())
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report := value.(StockReport)
	if r.URL.Query().Get("format") == "export" {
		httpx.JSON(w, http.StatusOK, StockExport(report))
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleExpenses(w http.ResponseWriter, r *http.Request) {
	rng, groupBy, export, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	value, err, _ := h.group.Do("expenses:"+rangeToken(rng)+":"+string(groupBy), func() (any, error) {
		return h.service.ExpensesReport(r.Context(), rng, groupBy)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report := value.(ExpensesReport)
	if export {
		httpx.JSON(w, http.StatusOK, ExpensesExport(report))
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	value, err, _ := h.group.Do("dashboard", func() (any, error) {
		return h.service.Dashboard(r.Context())
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, value.(DashboardSummary))
}

// parseQuery reads from/to/group_by/format. A missing range defaults to the
// trailing 30 days.
func (h *Handler) parseQuery(r *http.Request) (Range, GroupBy, bool, error) {
	q := r.URL.Query()
	groupBy, err := ParseGroupBy(q.Get("group_by"))
	if err != nil {
		return Range{}, "", false, err
	}

	rng := LastNDays(time.Now(), 30, h.loc)
	if from := q.Get("from"); from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, h.loc)
		if err != nil {
			return Range{}, "", false, shared.Validationf("reporting: from must be YYYY-MM-DD")
		}
		rng.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, h.loc)
		if err != nil {
			return Range{}, "", false, shared.Validationf("reporting: to must be YYYY-MM-DD")
		}
		rng.To = t.AddDate(0, 0, 1)
	}
	return rng, groupBy, q.Get("format") == "export", nil
}
