package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ecom-dashboard/internal/errors"
	"ecom-dashboard/internal/models"
	"ecom-dashboard/internal/observability"
	"ecom-dashboard/internal/services"
)

const (
	dateLayout  = "2006-01-02"
	cacheMaxAge = "public, max-age=300"
)

var cacheHeaders = map[string]string{
	"Cache-Control": cacheMaxAge,
}

type APIHandlers struct {
	store  *services.Store
	logger *slog.Logger
}

func NewAPIHandlers(store *services.Store, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		store:  store,
		logger: logger,
	}
}

// parseRange reads the optional start/end query params (YYYY-MM-DD). Absent
// params default to the loaded dataset's bounds, so no params means the full
// range.
func parseRange(r *http.Request, store *services.Store) (time.Time, time.Time, *errors.AppError) {
	start, end := store.Bounds()

	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.ValidationWrap(err, "start must be a YYYY-MM-DD date")
		}
		start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.ValidationWrap(err, "end must be a YYYY-MM-DD date")
		}
		end = t
	}

	return start, end, nil
}

func (h *APIHandlers) filtered(r *http.Request) ([]models.Transaction, *errors.AppError) {
	start, end, appErr := parseRange(r, h.store)
	if appErr != nil {
		return nil, appErr
	}
	return services.FilterRange(h.store.Transactions(), start, end), nil
}

func (h *APIHandlers) writeRangeError(w http.ResponseWriter, r *http.Request, appErr *errors.AppError) {
	errors.WriteError(w, h.logger, appErr, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.Summarize(txs), cacheHeaders)
}

func (h *APIHandlers) HandleCategoryRevenue(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	rows := services.RevenueByCategory(txs)
	data := map[string]any{
		"ranking": services.BestCategories(rows, len(rows)),
		"best":    services.BestCategories(rows, services.RankedCategories),
		"worst":   services.WorstCategories(rows, services.RankedCategories),
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleStateCustomers(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.CustomersByState(txs, services.TopStates), cacheHeaders)
}

func (h *APIHandlers) HandleLoyaltySegments(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.LoyaltySegments(txs), cacheHeaders)
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.RFM(txs), cacheHeaders)
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.MonthlyRevenueTrend(txs), cacheHeaders)
}

// HandleDashboardView returns every panel in one payload, the same view
// model the SSE handlers push.
func (h *APIHandlers) HandleDashboardView(w http.ResponseWriter, r *http.Request) {
	txs, appErr := h.filtered(r)
	if appErr != nil {
		h.writeRangeError(w, r, appErr)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.BuildView(txs), cacheHeaders)
}

// HandleBounds exposes the dataset's min/max purchase date for the
// date-range control.
func (h *APIHandlers) HandleBounds(w http.ResponseWriter, r *http.Request) {
	minDate, maxDate := h.store.Bounds()

	bounds := models.Bounds{}
	if !minDate.IsZero() {
		bounds.MinDate = minDate.Format(dateLayout)
		bounds.MaxDate = maxDate.Format(dateLayout)
	}

	errors.WriteSuccess(w, bounds)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.store.Stats())
}
