package services

import (
	"fmt"

	"ecom-dashboard/internal/errors"
	"ecom-dashboard/internal/models"
)

// Panel sizing shared by the JSON API and the SSE handlers.
const (
	RankedCategories = 5
	TopStates        = 10
	RecencyBins      = 30
	FrequencyBins    = 20
	MonetaryBins     = 30
)

// BuildView computes every dashboard panel from one filtered slice. This is
// the single entry point the UI layer calls on each date-range change; the
// aggregations above stay independent of any particular delivery mechanism.
//
// Panels are isolated: if one computation fails, the failure is recorded
// under the panel's name in PanelErrors and the remaining panels still
// render. An empty slice is not a failure; every panel degrades to an empty
// or zero-valued result.
func BuildView(txs []models.Transaction) models.DashboardView {
	var view models.DashboardView
	panelErrors := make(map[string]string)

	computePanel("summary", panelErrors, func() {
		view.Summary = Summarize(txs)
	})
	computePanel("categories", panelErrors, func() {
		rows := RevenueByCategory(txs)
		view.BestCategories = BestCategories(rows, RankedCategories)
		view.WorstCategories = WorstCategories(rows, RankedCategories)
	})
	computePanel("states", panelErrors, func() {
		view.StateCustomers = CustomersByState(txs, TopStates)
	})
	computePanel("loyalty", panelErrors, func() {
		view.LoyaltySegments = LoyaltySegments(txs)
	})
	computePanel("rfm", panelErrors, func() {
		rfm := RFM(txs)
		recency := make([]float64, len(rfm))
		frequency := make([]float64, len(rfm))
		monetary := make([]float64, len(rfm))
		for i, r := range rfm {
			recency[i] = float64(r.RecencyDays)
			frequency[i] = float64(r.Frequency)
			monetary[i] = r.Monetary
		}
		view.RecencyHist = HistogramOf(recency, RecencyBins)
		view.FrequencyHist = HistogramOf(frequency, FrequencyBins)
		view.MonetaryHist = HistogramOf(monetary, MonetaryBins)
	})
	computePanel("monthly", panelErrors, func() {
		view.MonthlyRevenue = MonthlyRevenueTrend(txs)
	})

	if len(panelErrors) > 0 {
		view.PanelErrors = panelErrors
	}
	return view
}

// computePanel runs one aggregation and converts a panic into an inline
// panel error instead of failing the whole render.
func computePanel(name string, panelErrors map[string]string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			panelErrors[name] = errors.Computation(fmt.Sprint(r)).Error()
		}
	}()
	fn()
}
