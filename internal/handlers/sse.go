package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"ecom-dashboard/internal/models"
	"ecom-dashboard/internal/services"
	"github.com/starfederation/datastar-go/datastar"
)

var kpiTemplate = template.Must(template.New("kpis").Parse(`
<div id="kpi-content" class="kpi-row">
<div class="kpi"><span class="kpi-label">Total Revenue</span><span class="kpi-value">R$ {{printf "%.2f" .TotalRevenue}}</span></div>
<div class="kpi"><span class="kpi-label">Total Orders</span><span class="kpi-value">{{.TotalOrders}}</span></div>
<div class="kpi"><span class="kpi-label">Unique Customers</span><span class="kpi-value">{{.UniqueCustomers}}</span></div>
</div>`))

var loyaltyTableTemplate = template.Must(template.New("loyaltyTable").Parse(`
<div id="loyalty-content">
<table class="modern-table">
<thead><tr><th>Segment</th><th>Customers</th><th>Share</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Segment}}</td>
<td><strong>{{.Count}}</strong></td>
<td>{{printf "%.1f" .Share}}%</td>
</tr>{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	store  *services.Store
	logger *slog.Logger
}

func NewSSEHandlers(store *services.Store, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		store:  store,
		logger: logger,
	}
}

func (h *SSEHandlers) renderKPIs(summary models.Summary) (string, error) {
	var buf strings.Builder
	err := kpiTemplate.Execute(&buf, summary)
	return buf.String(), err
}

func (h *SSEHandlers) renderLoyaltyTable(segments []models.SegmentCount) (string, error) {
	var buf strings.Builder
	err := loyaltyTableTemplate.Execute(&buf, segments)
	return buf.String(), err
}

// filtered applies the requested date range; a malformed range is reported
// inline on the page rather than as an HTTP error, since the SSE response
// has already started.
func (h *SSEHandlers) filtered(sse *datastar.ServerSentEventGenerator, r *http.Request) ([]models.Transaction, bool) {
	start, end, appErr := parseRange(r, h.store)
	if appErr != nil {
		h.logger.Warn("invalid date range", "error", appErr)
		sse.PatchElements(`<div id="range-error">Invalid date range</div>`)
		return nil, false
	}
	return services.FilterRange(h.store.Transactions(), start, end), true
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) bool {
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return false
	}
	sse.PatchSignals(jsonData)
	return true
}

func (h *SSEHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	html, err := h.renderKPIs(services.Summarize(txs))
	if err != nil {
		h.logger.Error("render kpis", "error", err)
		return
	}
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleCategoryRevenue(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	rows := services.RevenueByCategory(txs)
	if !h.patchSignals(sse, map[string]any{
		"bestCategories":  services.BestCategories(rows, services.RankedCategories),
		"worstCategories": services.WorstCategories(rows, services.RankedCategories),
	}) {
		return
	}
	sse.PatchElements(`<div id="categories-status">Category charts updated</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleStateCustomers(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	if !h.patchSignals(sse, map[string]any{
		"statesData": services.CustomersByState(txs, services.TopStates),
	}) {
		return
	}
	sse.PatchElements(`<div id="states-status">State chart updated</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleLoyaltySegments(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	segments := services.LoyaltySegments(txs)
	html, err := h.renderLoyaltyTable(segments)
	if err != nil {
		h.logger.Error("render loyalty table", "error", err)
		return
	}
	sse.PatchElements(html)

	if !h.patchSignals(sse, map[string]any{"loyaltyData": segments}) {
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	view := services.BuildView(txs)
	if !h.patchSignals(sse, map[string]any{
		"recencyHist":   view.RecencyHist,
		"frequencyHist": view.FrequencyHist,
		"monetaryHist":  view.MonetaryHist,
	}) {
		return
	}
	sse.PatchElements(`<div id="rfm-status">RFM histograms updated</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	if !h.patchSignals(sse, map[string]any{
		"monthlyData": services.MonthlyRevenueTrend(txs),
	}) {
		return
	}
	sse.PatchElements(`<div id="monthly-status">Revenue trend updated</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleRefreshAll recomputes the whole view for the requested range and
// pushes every panel in one stream. This is what the date-range control
// triggers.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	txs, ok := h.filtered(sse, r)
	if !ok {
		return
	}

	view := services.BuildView(txs)

	kpiHTML, err := h.renderKPIs(view.Summary)
	if err != nil {
		h.logger.Error("render kpis", "error", err)
		return
	}
	sse.PatchElements(kpiHTML)

	loyaltyHTML, err := h.renderLoyaltyTable(view.LoyaltySegments)
	if err != nil {
		h.logger.Error("render loyalty table", "error", err)
		return
	}
	sse.PatchElements(loyaltyHTML)

	if !h.patchSignals(sse, map[string]any{
		"bestCategories":  view.BestCategories,
		"worstCategories": view.WorstCategories,
		"statesData":      view.StateCustomers,
		"loyaltyData":     view.LoyaltySegments,
		"recencyHist":     view.RecencyHist,
		"frequencyHist":   view.FrequencyHist,
		"monetaryHist":    view.MonetaryHist,
		"monthlyData":     view.MonthlyRevenue,
	}) {
		return
	}

	// Failed panels surface inline; the rest of the dashboard stays live.
	if len(view.PanelErrors) > 0 {
		var buf strings.Builder
		buf.WriteString(`<div id="panel-errors">`)
		for panel, msg := range view.PanelErrors {
			buf.WriteString(`<p class="panel-error">` + template.HTMLEscapeString(panel+": "+msg) + `</p>`)
		}
		buf.WriteString(`</div>`)
		sse.PatchElements(buf.String())
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
