package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Dashboard is the single page of the application. The date-range control
// drives everything: changing it re-fetches /sse/refresh-all, which patches
// the KPI tiles and loyalty table as HTML and pushes the chart data as
// datastar signals consumed by the Chart.js helpers below.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>E-Commerce Performance Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1f2430}
header{background:#1f2430;color:#fff;padding:1rem 2rem}
header p{margin:.25rem 0 0;color:#aab}
main{padding:1.5rem 2rem;display:grid;gap:1.5rem}
.panel{background:#fff;border-radius:8px;padding:1rem 1.25rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.panel h2{margin:0 0 .75rem;font-size:1rem}
.grid-2{display:grid;grid-template-columns:1fr 1fr;gap:1.5rem}
.grid-3{display:grid;grid-template-columns:1fr 1fr 1fr;gap:1.5rem}
.kpi-row{display:flex;gap:2rem}
.kpi{display:flex;flex-direction:column}
.kpi-label{font-size:.8rem;color:#667}
.kpi-value{font-size:1.5rem;font-weight:600}
.modern-table{width:100%;border-collapse:collapse}
.modern-table th,.modern-table td{text-align:left;padding:.4rem .6rem;border-bottom:1px solid #eef}
.range-controls{display:flex;gap:1rem;align-items:center}
.panel-error{color:#b00020}
</style>
</head>
<body data-signals="{start:'',end:'',bestCategories:[],worstCategories:[],statesData:[],loyaltyData:[],recencyHist:{},frequencyHist:{},monetaryHist:{},monthlyData:[]}"
      data-on-load="@get('/sse/refresh-all')">
<header>
<h1>E-Commerce Performance Dashboard</h1>
<p>Transaction analytics for the selected purchase period</p>
</header>
<main>
<section class="panel">
<h2>Filter Period</h2>
<div class="range-controls">
<label>Start <input type="date" data-bind-start data-on-change="@get('/sse/refresh-all?start='+$start+'&end='+$end)"/></label>
<label>End <input type="date" data-bind-end data-on-change="@get('/sse/refresh-all?start='+$start+'&end='+$end)"/></label>
</div>
<div id="range-error"></div>
</section>

<section class="panel">
<h2>Key Metrics</h2>
<div id="kpi-content" class="kpi-row"></div>
</section>

<div class="grid-2">
<section class="panel">
<h2>Top 5 Categories by Revenue</h2>
<canvas id="best-chart" data-effect="charts.bar('best-chart', $bestCategories, 'category', 'revenue')"></canvas>
</section>
<section class="panel">
<h2>Bottom 5 Categories by Revenue</h2>
<canvas id="worst-chart" data-effect="charts.bar('worst-chart', $worstCategories, 'category', 'revenue')"></canvas>
</section>
</div>

<section class="panel">
<h2>Customer Distribution by State (Top 10)</h2>
<canvas id="states-chart" data-effect="charts.bar('states-chart', $statesData, 'state', 'customers')"></canvas>
</section>

<div class="grid-2">
<section class="panel">
<h2>Customer Loyalty Segmentation</h2>
<div id="loyalty-content"></div>
</section>
<section class="panel">
<h2>Segment Shares</h2>
<canvas id="loyalty-chart" data-effect="charts.bar('loyalty-chart', $loyaltyData, 'segment', 'count')"></canvas>
</section>
</div>

<div class="grid-3">
<section class="panel">
<h2>Recency (days)</h2>
<canvas id="recency-chart" data-effect="charts.hist('recency-chart', $recencyHist)"></canvas>
</section>
<section class="panel">
<h2>Frequency</h2>
<canvas id="frequency-chart" data-effect="charts.hist('frequency-chart', $frequencyHist)"></canvas>
</section>
<section class="panel">
<h2>Monetary</h2>
<canvas id="monetary-chart" data-effect="charts.hist('monetary-chart', $monetaryHist)"></canvas>
</section>
</div>

<section class="panel">
<h2>Monthly Revenue Trend</h2>
<canvas id="monthly-chart" data-effect="charts.line('monthly-chart', $monthlyData)"></canvas>
</section>

<div id="panel-errors"></div>
<div id="categories-status" hidden></div>
<div id="states-status" hidden></div>
<div id="rfm-status" hidden></div>
<div id="monthly-status" hidden></div>
</main>
<script>
window.charts = (function () {
	var instances = {};

	function upsert(id, config) {
		if (instances[id]) {
			instances[id].data = config.data;
			instances[id].update();
			return;
		}
		var el = document.getElementById(id);
		if (el) {
			instances[id] = new Chart(el, config);
		}
	}

	return {
		bar: function (id, rows, labelKey, valueKey) {
			if (!rows || !rows.length) { return; }
			upsert(id, {
				type: 'bar',
				options: { indexAxis: 'y', plugins: { legend: { display: false } } },
				data: {
					labels: rows.map(function (r) { return r[labelKey]; }),
					datasets: [{ data: rows.map(function (r) { return r[valueKey]; }) }]
				}
			});
		},
		hist: function (id, hist) {
			if (!hist || !hist.counts || !hist.counts.length) { return; }
			upsert(id, {
				type: 'bar',
				options: { plugins: { legend: { display: false } }, scales: { x: { ticks: { maxTicksLimit: 8 } } } },
				data: {
					labels: hist.counts.map(function (_, i) { return hist.edges[i].toFixed(0); }),
					datasets: [{ data: hist.counts, barPercentage: 1.0, categoryPercentage: 1.0 }]
				}
			});
		},
		line: function (id, rows) {
			if (!rows || !rows.length) { return; }
			upsert(id, {
				type: 'line',
				options: { plugins: { legend: { display: false } } },
				data: {
					labels: rows.map(function (r) { return r.month; }),
					datasets: [{ data: rows.map(function (r) { return r.revenue; }), pointRadius: 4, tension: 0.2 }]
				}
			});
		}
	};
})();
</script>
</body>
</html>`
