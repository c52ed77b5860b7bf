package services

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"ecom-dashboard/internal/models"
)

// Every function in this file is a pure aggregation over a filtered slice:
// no shared state, no mutation of the input, total over the empty slice.

const (
	loyalistMinOrders = 6
	repeatMinOrders   = 2
)

// FilterRange returns the rows with start <= PurchasedAt <= end, where end
// is first extended to the last instant of its calendar day so a date-only
// bound covers that whole day. A start after end yields an empty slice,
// never an error.
func FilterRange(txs []models.Transaction, start, end time.Time) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))

	endIncl := EndOfDay(end)
	if start.After(endIncl) {
		return out
	}

	for _, tx := range txs {
		if tx.PurchasedAt.Before(start) || tx.PurchasedAt.After(endIncl) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Summarize computes the KPI totals: revenue, distinct orders, distinct
// customers.
func Summarize(txs []models.Transaction) models.Summary {
	orders := make(map[string]struct{})
	customers := make(map[string]struct{})
	var revenue float64

	for _, tx := range txs {
		revenue += tx.Price
		orders[tx.OrderID] = struct{}{}
		customers[tx.CustomerUniqueID] = struct{}{}
	}

	return models.Summary{
		TotalRevenue:    revenue,
		TotalOrders:     len(orders),
		UniqueCustomers: len(customers),
	}
}

// RevenueByCategory groups rows by category and sums price. Rows come back
// in first-appearance order, unsorted; BestCategories and WorstCategories
// apply their own stable sorts so equal sums keep this encounter order,
// which fixes which categories fall inside a top/bottom cut on ties.
func RevenueByCategory(txs []models.Transaction) []models.CategoryRevenue {
	sums := make(map[string]float64)
	order := make([]string, 0)

	for _, tx := range txs {
		if _, ok := sums[tx.Category]; !ok {
			order = append(order, tx.Category)
		}
		sums[tx.Category] += tx.Price
	}

	rows := make([]models.CategoryRevenue, 0, len(order))
	for _, category := range order {
		rows = append(rows, models.CategoryRevenue{Category: category, Revenue: sums[category]})
	}
	return rows
}

// BestCategories returns the n highest-revenue categories, descending.
func BestCategories(rows []models.CategoryRevenue, n int) []models.CategoryRevenue {
	desc := slices.Clone(rows)
	slices.SortStableFunc(desc, func(a, b models.CategoryRevenue) int {
		return cmp.Compare(b.Revenue, a.Revenue)
	})
	return head(desc, n)
}

// WorstCategories returns the n lowest-revenue categories, ascending.
func WorstCategories(rows []models.CategoryRevenue, n int) []models.CategoryRevenue {
	asc := slices.Clone(rows)
	slices.SortStableFunc(asc, func(a, b models.CategoryRevenue) int {
		return cmp.Compare(a.Revenue, b.Revenue)
	})
	return head(asc, n)
}

// CustomersByState counts distinct order-scoped customer ids per state and
// returns the top n states by count, descending. Ties at the cut keep
// first-appearance order.
func CustomersByState(txs []models.Transaction, n int) []models.StateCustomers {
	byState := make(map[string]map[string]struct{})
	order := make([]string, 0)

	for _, tx := range txs {
		set, ok := byState[tx.State]
		if !ok {
			set = make(map[string]struct{})
			byState[tx.State] = set
			order = append(order, tx.State)
		}
		set[tx.CustomerID] = struct{}{}
	}

	rows := make([]models.StateCustomers, 0, len(order))
	for _, state := range order {
		rows = append(rows, models.StateCustomers{State: state, Customers: len(byState[state])})
	}
	slices.SortStableFunc(rows, func(a, b models.StateCustomers) int {
		return cmp.Compare(b.Customers, a.Customers)
	})
	return head(rows, n)
}

// LoyaltySegments classifies every customer by distinct-order count and
// returns the three segments in fixed display order, zero counts included,
// so the chart layout stays stable across filter changes. Share is the
// segment's percentage of all customers, rounded to one decimal.
func LoyaltySegments(txs []models.Transaction) []models.SegmentCount {
	perCustomer := ordersPerCustomer(txs)

	counts := make(map[string]int)
	for _, orders := range perCustomer {
		counts[classifyLoyalty(len(orders))]++
	}

	total := len(perCustomer)
	segments := []string{models.SegmentLoyalist, models.SegmentRepeat, models.SegmentOneTime}
	rows := make([]models.SegmentCount, 0, len(segments))
	for _, segment := range segments {
		rows = append(rows, models.SegmentCount{
			Segment: segment,
			Count:   counts[segment],
			Share:   percentShare(counts[segment], total),
		})
	}
	return rows
}

func classifyLoyalty(frequency int) string {
	switch {
	case frequency >= loyalistMinOrders:
		return models.SegmentLoyalist
	case frequency >= repeatMinOrders:
		return models.SegmentRepeat
	default:
		return models.SegmentOneTime
	}
}

func percentShare(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// RFM computes recency/frequency/monetary per customer-unique-id, one row
// per customer in first-appearance order. Recency is the whole-day gap
// between the customer's latest purchase and the latest purchase in the
// whole filtered set, so the most recent buyer always has recency 0 and no
// recency is ever negative.
func RFM(txs []models.Transaction) []models.RFMRecord {
	if len(txs) == 0 {
		return []models.RFMRecord{}
	}

	now := txs[0].PurchasedAt
	for _, tx := range txs[1:] {
		if tx.PurchasedAt.After(now) {
			now = tx.PurchasedAt
		}
	}

	type acc struct {
		last     time.Time
		orders   map[string]struct{}
		monetary float64
	}
	accs := make(map[string]*acc)
	order := make([]string, 0)

	for _, tx := range txs {
		a, ok := accs[tx.CustomerUniqueID]
		if !ok {
			a = &acc{orders: make(map[string]struct{})}
			accs[tx.CustomerUniqueID] = a
			order = append(order, tx.CustomerUniqueID)
		}
		if tx.PurchasedAt.After(a.last) {
			a.last = tx.PurchasedAt
		}
		a.orders[tx.OrderID] = struct{}{}
		a.monetary += tx.Price
	}

	rows := make([]models.RFMRecord, 0, len(order))
	for _, id := range order {
		a := accs[id]
		rows = append(rows, models.RFMRecord{
			CustomerUniqueID: id,
			RecencyDays:      int(now.Sub(a.last).Hours() / 24),
			Frequency:        len(a.orders),
			Monetary:         a.monetary,
		})
	}
	return rows
}

// MonthlyRevenueTrend sums price per calendar month, chronologically
// ascending. Months with no transactions in range are absent rather than
// zero-filled; the chart draws point markers so gaps read as missing data.
func MonthlyRevenueTrend(txs []models.Transaction) []models.MonthlyRevenue {
	sums := make(map[string]float64)
	for _, tx := range txs {
		sums[tx.PurchasedAt.Format("2006-01")] += tx.Price
	}

	rows := make([]models.MonthlyRevenue, 0, len(sums))
	for month, revenue := range sums {
		rows = append(rows, models.MonthlyRevenue{Month: month, Revenue: revenue})
	}
	slices.SortFunc(rows, func(a, b models.MonthlyRevenue) int {
		return strings.Compare(a.Month, b.Month)
	})
	return rows
}

// HistogramOf bins values into fixed-width buckets spanning [min, max].
// A value equal to max lands in the last bucket. All values identical
// collapses to a single bucket.
func HistogramOf(values []float64, bins int) models.Histogram {
	if len(values) == 0 || bins <= 0 {
		return models.Histogram{Edges: []float64{}, Counts: []int{}}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if lo == hi {
		return models.Histogram{Edges: []float64{lo, hi}, Counts: []int{len(values)}}
	}

	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}

	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	return models.Histogram{Edges: edges, Counts: counts}
}

func ordersPerCustomer(txs []models.Transaction) map[string]map[string]struct{} {
	perCustomer := make(map[string]map[string]struct{})

	for _, tx := range txs {
		set, ok := perCustomer[tx.CustomerUniqueID]
		if !ok {
			set = make(map[string]struct{})
			perCustomer[tx.CustomerUniqueID] = set
		}
		set[tx.OrderID] = struct{}{}
	}
	return perCustomer
}

func head[T any](rows []T, n int) []T {
	if len(rows) <= n {
		return rows
	}
	return rows[:n:n]
}
