package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecom-dashboard/internal/models"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	t.Fatalf("unparseable time %q", value)
	return time.Time{}
}

func tx(t *testing.T, order, customer, unique, purchased string, price float64, category, state string) models.Transaction {
	t.Helper()
	return models.Transaction{
		OrderID:          order,
		CustomerID:       customer,
		CustomerUniqueID: unique,
		PurchasedAt:      mustTime(t, purchased),
		Price:            price,
		Category:         category,
		State:            state,
	}
}

// Three rows, two customers, two categories: customer X buys toys twice
// (orders A and B), customer Y buys books once (order C).
func sampleTransactions(t *testing.T) []models.Transaction {
	t.Helper()
	return []models.Transaction{
		tx(t, "A", "sess-a", "X", "2024-01-05", 100, "toys", "SP"),
		tx(t, "B", "sess-b", "X", "2024-02-10", 50, "toys", "SP"),
		tx(t, "C", "sess-c", "Y", "2024-01-20", 200, "books", "RJ"),
	}
}

func TestFilterRange(t *testing.T) {
	txs := sampleTransactions(t)

	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"full range", "2024-01-05", "2024-02-10", 3},
		{"january only", "2024-01-01", "2024-01-31", 2},
		{"single day", "2024-01-20", "2024-01-20", 1},
		{"boundary days included", "2024-01-05", "2024-01-20", 2},
		{"nothing in range", "2023-01-01", "2023-12-31", 0},
		{"start after end", "2024-02-10", "2024-01-05", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRange(txs, mustTime(t, tt.start), mustTime(t, tt.end))
			if len(got) != tt.want {
				t.Errorf("FilterRange() returned %d rows, want %d", len(got), tt.want)
			}

			start, end := mustTime(t, tt.start), EndOfDay(mustTime(t, tt.end))
			for _, row := range got {
				if row.PurchasedAt.Before(start) || row.PurchasedAt.After(end) {
					t.Errorf("row %s at %v outside [%v, %v]", row.OrderID, row.PurchasedAt, start, end)
				}
			}
		})
	}
}

// A date-only end bound must cover the whole day: an order placed at 14:30
// on the end date is inside the range.
func TestFilterRange_EndOfDayInclusive(t *testing.T) {
	txs := []models.Transaction{
		tx(t, "A", "c1", "u1", "2024-03-01 14:30:00", 10, "toys", "SP"),
	}

	got := FilterRange(txs, mustTime(t, "2024-03-01"), mustTime(t, "2024-03-01"))
	if len(got) != 1 {
		t.Fatalf("expected the intra-day order to be included, got %d rows", len(got))
	}
}

func TestFilterRange_EmptyInput(t *testing.T) {
	got := FilterRange(nil, mustTime(t, "2024-01-01"), mustTime(t, "2024-12-31"))
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d rows", len(got))
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleTransactions(t))

	if summary.TotalRevenue != 350 {
		t.Errorf("TotalRevenue = %v, want 350", summary.TotalRevenue)
	}
	if summary.TotalOrders != 3 {
		t.Errorf("TotalOrders = %d, want 3", summary.TotalOrders)
	}
	if summary.UniqueCustomers != 2 {
		t.Errorf("UniqueCustomers = %d, want 2", summary.UniqueCustomers)
	}
}

func TestSummarize_MultiItemOrder(t *testing.T) {
	// Two rows of the same order count as one order.
	txs := []models.Transaction{
		tx(t, "A", "c1", "u1", "2024-01-05", 30, "toys", "SP"),
		tx(t, "A", "c1", "u1", "2024-01-05", 20, "books", "SP"),
	}

	summary := Summarize(txs)
	if summary.TotalOrders != 1 {
		t.Errorf("TotalOrders = %d, want 1", summary.TotalOrders)
	}
	if summary.TotalRevenue != 50 {
		t.Errorf("TotalRevenue = %v, want 50", summary.TotalRevenue)
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalRevenue != 0 || summary.TotalOrders != 0 || summary.UniqueCustomers != 0 {
		t.Errorf("empty input should yield zero summary, got %+v", summary)
	}
}

func TestRevenueByCategory(t *testing.T) {
	rows := RevenueByCategory(sampleTransactions(t))

	require.Len(t, rows, 2)
	// Encounter order: toys appears first in the input.
	assert.Equal(t, "toys", rows[0].Category)
	assert.Equal(t, 150.0, rows[0].Revenue)
	assert.Equal(t, "books", rows[1].Category)
	assert.Equal(t, 200.0, rows[1].Revenue)
}

func TestBestWorstCategories(t *testing.T) {
	rows := RevenueByCategory(sampleTransactions(t))

	best := BestCategories(rows, 5)
	require.NotEmpty(t, best)
	assert.Equal(t, "books", best[0].Category)
	assert.Equal(t, "toys", best[1].Category)

	worst := WorstCategories(rows, 5)
	assert.Equal(t, "toys", worst[0].Category)
	assert.Equal(t, "books", worst[1].Category)
}

// Equal sums keep first-appearance order on both the descending and the
// ascending cut, so ties at a top/bottom boundary are deterministic.
func TestCategoryRanking_TieStability(t *testing.T) {
	txs := []models.Transaction{
		tx(t, "A", "c1", "u1", "2024-01-01", 100, "alpha", "SP"),
		tx(t, "B", "c2", "u2", "2024-01-02", 100, "beta", "SP"),
		tx(t, "C", "c3", "u3", "2024-01-03", 100, "gamma", "SP"),
	}

	rows := RevenueByCategory(txs)

	best := BestCategories(rows, 2)
	require.Len(t, best, 2)
	assert.Equal(t, "alpha", best[0].Category)
	assert.Equal(t, "beta", best[1].Category)

	worst := WorstCategories(rows, 2)
	require.Len(t, worst, 2)
	assert.Equal(t, "alpha", worst[0].Category)
	assert.Equal(t, "beta", worst[1].Category)
}

func TestBestCategories_DoesNotMutateInput(t *testing.T) {
	txs := sampleTransactions(t)
	rows := RevenueByCategory(txs)
	first := rows[0].Category

	BestCategories(rows, 5)
	WorstCategories(rows, 5)

	if rows[0].Category != first {
		t.Error("ranking should not reorder the grouped rows")
	}
}

func TestCustomersByState(t *testing.T) {
	rows := CustomersByState(sampleTransactions(t), 10)

	require.Len(t, rows, 2)
	// SP has two distinct order-scoped customer ids, RJ has one.
	assert.Equal(t, "SP", rows[0].State)
	assert.Equal(t, 2, rows[0].Customers)
	assert.Equal(t, "RJ", rows[1].State)
	assert.Equal(t, 1, rows[1].Customers)
}

func TestCustomersByState_CountsDistinctIDs(t *testing.T) {
	// Same customer id twice in one state counts once.
	txs := []models.Transaction{
		tx(t, "A", "c1", "u1", "2024-01-01", 10, "toys", "SP"),
		tx(t, "B", "c1", "u1", "2024-01-02", 10, "toys", "SP"),
	}

	rows := CustomersByState(txs, 10)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Customers)
}

func TestCustomersByState_Limit(t *testing.T) {
	txs := make([]models.Transaction, 0, 15)
	states := []string{"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "DF", "GO", "ES", "PE", "CE"}
	for i, state := range states {
		txs = append(txs, tx(t, "O"+state, "c"+state, "u"+state, "2024-01-01", float64(i+1), "toys", state))
	}

	rows := CustomersByState(txs, 10)
	if len(rows) != 10 {
		t.Errorf("expected 10 states, got %d", len(rows))
	}

	// All counts equal: the cut keeps first-appearance order.
	assert.Equal(t, "SP", rows[0].State)
	assert.Equal(t, "ES", rows[9].State)
}

func TestClassifyLoyalty(t *testing.T) {
	tests := []struct {
		frequency int
		want      string
	}{
		{1, models.SegmentOneTime},
		{2, models.SegmentRepeat},
		{5, models.SegmentRepeat},
		{6, models.SegmentLoyalist},
		{12, models.SegmentLoyalist},
	}

	for _, tt := range tests {
		if got := classifyLoyalty(tt.frequency); got != tt.want {
			t.Errorf("classifyLoyalty(%d) = %q, want %q", tt.frequency, got, tt.want)
		}
	}
}

func TestLoyaltySegments(t *testing.T) {
	segments := LoyaltySegments(sampleTransactions(t))

	require.Len(t, segments, 3)
	assert.Equal(t, models.SegmentLoyalist, segments[0].Segment)
	assert.Equal(t, 0, segments[0].Count)
	assert.Equal(t, models.SegmentRepeat, segments[1].Segment)
	assert.Equal(t, 1, segments[1].Count)
	assert.Equal(t, 50.0, segments[1].Share)
	assert.Equal(t, models.SegmentOneTime, segments[2].Segment)
	assert.Equal(t, 1, segments[2].Count)
	assert.Equal(t, 50.0, segments[2].Share)
}

// Segment counts partition the customer set: they sum to the distinct
// customer count for any input.
func TestLoyaltySegments_Partition(t *testing.T) {
	txs := sampleTransactions(t)
	for i := 0; i < 7; i++ {
		txs = append(txs, tx(t, string(rune('D'+i)), "sess-z", "Z", "2024-01-10", 10, "toys", "SP"))
	}

	segments := LoyaltySegments(txs)
	summary := Summarize(txs)

	total := 0
	var shares float64
	for _, seg := range segments {
		total += seg.Count
		shares += seg.Share
	}

	assert.Equal(t, summary.UniqueCustomers, total)
	assert.InDelta(t, 100.0, shares, 0.2)

	// Z placed 7 distinct orders and is a Loyalist.
	assert.Equal(t, 1, segments[0].Count)
}

func TestLoyaltySegments_Empty(t *testing.T) {
	segments := LoyaltySegments(nil)

	require.Len(t, segments, 3)
	for _, seg := range segments {
		assert.Zero(t, seg.Count)
		assert.Zero(t, seg.Share)
	}
}

func TestRFM(t *testing.T) {
	rows := RFM(sampleTransactions(t))
	require.Len(t, rows, 2)

	byID := make(map[string]models.RFMRecord)
	for _, row := range rows {
		byID[row.CustomerUniqueID] = row
	}

	// "now" is 2024-02-10, the latest purchase in the set.
	x := byID["X"]
	assert.Equal(t, 0, x.RecencyDays)
	assert.Equal(t, 2, x.Frequency)
	assert.Equal(t, 150.0, x.Monetary)

	y := byID["Y"]
	assert.Equal(t, 21, y.RecencyDays)
	assert.Equal(t, 1, y.Frequency)
	assert.Equal(t, 200.0, y.Monetary)
}

func TestRFM_Invariants(t *testing.T) {
	rows := RFM(sampleTransactions(t))

	for _, row := range rows {
		if row.RecencyDays < 0 {
			t.Errorf("customer %s has negative recency %d", row.CustomerUniqueID, row.RecencyDays)
		}
		if row.Frequency < 1 {
			t.Errorf("customer %s has frequency %d, want >= 1", row.CustomerUniqueID, row.Frequency)
		}
		if row.Monetary <= 0 {
			t.Errorf("customer %s has monetary %v, want > 0 for positive prices", row.CustomerUniqueID, row.Monetary)
		}
	}
}

func TestRFM_Empty(t *testing.T) {
	rows := RFM(nil)
	if len(rows) != 0 {
		t.Errorf("expected no RFM rows for empty input, got %d", len(rows))
	}
}

func TestMonthlyRevenueTrend(t *testing.T) {
	rows := MonthlyRevenueTrend(sampleTransactions(t))

	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01", rows[0].Month)
	assert.Equal(t, 300.0, rows[0].Revenue)
	assert.Equal(t, "2024-02", rows[1].Month)
	assert.Equal(t, 50.0, rows[1].Revenue)
}

func TestMonthlyRevenueTrend_GapMonthsOmitted(t *testing.T) {
	txs := []models.Transaction{
		tx(t, "A", "c1", "u1", "2024-01-05", 100, "toys", "SP"),
		tx(t, "B", "c2", "u2", "2024-04-05", 50, "toys", "SP"),
	}

	rows := MonthlyRevenueTrend(txs)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01", rows[0].Month)
	assert.Equal(t, "2024-04", rows[1].Month)
}

// Revenue is conserved across groupings: the category sums and the monthly
// sums both add up to the KPI total.
func TestRevenueConservation(t *testing.T) {
	txs := sampleTransactions(t)
	total := Summarize(txs).TotalRevenue

	var categorySum float64
	for _, row := range RevenueByCategory(txs) {
		categorySum += row.Revenue
	}
	assert.InDelta(t, total, categorySum, 1e-9)

	var monthlySum float64
	for _, row := range MonthlyRevenueTrend(txs) {
		monthlySum += row.Revenue
	}
	assert.InDelta(t, total, monthlySum, 1e-9)
}

func TestHistogramOf(t *testing.T) {
	hist := HistogramOf([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)

	require.Len(t, hist.Counts, 5)
	require.Len(t, hist.Edges, 6)
	assert.Equal(t, 0.0, hist.Edges[0])
	assert.Equal(t, 10.0, hist.Edges[5])

	total := 0
	for _, c := range hist.Counts {
		total += c
	}
	assert.Equal(t, 11, total)

	// The max value belongs to the last bucket, not an overflow bucket.
	assert.Equal(t, 3, hist.Counts[4])
}

func TestHistogramOf_EdgeCases(t *testing.T) {
	empty := HistogramOf(nil, 30)
	if len(empty.Counts) != 0 {
		t.Errorf("empty input should yield empty histogram, got %d buckets", len(empty.Counts))
	}

	flat := HistogramOf([]float64{7, 7, 7}, 30)
	require.Len(t, flat.Counts, 1)
	assert.Equal(t, 3, flat.Counts[0])
}

// Every aggregation is a pure function: running it twice over the same
// slice yields identical results.
func TestAggregations_Idempotent(t *testing.T) {
	txs := sampleTransactions(t)

	assert.Equal(t, Summarize(txs), Summarize(txs))
	assert.Equal(t, RevenueByCategory(txs), RevenueByCategory(txs))
	assert.Equal(t, CustomersByState(txs, 10), CustomersByState(txs, 10))
	assert.Equal(t, LoyaltySegments(txs), LoyaltySegments(txs))
	assert.Equal(t, RFM(txs), RFM(txs))
	assert.Equal(t, MonthlyRevenueTrend(txs), MonthlyRevenueTrend(txs))
}

func TestAggregations_EmptyInput(t *testing.T) {
	var txs []models.Transaction

	assert.Empty(t, RevenueByCategory(txs))
	assert.Empty(t, CustomersByState(txs, 10))
	assert.Empty(t, RFM(txs))
	assert.Empty(t, MonthlyRevenueTrend(txs))
}

func BenchmarkRevenueByCategory(b *testing.B) {
	txs := make([]models.Transaction, 10000)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range txs {
		txs[i] = models.Transaction{
			OrderID:          "O" + string(rune(i%997)),
			CustomerUniqueID: "U" + string(rune(i%503)),
			PurchasedAt:      base.AddDate(0, 0, i%365),
			Price:            float64(i%100) + 0.99,
			Category:         "cat" + string(rune(i%40)),
		}
	}

	b.ResetTimer()
	for b.Loop() {
		_ = RevenueByCategory(txs)
	}
}

func BenchmarkRFM(b *testing.B) {
	txs := make([]models.Transaction, 10000)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range txs {
		txs[i] = models.Transaction{
			OrderID:          "O" + string(rune(i%997)),
			CustomerUniqueID: "U" + string(rune(i%503)),
			PurchasedAt:      base.AddDate(0, 0, i%365),
			Price:            float64(i%100) + 0.99,
		}
	}

	b.ResetTimer()
	for b.Loop() {
		_ = RFM(txs)
	}
}
