package models

import "time"

// Transaction is one order-item line from the orders CSV. An order may span
// multiple lines; CustomerUniqueID is stable across orders while CustomerID
// is scoped to a single order.
type Transaction struct {
	OrderID          string
	CustomerID       string
	CustomerUniqueID string
	PurchasedAt      time.Time
	Price            float64
	Category         string
	State            string
}

// Summary holds the KPI totals for a filtered range.
type Summary struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalOrders     int     `json:"total_orders"`
	UniqueCustomers int     `json:"unique_customers"`
}

type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

type StateCustomers struct {
	State     string `json:"state"`
	Customers int    `json:"customers"`
}

// Loyalty segments, ordered from most to least valuable.
const (
	SegmentLoyalist = "Loyalist"
	SegmentRepeat   = "Repeat Customer"
	SegmentOneTime  = "One-time Buyer"
)

// SegmentCount is one loyalty segment with its share of all customers in
// the filtered range, as a percentage rounded to one decimal place.
type SegmentCount struct {
	Segment string  `json:"segment"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"`
}

// RFMRecord holds recency/frequency/monetary metrics for one customer.
// Recency is measured against the latest purchase in the filtered range,
// not against wall-clock time.
type RFMRecord struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	RecencyDays      int     `json:"recency_days"`
	Frequency        int     `json:"frequency"`
	Monetary         float64 `json:"monetary"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// Histogram is a fixed-width binning of a metric. Edges has one more
// element than Counts.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// Bounds is the min/max purchase date present in the loaded dataset,
// formatted as YYYY-MM-DD for the date-range control.
type Bounds struct {
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
}

// DashboardView is everything one render of the dashboard needs, computed
// from a single filtered slice. A panel that failed to compute reports its
// error under PanelErrors keyed by panel name; the other panels are still
// populated.
type DashboardView struct {
	Summary         Summary           `json:"summary"`
	BestCategories  []CategoryRevenue `json:"best_categories"`
	WorstCategories []CategoryRevenue `json:"worst_categories"`
	StateCustomers  []StateCustomers  `json:"state_customers"`
	LoyaltySegments []SegmentCount    `json:"loyalty_segments"`
	RecencyHist     Histogram         `json:"recency_histogram"`
	FrequencyHist   Histogram         `json:"frequency_histogram"`
	MonetaryHist    Histogram         `json:"monetary_histogram"`
	MonthlyRevenue  []MonthlyRevenue  `json:"monthly_revenue"`
	PanelErrors     map[string]string `json:"panel_errors,omitempty"`
}
