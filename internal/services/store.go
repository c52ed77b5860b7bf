package services

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"ecom-dashboard/internal/errors"
	"ecom-dashboard/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// Store owns the loaded transaction table. Load parses the CSV exactly once
// per process; the input file is static, so there is no invalidation.
type Store struct {
	mu      sync.RWMutex
	csvPath string
	loaded  bool
	txs     []models.Transaction
	minDate time.Time
	maxDate time.Time
	logger  *slog.Logger
}

func NewStore(csvPath string) *Store {
	return &Store{
		csvPath: csvPath,
		logger:  slog.Default(),
	}
}

// SetData seeds the store directly, bypassing the filesystem. Test seam.
func (s *Store) SetData(txs []models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = txs
	s.minDate, s.maxDate = dateBounds(txs)
	s.loaded = true
}

// Load reads and parses the CSV. Subsequent calls are no-ops once a load
// has succeeded. Any malformed input fails the whole load with
// DATA_UNAVAILABLE; rows are never silently skipped.
func (s *Store) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	start := time.Now()
	txs, err := s.parseCSV(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.loaded {
		s.txs = txs
		s.minDate, s.maxDate = dateBounds(txs)
		s.loaded = true
	}
	s.mu.Unlock()

	s.logger.Info("transactions loaded",
		"records", len(txs),
		"duration", time.Since(start),
	)
	return nil
}

func (s *Store) parseCSV(ctx context.Context) ([]models.Transaction, error) {
	file, err := os.Open(s.csvPath)
	if err != nil {
		return nil, errors.DataUnavailableWrap(err, "cannot open transactions CSV")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	if !scanner.Scan() {
		return nil, errors.DataUnavailable("transactions CSV is empty")
	}

	cols, err := resolveColumns(scanner.Text())
	if err != nil {
		return nil, err
	}

	var txs []models.Transaction
	batch := make([]string, 0, batchSize)
	line := 1
	batchStart := 2

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		parsed := make([]models.Transaction, len(batch))
		if err := parseBatch(ctx, batch, cols, batchStart, parsed); err != nil {
			return err
		}
		txs = append(txs, parsed...)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line++
		if len(batch) == 0 {
			batchStart = line
		}
		batch = append(batch, scanner.Text())

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.DataUnavailableWrap(err, "read transactions CSV")
	}
	if len(txs) == 0 {
		return nil, errors.DataUnavailable("transactions CSV has no data rows")
	}

	return txs, nil
}

// parseBatch fans the batch out over workers. Results land at their input
// index so file order survives the concurrency; downstream tie-breaks
// depend on it.
func parseBatch(ctx context.Context, lines []string, cols columnIndex, startLine int, out []models.Transaction) error {
	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, raw := range lines {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			tx, err := parseTransaction(strings.Split(raw, ","), cols)
			if err != nil {
				return errors.DataUnavailableWrap(err, fmt.Sprintf("malformed row at line %d", startLine+i))
			}
			out[i] = tx
			return nil
		})
	}

	return g.Wait()
}

type columnIndex struct {
	orderID          int
	customerID       int
	customerUniqueID int
	purchasedAt      int
	price            int
	category         int
	state            int
	width            int
}

func resolveColumns(header string) (columnIndex, error) {
	fields := strings.Split(header, ",")
	byName := make(map[string]int, len(fields))
	for i, name := range fields {
		byName[strings.TrimSpace(name)] = i
	}

	var missing []string
	get := func(name string) int {
		i, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols := columnIndex{
		orderID:          get("order_id"),
		customerID:       get("customer_id"),
		customerUniqueID: get("customer_unique_id"),
		purchasedAt:      get("order_purchase_timestamp"),
		price:            get("price"),
		category:         get("product_category_name_english"),
		state:            get("customer_state"),
		width:            len(fields),
	}

	if len(missing) > 0 {
		return cols, errors.DataUnavailable("CSV header missing required columns: " + strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseTransaction(record []string, cols columnIndex) (models.Transaction, error) {
	if len(record) < cols.width {
		return models.Transaction{}, fmt.Errorf("expected %d columns, got %d", cols.width, len(record))
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[cols.purchasedAt]))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("order_purchase_timestamp: %w", err)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record[cols.price]), 64)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("price: %w", err)
	}

	return models.Transaction{
		OrderID:          strings.TrimSpace(record[cols.orderID]),
		CustomerID:       strings.TrimSpace(record[cols.customerID]),
		CustomerUniqueID: strings.TrimSpace(record[cols.customerUniqueID]),
		PurchasedAt:      ts,
		Price:            price,
		Category:         strings.TrimSpace(record[cols.category]),
		State:            strings.TrimSpace(record[cols.state]),
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func dateBounds(txs []models.Transaction) (time.Time, time.Time) {
	if len(txs) == 0 {
		return time.Time{}, time.Time{}
	}

	minDate, maxDate := txs[0].PurchasedAt, txs[0].PurchasedAt
	for _, tx := range txs[1:] {
		if tx.PurchasedAt.Before(minDate) {
			minDate = tx.PurchasedAt
		}
		if tx.PurchasedAt.After(maxDate) {
			maxDate = tx.PurchasedAt
		}
	}
	return minDate, maxDate
}

// Transactions returns the loaded table. Callers must treat it as
// read-only; every aggregation builds new slices.
func (s *Store) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txs
}

// Bounds returns the min and max purchase timestamp in the loaded table.
func (s *Store) Bounds() (time.Time, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minDate, s.maxDate
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Stats is a small monitoring snapshot for the admin endpoint.
func (s *Store) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"loaded":  s.loaded,
		"records": len(s.txs),
	}
	if !s.minDate.IsZero() {
		stats["min_date"] = s.minDate.Format("2006-01-02")
		stats["max_date"] = s.maxDate.Format("2006-01-02")
	}
	return stats
}
