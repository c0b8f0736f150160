package prescription

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockChange is the number of units to take from stock (negative returns units).
type StockChange struct {
	MedicineID uuid.UUID
	Delta      int
}

// PlanStockChanges diffs the current prescription against the submitted items.
// Changes are ordered by medicine id so locks are always taken in the same order.
func PlanStockChanges(current map[uuid.UUID]int, items []Item) []StockChange {
	next := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		next[it.MedicineID] += it.Quantity
	}

	ids := make(map[uuid.UUID]struct{}, len(current)+len(next))
	for id := range current {
		ids[id] = struct{}{}
	}
	for id := range next {
		ids[id] = struct{}{}
	}

	changes := make([]StockChange, 0, len(ids))
	for id := range ids {
		if delta := next[id] - current[id]; delta != 0 {
			changes = append(changes, StockChange{MedicineID: id, Delta: delta})
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		return bytes.Compare(changes[i].MedicineID[:], changes[j].MedicineID[:]) < 0
	})
	return changes
}

// SortedIDs returns ids in lock order.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

type Shortage struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Name       string    `json:"name"`
	Requested  int       `json:"requested"`
	Available  int       `json:"available"`
}

// ShortageError lists every medicine whose stock cannot cover its increase.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.Name, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// CheckStock verifies all increases before any stock is touched.
func CheckStock(changes []StockChange, medicines map[uuid.UUID]*Medicine) error {
	var shortages []Shortage
	for _, ch := range changes {
		if ch.Delta <= 0 {
			continue
		}
		m, ok := medicines[ch.MedicineID]
		if !ok {
			return fmt.Errorf("medicine %s: %w", ch.MedicineID, ErrMedicineNotFound)
		}
		if m.Stock < ch.Delta {
			shortages = append(shortages, Shortage{
				MedicineID: m.ID,
				Name:       m.Name,
				Requested:  ch.Delta,
				Available:  m.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return &ShortageError{Shortages: shortages}
	}
	return nil
}

// Total sums each line rounded to cents, at the medicines' current price.
func Total(items []Item, medicines map[uuid.UUID]*Medicine) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		m, ok := medicines[it.MedicineID]
		if !ok {
			continue
		}
		total = total.Add(m.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2))
	}
	return total.Round(2)
}

// ValidateItems returns one message per invalid field.
func ValidateItems(items []Item) []string {
	var errs []string
	seen := make(map[uuid.UUID]bool, len(items))
	for i, it := range items {
		if it.MedicineID == uuid.Nil {
			errs = append(errs, fmt.Sprintf("items[%d].medicine_id is required", i))
			continue
		}
		if it.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if seen[it.MedicineID] {
			errs = append(errs, fmt.Sprintf("items[%d].medicine_id is listed twice", i))
		}
		seen[it.MedicineID] = true
	}
	return errs
}
