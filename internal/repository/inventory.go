package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	tableInventoryItems       = "inventory_items"
	tableInventoryAdjustments = "inventory_adjustments"

	openingBalanceReason = "opening balance"
)

// inventoryRepository treats inventory_adjustments as an append-only ledger.
// An item's quantity_on_hand is only ever written as the sum of its ledger.
type inventoryRepository struct {
	exec storage.Executor
}

func (r *inventoryRepository) List(ctx context.Context) ([]InventoryItem, error) {
	items, err := selectAll(ctx, r.exec, storage.Select(tableInventoryItems).OrderedBy("name", false).OrderedBy("id", false), decodeInventoryItem)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (r *inventoryRepository) Get(ctx context.Context, id int64) (*InventoryItem, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableInventoryItems, storage.ByID(id)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	item, err := decodeInventoryItem(row)
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return item, nil
}

// Add inserts the item and, for a non-zero starting quantity, the opening
// ledger entry that accounts for it.
func (r *inventoryRepository) Add(ctx context.Context, item *InventoryItem) error {
	if item == nil {
		return fmt.Errorf("add inventory item: item is nil")
	}
	if item.Name == "" {
		return fmt.Errorf("add inventory item: name is required")
	}
	now := nowUTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	opening := item.QuantityOnHand
	res, err := r.exec.Exec(ctx, storage.Insert(tableInventoryItems,
		storage.Set("name", item.Name),
		storage.Set("type", nullable(item.Type)),
		storage.Set("unit", nullable(item.Unit)),
		storage.Set("quantity_on_hand", 0.0),
		storage.Set("reorder_point", item.ReorderPoint),
		storage.Set("created_at", fmtTime(now)),
		storage.Set("updated_at", fmtTime(now)),
	))
	if err != nil {
		return fmt.Errorf("add inventory item: %w", err)
	}
	item.ID = res.InsertID
	item.QuantityOnHand = 0
	if opening == 0 {
		return nil
	}

	// The row starts at zero so a failed opening entry never leaves an
	// on-hand figure the ledger cannot account for.
	adjusted, err := r.Adjust(ctx, item.ID, opening, openingBalanceReason)
	if err != nil {
		if derr := deleteOne(ctx, r.exec, tableInventoryItems, item.ID); derr != nil {
			err = errors.Join(err, derr)
		}
		item.ID = 0
		return fmt.Errorf("add inventory item: %w", err)
	}
	item.QuantityOnHand = adjusted.QuantityOnHand
	item.UpdatedAt = adjusted.UpdatedAt
	return nil
}

// Update changes descriptive fields only; quantity moves through Adjust.
func (r *inventoryRepository) Update(ctx context.Context, item *InventoryItem) error {
	if item == nil {
		return fmt.Errorf("update inventory item: item is nil")
	}
	item.UpdatedAt = nowUTC()
	err := updateOne(ctx, r.exec, storage.UpdateByID(tableInventoryItems, item.ID,
		storage.Set("name", item.Name),
		storage.Set("type", nullable(item.Type)),
		storage.Set("unit", nullable(item.Unit)),
		storage.Set("reorder_point", item.ReorderPoint),
		storage.Set("updated_at", fmtTime(item.UpdatedAt)),
	))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("update inventory item: %w", err)
	}
	return nil
}

// Adjust appends a signed ledger entry and rewrites on-hand as the ledger sum.
func (r *inventoryRepository) Adjust(ctx context.Context, id int64, delta float64, reason string) (*InventoryItem, error) {
	item, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.appendAdjustment(ctx, id, delta, reason); err != nil {
		return nil, fmt.Errorf("adjust inventory item: %w", err)
	}

	ledger, err := r.Adjustments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("adjust inventory item: %w", err)
	}
	onHand, err := ledgerSum(ledger)
	if err != nil {
		return nil, fmt.Errorf("adjust inventory item: %w", err)
	}

	item.QuantityOnHand = onHand
	item.UpdatedAt = nowUTC()
	err = updateOne(ctx, r.exec, storage.UpdateByID(tableInventoryItems, id,
		storage.Set("quantity_on_hand", onHand),
		storage.Set("updated_at", fmtTime(item.UpdatedAt)),
	))
	if err != nil {
		return nil, fmt.Errorf("adjust inventory item: update on-hand: %w", err)
	}
	return item, nil
}

func (r *inventoryRepository) Adjustments(ctx context.Context, id int64) ([]InventoryAdjustment, error) {
	cmd := storage.Select(tableInventoryAdjustments, storage.Eq("item_id", id)).OrderedBy("id", false)
	adjustments, err := selectAll(ctx, r.exec, cmd, decodeInventoryAdjustment)
	if err != nil {
		return nil, fmt.Errorf("list inventory adjustments: %w", err)
	}
	return adjustments, nil
}

// Delete removes the item. Its ledger rows stay behind.
func (r *inventoryRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableInventoryItems, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return nil
}

func (r *inventoryRepository) appendAdjustment(ctx context.Context, itemID int64, delta float64, reason string) error {
	_, err := r.exec.Exec(ctx, storage.Insert(tableInventoryAdjustments,
		storage.Set("item_id", itemID),
		storage.Set("delta", delta),
		storage.Set("reason", nullable(reason)),
		storage.Set("created_at", fmtTime(nowUTC())),
	))
	if err != nil {
		return fmt.Errorf("append adjustment: %w", err)
	}
	return nil
}

// ledgerSum adds deltas in decimal so 0.1 + 0.2 lands on 0.3.
func ledgerSum(ledger []InventoryAdjustment) (float64, error) {
	sum := decimal.Zero
	for _, adj := range ledger {
		d, err := Decimal(adj.Delta)
		if err != nil {
			return 0, fmt.Errorf("ledger entry %d: %w", adj.ID, err)
		}
		sum = sum.Add(d)
	}
	f, _ := sum.Float64()
	return f, nil
}

func decodeInventoryItem(row storage.Row) (*InventoryItem, error) {
	rr := read(row)
	item := &InventoryItem{
		ID:             rr.int64("id"),
		Name:           rr.str("name"),
		Type:           rr.str("type"),
		Unit:           rr.str("unit"),
		QuantityOnHand: rr.float("quantity_on_hand"),
		ReorderPoint:   rr.float("reorder_point"),
		CreatedAt:      rr.time("created_at"),
		UpdatedAt:      rr.time("updated_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode inventory item: %w", err)
	}
	return item, nil
}

func decodeInventoryAdjustment(row storage.Row) (*InventoryAdjustment, error) {
	rr := read(row)
	adj := &InventoryAdjustment{
		ID:        rr.int64("id"),
		ItemID:    rr.int64("item_id"),
		Delta:     rr.float("delta"),
		Reason:    rr.str("reason"),
		CreatedAt: rr.time("created_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode inventory adjustment: %w", err)
	}
	return adj, nil
}
