package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NatDug/Field-Buddy/internal/notify"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

type AddInventoryRequest struct {
	Name         string
	Type         string
	Unit         string
	Quantity     float64
	ReorderPoint float64
}

type InventoryService struct {
	items    repository.InventoryRepository
	notifier notify.Scheduler
	guard    *Guard
	logger   *slog.Logger
}

func NewInventoryService(items repository.InventoryRepository, notifier notify.Scheduler, guard *Guard, logger *slog.Logger) *InventoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryService{items: items, notifier: notifier, guard: guard, logger: logger}
}

func (s *InventoryService) List(ctx context.Context) ([]repository.InventoryItem, error) {
	if err := s.guard.Read(ctx, PageInventory); err != nil {
		return nil, err
	}
	return s.items.List(ctx)
}

// LowStock returns items at or below their reorder point.
func (s *InventoryService) LowStock(ctx context.Context) ([]repository.InventoryItem, error) {
	if err := s.guard.Read(ctx, PageInventory); err != nil {
		return nil, err
	}
	return lowStock(ctx, s.items)
}

func lowStock(ctx context.Context, items repository.InventoryRepository) ([]repository.InventoryItem, error) {
	all, err := items.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]repository.InventoryItem, 0)
	for _, item := range all {
		if item.Low() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *InventoryService) Add(ctx context.Context, req AddInventoryRequest) (*repository.InventoryItem, error) {
	if err := s.guard.Write(ctx, PageInventory); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("item name is required")
	}
	if err := checkFinite("opening quantity", req.Quantity); err != nil {
		return nil, err
	}
	if err := checkFinite("reorder point", req.ReorderPoint); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, validationf("opening quantity must not be negative")
	}
	if req.ReorderPoint < 0 {
		return nil, validationf("reorder point must not be negative")
	}

	item := &repository.InventoryItem{
		Name:           name,
		Type:           strings.TrimSpace(req.Type),
		Unit:           strings.TrimSpace(req.Unit),
		QuantityOnHand: req.Quantity,
		ReorderPoint:   req.ReorderPoint,
	}
	if err := s.items.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *InventoryService) SetReorderPoint(ctx context.Context, id int64, point float64) (*repository.InventoryItem, error) {
	if err := s.guard.Write(ctx, PageInventory); err != nil {
		return nil, err
	}
	if err := checkFinite("reorder point", point); err != nil {
		return nil, err
	}
	if point < 0 {
		return nil, validationf("reorder point must not be negative")
	}
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.ReorderPoint = point
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Adjust records a signed quantity change. Crossing into low stock schedules
// a notification.
func (s *InventoryService) Adjust(ctx context.Context, id int64, delta float64, reason string) (*repository.InventoryItem, error) {
	if err := s.guard.Write(ctx, PageInventory); err != nil {
		return nil, err
	}
	if err := checkFinite("adjustment", delta); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, validationf("adjustment must not be zero")
	}
	before, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.items.Adjust(ctx, id, delta, strings.TrimSpace(reason))
	if err != nil {
		return nil, err
	}

	if !before.Low() && after.Low() && s.notifier != nil {
		unit := after.Unit
		if unit != "" {
			unit = " " + unit
		}
		_, err := s.notifier.Schedule(ctx, notify.Notification{
			Title: "Low stock: " + after.Name,
			Body:  fmt.Sprintf("%s is down to %g%s (reorder point %g)", after.Name, after.QuantityOnHand, unit, after.ReorderPoint),
		})
		if err != nil {
			return nil, fmt.Errorf("notify low stock: %w", err)
		}
		s.logger.Info("inventory item crossed reorder point", "item_id", after.ID, "on_hand", after.QuantityOnHand)
	}
	return after, nil
}

func (s *InventoryService) Adjustments(ctx context.Context, id int64) ([]repository.InventoryAdjustment, error) {
	if err := s.guard.Read(ctx, PageInventory); err != nil {
		return nil, err
	}
	if _, err := s.items.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.items.Adjustments(ctx, id)
}

func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageInventory); err != nil {
		return err
	}
	return s.items.Delete(ctx, id)
}
