// Package repository maps farm entities onto storage commands. Every method
// issues one command through the gateway, except the read-then-write
// composites noted on each repository.
package repository

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

// ErrNonFinite marks a stored amount that is NaN or infinite.
var ErrNonFinite = errors.New("repository: non-finite amount")

// Decimal converts a stored float for exact arithmetic. decimal.NewFromFloat
// panics on NaN and the infinities, so those come back as ErrNonFinite.
func Decimal(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	return decimal.NewFromFloat(v), nil
}

type Repositories struct {
	Users       UserRepository
	Profile     ProfileRepository
	Crops       CropRepository
	Tasks       TaskRepository
	Expenses    ExpenseRepository
	Inventory   InventoryRepository
	Budgets     BudgetRepository
	Documents   DocumentRepository
	Team        TeamRepository
	Permissions PermissionRepository
	Thresholds  ThresholdRepository
	Alerts      AlertRepository
	Metrics     MetricRepository
	Overrides   OverrideRepository
}

func New(exec storage.Executor) *Repositories {
	return &Repositories{
		Users:       &userRepository{exec: exec},
		Profile:     &profileRepository{exec: exec},
		Crops:       &cropRepository{exec: exec},
		Tasks:       &taskRepository{exec: exec},
		Expenses:    &expenseRepository{exec: exec},
		Inventory:   &inventoryRepository{exec: exec},
		Budgets:     &budgetRepository{exec: exec},
		Documents:   &documentRepository{exec: exec},
		Team:        &teamRepository{exec: exec},
		Permissions: &permissionRepository{exec: exec},
		Thresholds:  &thresholdRepository{exec: exec},
		Alerts:      &alertRepository{exec: exec},
		Metrics:     &metricRepository{exec: exec},
		Overrides:   &overrideRepository{exec: exec},
	}
}
