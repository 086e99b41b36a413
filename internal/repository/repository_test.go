package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

var testBackends = []storage.Backend{storage.BackendSQLite, storage.BackendKV}

func forEachBackend(t *testing.T, fn func(t *testing.T, repos *Repositories)) {
	t.Helper()
	for _, backend := range testBackends {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()
			fn(t, newTestRepos(t, backend))
		})
	}
}

func TestCropAddListDeleteScenario(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()

		crop := &Crop{Name: "Corn", Variety: "Sweet"}
		require.NoError(t, repos.Crops.Add(ctx, crop))
		require.NotZero(t, crop.ID)

		crops, err := repos.Crops.List(ctx)
		require.NoError(t, err)
		require.Len(t, crops, 1)
		require.Equal(t, crop.ID, crops[0].ID)
		require.Equal(t, "Corn", crops[0].Name)
		require.Equal(t, "Sweet", crops[0].Variety)
		require.Nil(t, crops[0].Acreage)

		require.NoError(t, repos.Crops.Delete(ctx, crop.ID))
		crops, err = repos.Crops.List(ctx)
		require.NoError(t, err)
		require.Empty(t, crops)

		require.ErrorIs(t, repos.Crops.Delete(ctx, crop.ID), storage.ErrNotFound)
		_, err = repos.Crops.Get(ctx, crop.ID)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCropListNewestFirstAndUpdate(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		for _, name := range []string{"Corn", "Wheat", "Soy"} {
			require.NoError(t, repos.Crops.Add(ctx, &Crop{Name: name}))
		}

		crops, err := repos.Crops.List(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"Soy", "Wheat", "Corn"}, []string{crops[0].Name, crops[1].Name, crops[2].Name})

		acres := 12.5
		wheat := crops[1]
		wheat.Acreage = &acres
		wheat.Season = "winter"
		require.NoError(t, repos.Crops.Update(ctx, &wheat))

		got, err := repos.Crops.Get(ctx, wheat.ID)
		require.NoError(t, err)
		require.Equal(t, 12.5, *got.Acreage)
		require.Equal(t, "winter", got.Season)

		corn, err := repos.Crops.Get(ctx, crops[2].ID)
		require.NoError(t, err)
		require.Empty(t, corn.Season)
	})
}

func TestTaskToggleScenario(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		task := &Task{Title: "Irrigate north field"}
		require.NoError(t, repos.Tasks.Add(ctx, task))
		require.Equal(t, TaskStatusPending, task.Status)

		done, err := repos.Tasks.SetDone(ctx, task.ID, true)
		require.NoError(t, err)
		require.Equal(t, TaskStatusDone, done.Status)
		require.NotNil(t, done.CompletedAt)
		require.WithinDuration(t, time.Now(), *done.CompletedAt, time.Minute)

		pending, err := repos.Tasks.SetDone(ctx, task.ID, false)
		require.NoError(t, err)
		require.Equal(t, TaskStatusPending, pending.Status)
		require.Nil(t, pending.CompletedAt)

		_, err = repos.Tasks.SetDone(ctx, 999, true)
		require.ErrorIs(t, err, storage.ErrNotFound)

		open, err := repos.Tasks.ListByStatus(ctx, TaskStatusPending)
		require.NoError(t, err)
		require.Len(t, open, 1)
	})
}

func TestInventoryAdjustScenario(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		item := &InventoryItem{Name: "Urea", Unit: "bag", QuantityOnHand: 10, ReorderPoint: 5}
		require.NoError(t, repos.Inventory.Add(ctx, item))
		require.False(t, item.Low())

		adjusted, err := repos.Inventory.Adjust(ctx, item.ID, -7, "spread on east field")
		require.NoError(t, err)
		require.Equal(t, 3.0, adjusted.QuantityOnHand)
		require.True(t, adjusted.Low())

		stored, err := repos.Inventory.Get(ctx, item.ID)
		require.NoError(t, err)
		require.Equal(t, 3.0, stored.QuantityOnHand)

		ledger, err := repos.Inventory.Adjustments(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, ledger, 2)
		require.Equal(t, openingBalanceReason, ledger[0].Reason)
		require.Equal(t, -7.0, ledger[1].Delta)
	})
}

func TestInventoryOnHandEqualsLedgerSum(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		item := &InventoryItem{Name: "Diesel", Unit: "l"}
		require.NoError(t, repos.Inventory.Add(ctx, item))

		other := &InventoryItem{Name: "Seed", QuantityOnHand: 50}
		require.NoError(t, repos.Inventory.Add(ctx, other))

		deltas := []float64{0.1, 0.2, 100, -40.5, 12.25, -0.05}
		var last *InventoryItem
		for _, d := range deltas {
			var err error
			last, err = repos.Inventory.Adjust(ctx, item.ID, d, "")
			require.NoError(t, err)
		}
		require.Equal(t, 72.0, last.QuantityOnHand)

		ledger, err := repos.Inventory.Adjustments(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, ledger, len(deltas))
		sum, err := ledgerSum(ledger)
		require.NoError(t, err)
		require.Equal(t, sum, last.QuantityOnHand)

		untouched, err := repos.Inventory.Get(ctx, other.ID)
		require.NoError(t, err)
		require.Equal(t, 50.0, untouched.QuantityOnHand)

		_, err = repos.Inventory.Adjust(ctx, 999, 1, "")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestBudgetUpsertOverwrites(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		first := &Budget{Month: 4, Year: 2024, Category: "seed", PlannedAmount: 500}
		require.NoError(t, repos.Budgets.Upsert(ctx, first))

		second := &Budget{Month: 4, Year: 2024, Category: "seed", PlannedAmount: 750}
		require.NoError(t, repos.Budgets.Upsert(ctx, second))
		require.Equal(t, first.ID, second.ID)

		require.NoError(t, repos.Budgets.Upsert(ctx, &Budget{Month: 5, Year: 2024, Category: "seed", PlannedAmount: 100}))

		april, err := repos.Budgets.ListForMonth(ctx, 4, 2024)
		require.NoError(t, err)
		require.Len(t, april, 1)
		require.Equal(t, 750.0, april[0].PlannedAmount)

		all, err := repos.Budgets.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, 5, all[0].Month)

		require.Error(t, repos.Budgets.Upsert(ctx, &Budget{Month: 13, Year: 2024, Category: "seed"}))
	})
}

func TestOverrideSetOverwrites(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		require.NoError(t, repos.Overrides.Set(ctx, "tab.crops", "Fields"))
		require.NoError(t, repos.Overrides.Set(ctx, "tab.crops", "Plots"))
		require.NoError(t, repos.Overrides.Set(ctx, "tab.tasks", "Jobs"))

		all, err := repos.Overrides.All(ctx)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"tab.crops": "Plots", "tab.tasks": "Jobs"}, all)

		require.NoError(t, repos.Overrides.Delete(ctx, "tab.tasks"))
		require.ErrorIs(t, repos.Overrides.Delete(ctx, "tab.tasks"), storage.ErrNotFound)
		_, err = repos.Overrides.Get(ctx, "tab.tasks")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestPermissionSetIsReadThenWrite(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		member := &TeamMember{Name: "Thandi"}
		require.NoError(t, repos.Team.Add(ctx, member))
		require.Equal(t, DefaultRole, member.Role)

		perm := &Permission{MemberID: member.ID, Page: "crops", CanRead: true}
		require.NoError(t, repos.Permissions.Set(ctx, perm))
		require.Equal(t, DefaultDataScope, perm.DataScope)

		update := &Permission{MemberID: member.ID, Page: "crops", CanRead: true, CanWrite: true, DataScope: "own"}
		require.NoError(t, repos.Permissions.Set(ctx, update))
		require.Equal(t, perm.ID, update.ID)

		perms, err := repos.Permissions.ListByMember(ctx, member.ID)
		require.NoError(t, err)
		require.Len(t, perms, 1)
		require.True(t, perms[0].CanWrite)
		require.Equal(t, "own", perms[0].DataScope)

		require.NoError(t, repos.Team.Delete(ctx, member.ID))
		orphaned, err := repos.Permissions.Get(ctx, member.ID, "crops")
		require.NoError(t, err)
		require.True(t, orphaned.CanWrite)
	})
}

func TestUserLookups(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		byEmail := &User{Name: "Ann", Email: "ann@example.com", Active: true}
		byPhone := &User{Name: "Ben", Phone: "+27820000000", Active: true}
		require.NoError(t, repos.Users.Create(ctx, byEmail))
		require.NoError(t, repos.Users.Create(ctx, byPhone))

		got, err := repos.Users.FindByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		require.Equal(t, byEmail.ID, got.ID)
		require.True(t, got.Active)

		got, err = repos.Users.FindByPhone(ctx, "+27820000000")
		require.NoError(t, err)
		require.Equal(t, "Ben", got.Name)
		require.Empty(t, got.Email)

		_, err = repos.Users.FindByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, storage.ErrNotFound)

		got.Active = false
		got.Provider = "google"
		require.NoError(t, repos.Users.Update(ctx, got))
		reloaded, err := repos.Users.Get(ctx, got.ID)
		require.NoError(t, err)
		require.False(t, reloaded.Active)
		require.Equal(t, "google", reloaded.Provider)
	})
}

func TestProfileSaveKeepsSingleRow(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		_, err := repos.Profile.Get(ctx)
		require.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, repos.Profile.Save(ctx, &Profile{Name: "Sipho", FarmName: "Green Acres"}))

		lat, lon := -26.2, 28.04
		score := 75.0
		update := &Profile{Name: "Sipho", FarmName: "Green Acres", Latitude: &lat, Longitude: &lon, FarmType: "Cultivated", EfficiencyScore: &score, ZipCode: "02134"}
		require.NoError(t, repos.Profile.Save(ctx, update))

		got, err := repos.Profile.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, update.ID, got.ID)
		require.Equal(t, -26.2, *got.Latitude)
		require.Equal(t, "Cultivated", got.FarmType)
		require.Equal(t, "02134", got.ZipCode)
		require.Equal(t, 75.0, *got.EfficiencyScore)
	})
}

func TestExpenseOrderingAndRanges(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		for _, e := range []Expense{
			{Category: "seed", Amount: 120.5, IncurredOn: "2024-03-02"},
			{Category: "fuel", Amount: 80, IncurredOn: "2024-04-05"},
			{Category: "labor", Amount: 42.25, IncurredOn: "2024-03-20"},
		} {
			require.NoError(t, repos.Expenses.Add(ctx, &e))
			require.Equal(t, DefaultCurrency, e.Currency)
		}

		all, err := repos.Expenses.List(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"2024-04-05", "2024-03-20", "2024-03-02"}, []string{all[0].IncurredOn, all[1].IncurredOn, all[2].IncurredOn})

		march, err := repos.Expenses.ListBetween(ctx, "2024-03-01", "2024-03-31")
		if err != nil {
			require.ErrorIs(t, err, storage.ErrUnsupportedCommand)
			return
		}
		require.Len(t, march, 2)
	})
}

func TestExpenseRangesOnSQLite(t *testing.T) {
	t.Parallel()

	repos := newTestRepos(t, storage.BackendSQLite)
	ctx := context.Background()
	require.NoError(t, repos.Expenses.Add(ctx, &Expense{Amount: 1, IncurredOn: "2024-03-31"}))
	require.NoError(t, repos.Expenses.Add(ctx, &Expense{Amount: 1, IncurredOn: "2024-04-01"}))

	march, err := repos.Expenses.ListBetween(ctx, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, march, 1)
}

func TestDocumentTagsAreCommaJoined(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		doc := &Document{Title: "Soil test", Type: "report", Tags: []string{" soil ", "", "lab"}}
		require.NoError(t, repos.Documents.Add(ctx, doc))
		require.Equal(t, []string{"soil", "lab"}, doc.Tags)

		docs, err := repos.Documents.List(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, []string{"soil", "lab"}, docs[0].Tags)
	})
}

func TestThresholdsAlertsAndMetrics(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		frost := &Threshold{Metric: "temperature", Operator: "<", Value: 2, Message: "Frost risk", Active: true}
		heat := &Threshold{Metric: "temperature", Operator: ">", Value: 35, Active: true}
		rain := &Threshold{Metric: "rainfall", Operator: ">=", Value: 50, Active: true}
		for _, th := range []*Threshold{frost, heat, rain} {
			require.NoError(t, repos.Thresholds.Add(ctx, th))
		}
		require.NoError(t, repos.Thresholds.SetActive(ctx, heat.ID, false))

		active, err := repos.Thresholds.ListActiveForMetric(ctx, "temperature")
		require.NoError(t, err)
		require.Len(t, active, 1)
		require.Equal(t, frost.ID, active[0].ID)

		base := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			require.NoError(t, repos.Metrics.Record(ctx, &Metric{Name: "temperature", Value: float64(i), RecordedAt: base.Add(time.Duration(i) * time.Hour)}))
		}
		require.NoError(t, repos.Metrics.Record(ctx, &Metric{Name: "rainfall", Value: 3}))

		latest, err := repos.Metrics.List(ctx, "temperature", 2)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		require.Equal(t, 2.0, latest[0].Value)

		require.NoError(t, repos.Alerts.Record(ctx, &Alert{ThresholdID: &frost.ID, Metric: "temperature", Observed: 1, Message: frost.Message}))
		alerts, err := repos.Alerts.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		require.Equal(t, frost.ID, *alerts[0].ThresholdID)

		require.NoError(t, repos.Crops.Add(ctx, &Crop{Name: "Corn"}))
		require.NoError(t, repos.Crops.Delete(ctx, 1))
		require.NoError(t, repos.Thresholds.Delete(ctx, frost.ID))
		alerts, err = repos.Alerts.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
	})
}

func newTestRepos(t *testing.T, backend storage.Backend) *Repositories {
	t.Helper()
	g, err := storage.Open(context.Background(), storage.Options{Backend: backend, DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, g.Close()) })
	return New(g)
}

func TestInventoryAddOpensLedger(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		empty := &InventoryItem{Name: "Twine"}
		require.NoError(t, repos.Inventory.Add(ctx, empty))
		ledger, err := repos.Inventory.Adjustments(ctx, empty.ID)
		require.NoError(t, err)
		require.Empty(t, ledger)

		stocked := &InventoryItem{Name: "Urea", QuantityOnHand: 12.5}
		require.NoError(t, repos.Inventory.Add(ctx, stocked))
		require.Equal(t, 12.5, stocked.QuantityOnHand)

		stored, err := repos.Inventory.Get(ctx, stocked.ID)
		require.NoError(t, err)
		ledger, err = repos.Inventory.Adjustments(ctx, stocked.ID)
		require.NoError(t, err)
		require.Len(t, ledger, 1)
		sum, err := ledgerSum(ledger)
		require.NoError(t, err)
		require.Equal(t, sum, stored.QuantityOnHand)
	})
}

func TestInventoryAddRollsBackWhenOpeningFails(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		item := &InventoryItem{Name: "Diesel", QuantityOnHand: math.Inf(1)}
		require.NotPanics(t, func() {
			require.Error(t, repos.Inventory.Add(ctx, item))
		})
		require.Zero(t, item.ID)

		items, err := repos.Inventory.List(ctx)
		require.NoError(t, err)
		require.Empty(t, items)
	})
}

func TestLedgerSumRejectsNonFinite(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := ledgerSum([]InventoryAdjustment{{ID: 1, Delta: 2}, {ID: 2, Delta: v}})
		require.ErrorIs(t, err, ErrNonFinite)
	}

	sum, err := ledgerSum([]InventoryAdjustment{{Delta: 0.1}, {Delta: 0.2}})
	require.NoError(t, err)
	require.Equal(t, 0.3, sum)

	_, err = Decimal(math.NaN())
	require.ErrorIs(t, err, ErrNonFinite)
}
