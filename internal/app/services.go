package app

import (
	"log/slog"

	"github.com/NatDug/Field-Buddy/internal/geo"
	"github.com/NatDug/Field-Buddy/internal/notify"
	"github.com/NatDug/Field-Buddy/internal/repository"
	"github.com/NatDug/Field-Buddy/internal/usda"
)

type Deps struct {
	Repos      *repository.Repositories
	Locator    geo.Locator
	Geocoder   geo.Geocoder
	Classifier usda.Classifier
	Notifier   notify.Scheduler
	Identity   IdentityProvider
	Sessions   SessionStore
	DevBypass  bool
	Logger     *slog.Logger
}

type Services struct {
	Guard     *Guard
	Auth      *AuthService
	Profile   *ProfileService
	Crops     *CropService
	Tasks     *TaskService
	Expenses  *ExpenseService
	Inventory *InventoryService
	Budgets   *BudgetService
	Documents *DocumentService
	Team      *TeamService
	Alerts    *AlertService
	Reports   *ReportService
	Overrides *OverrideService
}

func New(d Deps) *Services {
	r := d.Repos
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := NewGuard(r.Team, r.Permissions)
	return &Services{
		Guard:     guard,
		Auth:      NewAuthService(r.Users, d.Sessions, d.Identity, d.DevBypass, logger),
		Profile:   NewProfileService(r.Profile, d.Locator, d.Geocoder, d.Classifier, guard, logger),
		Crops:     NewCropService(r.Crops, guard),
		Tasks:     NewTaskService(r.Tasks, r.Crops, guard),
		Expenses:  NewExpenseService(r.Expenses, r.Crops, guard),
		Inventory: NewInventoryService(r.Inventory, d.Notifier, guard, logger),
		Budgets:   NewBudgetService(r.Budgets, guard),
		Documents: NewDocumentService(r.Documents, guard),
		Team:      NewTeamService(r.Team, r.Permissions, guard),
		Alerts:    NewAlertService(r.Thresholds, r.Alerts, r.Metrics, r.Crops, d.Notifier, guard, logger),
		Reports:   NewReportService(r.Expenses, r.Budgets, r.Tasks, r.Inventory, guard),
		Overrides: NewOverrideService(r.Overrides, guard),
	}
}
