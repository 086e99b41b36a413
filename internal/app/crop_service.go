package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NatDug/Field-Buddy/internal/repository"
	"github.com/NatDug/Field-Buddy/internal/storage"
)

type AddCropRequest struct {
	Name    string
	Variety string
	Acreage *float64
	Season  string
	Notes   string
}

type UpdateCropRequest struct {
	ID      int64
	Name    *string
	Variety *string
	Acreage *float64
	Season  *string
	Notes   *string
}

type CropService struct {
	crops repository.CropRepository
	guard *Guard
}

func NewCropService(crops repository.CropRepository, guard *Guard) *CropService {
	return &CropService{crops: crops, guard: guard}
}

func (s *CropService) List(ctx context.Context) ([]repository.Crop, error) {
	if err := s.guard.Read(ctx, PageCrops); err != nil {
		return nil, err
	}
	return s.crops.List(ctx)
}

func (s *CropService) Get(ctx context.Context, id int64) (*repository.Crop, error) {
	if err := s.guard.Read(ctx, PageCrops); err != nil {
		return nil, err
	}
	return s.crops.Get(ctx, id)
}

func (s *CropService) Add(ctx context.Context, req AddCropRequest) (*repository.Crop, error) {
	if err := s.guard.Write(ctx, PageCrops); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("crop name is required")
	}
	if req.Acreage != nil {
		if err := checkFinite("acreage", *req.Acreage); err != nil {
			return nil, err
		}
		if *req.Acreage < 0 {
			return nil, validationf("acreage must not be negative")
		}
	}

	crop := &repository.Crop{
		Name:    name,
		Variety: strings.TrimSpace(req.Variety),
		Acreage: req.Acreage,
		Season:  strings.TrimSpace(req.Season),
		Notes:   req.Notes,
	}
	if err := s.crops.Add(ctx, crop); err != nil {
		return nil, err
	}
	return crop, nil
}

func (s *CropService) Update(ctx context.Context, req UpdateCropRequest) (*repository.Crop, error) {
	if err := s.guard.Write(ctx, PageCrops); err != nil {
		return nil, err
	}
	crop, err := s.crops.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationf("crop name is required")
		}
		crop.Name = name
	}
	if req.Variety != nil {
		crop.Variety = strings.TrimSpace(*req.Variety)
	}
	if req.Acreage != nil {
		if err := checkFinite("acreage", *req.Acreage); err != nil {
			return nil, err
		}
		if *req.Acreage < 0 {
			return nil, validationf("acreage must not be negative")
		}
		crop.Acreage = req.Acreage
	}
	if req.Season != nil {
		crop.Season = strings.TrimSpace(*req.Season)
	}
	if req.Notes != nil {
		crop.Notes = *req.Notes
	}
	if err := s.crops.Update(ctx, crop); err != nil {
		return nil, err
	}
	return crop, nil
}

func (s *CropService) Delete(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageCrops); err != nil {
		return err
	}
	return s.crops.Delete(ctx, id)
}

type AddTaskRequest struct {
	Title        string
	Description  string
	CropID       *int64
	AssignedTo   string
	ScheduledFor string
}

type TaskService struct {
	tasks repository.TaskRepository
	crops repository.CropRepository
	guard *Guard
}

func NewTaskService(tasks repository.TaskRepository, crops repository.CropRepository, guard *Guard) *TaskService {
	return &TaskService{tasks: tasks, crops: crops, guard: guard}
}

// List returns tasks newest first. An empty status lists all of them.
func (s *TaskService) List(ctx context.Context, status string) ([]repository.Task, error) {
	if err := s.guard.Read(ctx, PageTasks); err != nil {
		return nil, err
	}
	switch status {
	case "":
		return s.tasks.List(ctx)
	case repository.TaskStatusPending, repository.TaskStatusDone:
		return s.tasks.ListByStatus(ctx, status)
	default:
		return nil, validationf("unknown task status %q", status)
	}
}

func (s *TaskService) Add(ctx context.Context, req AddTaskRequest) (*repository.Task, error) {
	if err := s.guard.Write(ctx, PageTasks); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationf("task title is required")
	}
	if req.ScheduledFor != "" && !validDay(req.ScheduledFor) {
		return nil, validationf("scheduled date %q must be YYYY-MM-DD", req.ScheduledFor)
	}
	if err := checkCropRef(ctx, s.crops, req.CropID); err != nil {
		return nil, err
	}

	task := &repository.Task{
		Title:        title,
		Description:  req.Description,
		CropID:       req.CropID,
		AssignedTo:   strings.TrimSpace(req.AssignedTo),
		ScheduledFor: req.ScheduledFor,
		Status:       repository.TaskStatusPending,
	}
	if err := s.tasks.Add(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) SetDone(ctx context.Context, id int64, done bool) (*repository.Task, error) {
	if err := s.guard.Write(ctx, PageTasks); err != nil {
		return nil, err
	}
	return s.tasks.SetDone(ctx, id, done)
}

// Toggle flips a task between pending and done.
func (s *TaskService) Toggle(ctx context.Context, id int64) (*repository.Task, error) {
	if err := s.guard.Write(ctx, PageTasks); err != nil {
		return nil, err
	}
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tasks.SetDone(ctx, id, !task.Done())
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageTasks); err != nil {
		return err
	}
	return s.tasks.Delete(ctx, id)
}

type AddExpenseRequest struct {
	Category   string
	Amount     float64
	Currency   string
	IncurredOn string
	CropID     *int64
	Notes      string
}

type ExpenseService struct {
	expenses repository.ExpenseRepository
	crops    repository.CropRepository
	guard    *Guard
}

func NewExpenseService(expenses repository.ExpenseRepository, crops repository.CropRepository, guard *Guard) *ExpenseService {
	return &ExpenseService{expenses: expenses, crops: crops, guard: guard}
}

func (s *ExpenseService) List(ctx context.Context) ([]repository.Expense, error) {
	if err := s.guard.Read(ctx, PageExpenses); err != nil {
		return nil, err
	}
	return s.expenses.List(ctx)
}

// Between returns expenses incurred in [from, to]. Stores without range
// predicates are filtered in memory.
func (s *ExpenseService) Between(ctx context.Context, from, to string) ([]repository.Expense, error) {
	if err := s.guard.Read(ctx, PageExpenses); err != nil {
		return nil, err
	}
	if !validDay(from) || !validDay(to) {
		return nil, validationf("date range must be YYYY-MM-DD")
	}
	return expensesBetween(ctx, s.expenses, from, to)
}

func expensesBetween(ctx context.Context, expenses repository.ExpenseRepository, from, to string) ([]repository.Expense, error) {
	out, err := expenses.ListBetween(ctx, from, to)
	if err == nil || !errors.Is(err, storage.ErrUnsupportedCommand) {
		return out, err
	}

	all, err := expenses.List(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]repository.Expense, 0, len(all))
	for _, e := range all {
		if e.IncurredOn >= from && e.IncurredOn <= to {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ExpenseService) Add(ctx context.Context, req AddExpenseRequest) (*repository.Expense, error) {
	if err := s.guard.Write(ctx, PageExpenses); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, validationf("expense category is required")
	}
	if err := checkFinite("expense amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, validationf("expense amount must be positive")
	}
	day := req.IncurredOn
	if day == "" {
		day = today()
	}
	if !validDay(day) {
		return nil, validationf("expense date %q must be YYYY-MM-DD", day)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = repository.DefaultCurrency
	}
	if err := checkCropRef(ctx, s.crops, req.CropID); err != nil {
		return nil, err
	}

	expense := &repository.Expense{
		CropID:     req.CropID,
		Category:   category,
		Amount:     req.Amount,
		Currency:   currency,
		IncurredOn: day,
		Notes:      req.Notes,
	}
	if err := s.expenses.Add(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageExpenses); err != nil {
		return err
	}
	return s.expenses.Delete(ctx, id)
}

// checkCropRef rejects references to crops that do not exist. The store does
// not enforce foreign keys, so this is the only check at create time.
func checkCropRef(ctx context.Context, crops repository.CropRepository, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := crops.Get(ctx, *id); err != nil {
		if isNotFound(err) {
			return validationf("crop %d does not exist", *id)
		}
		return fmt.Errorf("check crop: %w", err)
	}
	return nil
}
