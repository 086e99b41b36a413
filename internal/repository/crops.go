package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	tableCrops    = "crops"
	tableTasks    = "tasks"
	tableExpenses = "expenses"
)

type cropRepository struct {
	exec storage.Executor
}

func (r *cropRepository) List(ctx context.Context) ([]Crop, error) {
	crops, err := selectAll(ctx, r.exec, storage.Select(tableCrops).OrderedBy("created_at", true).OrderedBy("id", true), decodeCrop)
	if err != nil {
		return nil, fmt.Errorf("list crops: %w", err)
	}
	return crops, nil
}

func (r *cropRepository) Get(ctx context.Context, id int64) (*Crop, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableCrops, storage.ByID(id)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get crop: %w", err)
	}
	crop, err := decodeCrop(row)
	if err != nil {
		return nil, fmt.Errorf("get crop: %w", err)
	}
	return crop, nil
}

func (r *cropRepository) Add(ctx context.Context, crop *Crop) error {
	if crop == nil {
		return fmt.Errorf("add crop: crop is nil")
	}
	if crop.Name == "" {
		return fmt.Errorf("add crop: name is required")
	}
	crop.CreatedAt = nowUTC()

	res, err := r.exec.Exec(ctx, storage.Insert(tableCrops,
		storage.Set("name", crop.Name),
		storage.Set("variety", nullable(crop.Variety)),
		storage.Set("acreage", crop.Acreage),
		storage.Set("season", nullable(crop.Season)),
		storage.Set("notes", nullable(crop.Notes)),
		storage.Set("created_at", fmtTime(crop.CreatedAt)),
	))
	if err != nil {
		return fmt.Errorf("add crop: %w", err)
	}
	crop.ID = res.InsertID
	return nil
}

func (r *cropRepository) Update(ctx context.Context, crop *Crop) error {
	if crop == nil {
		return fmt.Errorf("update crop: crop is nil")
	}
	err := updateOne(ctx, r.exec, storage.UpdateByID(tableCrops, crop.ID,
		storage.Set("name", crop.Name),
		storage.Set("variety", nullable(crop.Variety)),
		storage.Set("acreage", crop.Acreage),
		storage.Set("season", nullable(crop.Season)),
		storage.Set("notes", nullable(crop.Notes)),
	))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("update crop: %w", err)
	}
	return nil
}

func (r *cropRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableCrops, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete crop: %w", err)
	}
	return nil
}

func decodeCrop(row storage.Row) (*Crop, error) {
	rr := read(row)
	crop := &Crop{
		ID:        rr.int64("id"),
		Name:      rr.str("name"),
		Variety:   rr.str("variety"),
		Acreage:   rr.optFloat("acreage"),
		Season:    rr.str("season"),
		Notes:     rr.str("notes"),
		CreatedAt: rr.time("created_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode crop: %w", err)
	}
	return crop, nil
}

type taskRepository struct {
	exec storage.Executor
}

func tasksNewestFirst(cmd storage.Command) storage.Command {
	return cmd.OrderedBy("created_at", true).OrderedBy("id", true)
}

func (r *taskRepository) List(ctx context.Context) ([]Task, error) {
	tasks, err := selectAll(ctx, r.exec, tasksNewestFirst(storage.Select(tableTasks)), decodeTask)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) ListByStatus(ctx context.Context, status string) ([]Task, error) {
	tasks, err := selectAll(ctx, r.exec, tasksNewestFirst(storage.Select(tableTasks, storage.Eq("status", status))), decodeTask)
	if err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", status, err)
	}
	return tasks, nil
}

func (r *taskRepository) Get(ctx context.Context, id int64) (*Task, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableTasks, storage.ByID(id)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	task, err := decodeTask(row)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) Add(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("add task: task is nil")
	}
	if task.Title == "" {
		return fmt.Errorf("add task: title is required")
	}
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	task.CreatedAt = nowUTC()

	res, err := r.exec.Exec(ctx, storage.Insert(tableTasks,
		storage.Set("crop_id", task.CropID),
		storage.Set("title", task.Title),
		storage.Set("description", nullable(task.Description)),
		storage.Set("status", task.Status),
		storage.Set("assigned_to", nullable(task.AssignedTo)),
		storage.Set("scheduled_for", nullable(task.ScheduledFor)),
		storage.Set("completed_at", optTime(task.CompletedAt)),
		storage.Set("created_at", fmtTime(task.CreatedAt)),
	))
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	task.ID = res.InsertID
	return nil
}

// SetDone marks a task done with a completion time, or pending with none.
func (r *taskRepository) SetDone(ctx context.Context, id int64, done bool) (*Task, error) {
	status := TaskStatusPending
	var completedAt *string
	if done {
		status = TaskStatusDone
		ts := fmtTime(nowUTC())
		completedAt = &ts
	}

	err := updateOne(ctx, r.exec, storage.UpdateByID(tableTasks, id,
		storage.Set("status", status),
		storage.Set("completed_at", completedAt),
	))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("set task done: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableTasks, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func decodeTask(row storage.Row) (*Task, error) {
	rr := read(row)
	task := &Task{
		ID:           rr.int64("id"),
		CropID:       rr.optInt64("crop_id"),
		Title:        rr.str("title"),
		Description:  rr.str("description"),
		Status:       rr.str("status"),
		AssignedTo:   rr.str("assigned_to"),
		ScheduledFor: rr.str("scheduled_for"),
		CompletedAt:  rr.optTime("completed_at"),
		CreatedAt:    rr.time("created_at"),
	}
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

type expenseRepository struct {
	exec storage.Executor
}

func expensesNewestFirst(cmd storage.Command) storage.Command {
	return cmd.OrderedBy("incurred_on", true).OrderedBy("created_at", true).OrderedBy("id", true)
}

func (r *expenseRepository) List(ctx context.Context) ([]Expense, error) {
	expenses, err := selectAll(ctx, r.exec, expensesNewestFirst(storage.Select(tableExpenses)), decodeExpense)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (r *expenseRepository) ListBetween(ctx context.Context, from, to string) ([]Expense, error) {
	cmd := storage.Select(tableExpenses, storage.Gte("incurred_on", from), storage.Lte("incurred_on", to))
	expenses, err := selectAll(ctx, r.exec, expensesNewestFirst(cmd), decodeExpense)
	if err != nil {
		return nil, fmt.Errorf("list expenses between %s and %s: %w", from, to, err)
	}
	return expenses, nil
}

func (r *expenseRepository) Add(ctx context.Context, expense *Expense) error {
	if expense == nil {
		return fmt.Errorf("add expense: expense is nil")
	}
	if expense.Currency == "" {
		expense.Currency = DefaultCurrency
	}
	expense.CreatedAt = nowUTC()

	res, err := r.exec.Exec(ctx, storage.Insert(tableExpenses,
		storage.Set("crop_id", expense.CropID),
		storage.Set("category", nullable(expense.Category)),
		storage.Set("amount", expense.Amount),
		storage.Set("currency", expense.Currency),
		storage.Set("incurred_on", nullable(expense.IncurredOn)),
		storage.Set("notes", nullable(expense.Notes)),
		storage.Set("created_at", fmtTime(expense.CreatedAt)),
	))
	if err != nil {
		return fmt.Errorf("add expense: %w", err)
	}
	expense.ID = res.InsertID
	return nil
}

func (r *expenseRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableExpenses, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func decodeExpense(row storage.Row) (*Expense, error) {
	rr := read(row)
	expense := &Expense{
		ID:         rr.int64("id"),
		CropID:     rr.optInt64("crop_id"),
		Category:   rr.str("category"),
		Amount:     rr.float("amount"),
		Currency:   rr.str("currency"),
		IncurredOn: rr.str("incurred_on"),
		Notes:      rr.str("notes"),
		CreatedAt:  rr.time("created_at"),
	}
	if expense.Currency == "" {
		expense.Currency = DefaultCurrency
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode expense: %w", err)
	}
	return expense, nil
}
