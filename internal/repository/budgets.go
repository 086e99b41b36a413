package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	tableBudgets   = "budgets"
	tableDocuments = "documents"
)

// budgetRepository keys budgets on (month, year, category). Upsert reads the
// triple and then inserts or updates; the two steps are not atomic.
type budgetRepository struct {
	exec storage.Executor
}

func (r *budgetRepository) List(ctx context.Context) ([]Budget, error) {
	cmd := storage.Select(tableBudgets).OrderedBy("year", true).OrderedBy("month", true).OrderedBy("category", false)
	budgets, err := selectAll(ctx, r.exec, cmd, decodeBudget)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (r *budgetRepository) ListForMonth(ctx context.Context, month, year int) ([]Budget, error) {
	cmd := storage.Select(tableBudgets, storage.Eq("month", month), storage.Eq("year", year)).OrderedBy("category", false)
	budgets, err := selectAll(ctx, r.exec, cmd, decodeBudget)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %04d-%02d: %w", year, month, err)
	}
	return budgets, nil
}

func (r *budgetRepository) Upsert(ctx context.Context, budget *Budget) error {
	if budget == nil {
		return fmt.Errorf("upsert budget: budget is nil")
	}
	if budget.Month < 1 || budget.Month > 12 {
		return fmt.Errorf("upsert budget: month %d out of range", budget.Month)
	}
	if budget.Category == "" {
		return fmt.Errorf("upsert budget: category is required")
	}

	key := []storage.Predicate{
		storage.Eq("month", budget.Month),
		storage.Eq("year", budget.Year),
		storage.Eq("category", budget.Category),
	}
	row, err := selectOne(ctx, r.exec, storage.Select(tableBudgets, key...))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("upsert budget: %w", err)
	}

	now := nowUTC()
	budget.UpdatedAt = now
	if row == nil {
		budget.CreatedAt = now
		res, err := r.exec.Exec(ctx, storage.Insert(tableBudgets,
			storage.Set("month", budget.Month),
			storage.Set("year", budget.Year),
			storage.Set("category", budget.Category),
			storage.Set("planned_amount", budget.PlannedAmount),
			storage.Set("created_at", fmtTime(now)),
			storage.Set("updated_at", fmtTime(now)),
		))
		if err != nil {
			return fmt.Errorf("upsert budget: insert: %w", err)
		}
		budget.ID = res.InsertID
		return nil
	}

	existing, err := decodeBudget(row)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	budget.ID = existing.ID
	budget.CreatedAt = existing.CreatedAt
	_, err = r.exec.Exec(ctx, storage.UpdateByID(tableBudgets, existing.ID,
		storage.Set("planned_amount", budget.PlannedAmount),
		storage.Set("updated_at", fmtTime(now)),
	))
	if err != nil {
		return fmt.Errorf("upsert budget: update: %w", err)
	}
	return nil
}

func (r *budgetRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableBudgets, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func decodeBudget(row storage.Row) (*Budget, error) {
	rr := read(row)
	budget := &Budget{
		ID:            rr.int64("id"),
		Month:         rr.int("month"),
		Year:          rr.int("year"),
		Category:      rr.str("category"),
		PlannedAmount: rr.float("planned_amount"),
		CreatedAt:     rr.time("created_at"),
		UpdatedAt:     rr.time("updated_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode budget: %w", err)
	}
	return budget, nil
}

type documentRepository struct {
	exec storage.Executor
}

func (r *documentRepository) List(ctx context.Context) ([]Document, error) {
	docs, err := selectAll(ctx, r.exec, storage.Select(tableDocuments).OrderedBy("created_at", true).OrderedBy("id", true), decodeDocument)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) Add(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("add document: document is nil")
	}
	if doc.Title == "" {
		return fmt.Errorf("add document: title is required")
	}
	doc.CreatedAt = nowUTC()
	doc.Tags = splitTags(joinTags(doc.Tags))

	res, err := r.exec.Exec(ctx, storage.Insert(tableDocuments,
		storage.Set("title", doc.Title),
		storage.Set("type", nullable(doc.Type)),
		storage.Set("tags", nullable(joinTags(doc.Tags))),
		storage.Set("file_uri", nullable(doc.FileURI)),
		storage.Set("created_at", fmtTime(doc.CreatedAt)),
	))
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	doc.ID = res.InsertID
	return nil
}

func (r *documentRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableDocuments, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func decodeDocument(row storage.Row) (*Document, error) {
	rr := read(row)
	doc := &Document{
		ID:        rr.int64("id"),
		Title:     rr.str("title"),
		Type:      rr.str("type"),
		Tags:      splitTags(rr.str("tags")),
		FileURI:   rr.str("file_uri"),
		CreatedAt: rr.time("created_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
