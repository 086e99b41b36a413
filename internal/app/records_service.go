package app

import (
	"context"
	"slices"
	"strings"

	"github.com/NatDug/Field-Buddy/internal/repository"
)

type SetBudgetRequest struct {
	Month    int
	Year     int
	Category string
	Amount   float64
}

type BudgetService struct {
	budgets repository.BudgetRepository
	guard   *Guard
}

func NewBudgetService(budgets repository.BudgetRepository, guard *Guard) *BudgetService {
	return &BudgetService{budgets: budgets, guard: guard}
}

// List returns every budget, or one month's when month and year are set.
func (s *BudgetService) List(ctx context.Context, month, year int) ([]repository.Budget, error) {
	if err := s.guard.Read(ctx, PageExpenses); err != nil {
		return nil, err
	}
	if month == 0 && year == 0 {
		return s.budgets.List(ctx)
	}
	if err := validMonth(month, year); err != nil {
		return nil, err
	}
	return s.budgets.ListForMonth(ctx, month, year)
}

// Set plans an amount for a category in a month. Setting the same month and
// category again overwrites the amount.
func (s *BudgetService) Set(ctx context.Context, req SetBudgetRequest) (*repository.Budget, error) {
	if err := s.guard.Write(ctx, PageExpenses); err != nil {
		return nil, err
	}
	if err := validMonth(req.Month, req.Year); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, validationf("budget category is required")
	}
	if err := checkFinite("budget amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, validationf("budget amount must not be negative")
	}

	budget := &repository.Budget{
		Month:         req.Month,
		Year:          req.Year,
		Category:      category,
		PlannedAmount: req.Amount,
	}
	if err := s.budgets.Upsert(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageExpenses); err != nil {
		return err
	}
	return s.budgets.Delete(ctx, id)
}

func validMonth(month, year int) error {
	if month < 1 || month > 12 {
		return validationf("month %d out of range", month)
	}
	if year < 1 {
		return validationf("year %d out of range", year)
	}
	return nil
}

type AddDocumentRequest struct {
	Title   string
	Type    string
	Tags    []string
	FileURI string
}

type DocumentService struct {
	docs  repository.DocumentRepository
	guard *Guard
}

func NewDocumentService(docs repository.DocumentRepository, guard *Guard) *DocumentService {
	return &DocumentService{docs: docs, guard: guard}
}

// List returns documents newest first, restricted to tag when set.
func (s *DocumentService) List(ctx context.Context, tag string) ([]repository.Document, error) {
	if err := s.guard.Read(ctx, PageDocuments); err != nil {
		return nil, err
	}
	docs, err := s.docs.List(ctx)
	if err != nil || tag == "" {
		return docs, err
	}
	out := make([]repository.Document, 0, len(docs))
	for _, doc := range docs {
		if slices.Contains(doc.Tags, tag) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *DocumentService) Add(ctx context.Context, req AddDocumentRequest) (*repository.Document, error) {
	if err := s.guard.Write(ctx, PageDocuments); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationf("document title is required")
	}
	doc := &repository.Document{
		Title:   title,
		Type:    strings.TrimSpace(req.Type),
		Tags:    req.Tags,
		FileURI: strings.TrimSpace(req.FileURI),
	}
	if err := s.docs.Add(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageDocuments); err != nil {
		return err
	}
	return s.docs.Delete(ctx, id)
}

type OverrideService struct {
	overrides repository.OverrideRepository
	guard     *Guard
}

func NewOverrideService(overrides repository.OverrideRepository, guard *Guard) *OverrideService {
	return &OverrideService{overrides: overrides, guard: guard}
}

func (s *OverrideService) All(ctx context.Context) (map[string]string, error) {
	if err := s.guard.Read(ctx, PageProfile); err != nil {
		return nil, err
	}
	return s.overrides.All(ctx)
}

// Label returns the override for key, or fallback when none is stored.
func (s *OverrideService) Label(ctx context.Context, key, fallback string) (string, error) {
	o, err := s.overrides.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return fallback, nil
		}
		return "", err
	}
	return o.Value, nil
}

func (s *OverrideService) Set(ctx context.Context, key, value string) error {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return validationf("override key is required")
	}
	return s.overrides.Set(ctx, key, value)
}

func (s *OverrideService) Delete(ctx context.Context, key string) error {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return err
	}
	return s.overrides.Delete(ctx, key)
}
