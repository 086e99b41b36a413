package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/NatDug/Field-Buddy/internal/notify"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

// Operators a threshold may compare with.
var Operators = []string{">", ">=", "<", "<=", "==", "!="}

type AddThresholdRequest struct {
	Metric   string
	Operator string
	Value    float64
	Message  string
	CropID   *int64
}

// Reading is one observed weather or field measurement.
type Reading struct {
	Metric string
	Value  float64
	Unit   string
	CropID *int64
	At     time.Time
}

// AlertService evaluates readings against active thresholds. Every reading
// is kept as a metric; every threshold it trips is recorded as an alert and
// scheduled as a notification.
type AlertService struct {
	thresholds repository.ThresholdRepository
	alerts     repository.AlertRepository
	metrics    repository.MetricRepository
	crops      repository.CropRepository
	notifier   notify.Scheduler
	guard      *Guard
	logger     *slog.Logger

	mu       sync.Mutex
	programs map[string]*vm.Program
}

func NewAlertService(
	thresholds repository.ThresholdRepository,
	alerts repository.AlertRepository,
	metrics repository.MetricRepository,
	crops repository.CropRepository,
	notifier notify.Scheduler,
	guard *Guard,
	logger *slog.Logger,
) *AlertService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertService{
		thresholds: thresholds,
		alerts:     alerts,
		metrics:    metrics,
		crops:      crops,
		notifier:   notifier,
		guard:      guard,
		logger:     logger,
		programs:   map[string]*vm.Program{},
	}
}

func (s *AlertService) Thresholds(ctx context.Context) ([]repository.Threshold, error) {
	if err := s.guard.Read(ctx, PageAlerts); err != nil {
		return nil, err
	}
	return s.thresholds.List(ctx)
}

func (s *AlertService) AddThreshold(ctx context.Context, req AddThresholdRequest) (*repository.Threshold, error) {
	if err := s.guard.Write(ctx, PageAlerts); err != nil {
		return nil, err
	}
	metric := normalizeMetric(req.Metric)
	if metric == "" {
		return nil, validationf("threshold metric is required")
	}
	if err := checkFinite("threshold value", req.Value); err != nil {
		return nil, err
	}
	if _, err := s.program(req.Operator); err != nil {
		return nil, err
	}
	if err := checkCropRef(ctx, s.crops, req.CropID); err != nil {
		return nil, err
	}

	threshold := &repository.Threshold{
		CropID:   req.CropID,
		Metric:   metric,
		Operator: req.Operator,
		Value:    req.Value,
		Message:  strings.TrimSpace(req.Message),
		Active:   true,
	}
	if err := s.thresholds.Add(ctx, threshold); err != nil {
		return nil, err
	}
	return threshold, nil
}

func (s *AlertService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.guard.Write(ctx, PageAlerts); err != nil {
		return err
	}
	return s.thresholds.SetActive(ctx, id, active)
}

func (s *AlertService) DeleteThreshold(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageAlerts); err != nil {
		return err
	}
	return s.thresholds.Delete(ctx, id)
}

func (s *AlertService) Alerts(ctx context.Context, limit int) ([]repository.Alert, error) {
	if err := s.guard.Read(ctx, PageAlerts); err != nil {
		return nil, err
	}
	return s.alerts.List(ctx, limit)
}

func (s *AlertService) Readings(ctx context.Context, metric string, limit int) ([]repository.Metric, error) {
	if err := s.guard.Read(ctx, PageAlerts); err != nil {
		return nil, err
	}
	return s.metrics.List(ctx, normalizeMetric(metric), limit)
}

// Evaluate records the reading and returns the alerts it triggered.
// Thresholds scoped to a crop only apply to readings for that crop.
func (s *AlertService) Evaluate(ctx context.Context, reading Reading) ([]repository.Alert, error) {
	if err := s.guard.Write(ctx, PageAlerts); err != nil {
		return nil, err
	}
	metric := normalizeMetric(reading.Metric)
	if metric == "" {
		return nil, validationf("reading metric is required")
	}
	if err := checkFinite("reading value", reading.Value); err != nil {
		return nil, err
	}
	at := reading.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if err := s.metrics.Record(ctx, &repository.Metric{
		CropID:     reading.CropID,
		Name:       metric,
		Value:      reading.Value,
		Unit:       reading.Unit,
		RecordedAt: at,
	}); err != nil {
		return nil, err
	}

	thresholds, err := s.thresholds.ListActiveForMetric(ctx, metric)
	if err != nil {
		return nil, err
	}

	triggered := make([]repository.Alert, 0)
	for _, th := range thresholds {
		if th.CropID != nil && (reading.CropID == nil || *reading.CropID != *th.CropID) {
			continue
		}
		hit, err := s.matches(th, reading.Value)
		if err != nil {
			return nil, fmt.Errorf("evaluate threshold %d: %w", th.ID, err)
		}
		if !hit {
			continue
		}

		alert := repository.Alert{
			ThresholdID: &th.ID,
			Metric:      metric,
			Observed:    reading.Value,
			Message:     alertMessage(th, reading.Value),
			TriggeredAt: at,
		}
		if err := s.alerts.Record(ctx, &alert); err != nil {
			return nil, err
		}
		if s.notifier != nil {
			if _, err := s.notifier.Schedule(ctx, notify.Notification{Title: "Weather alert: " + metric, Body: alert.Message}); err != nil {
				return nil, fmt.Errorf("notify alert: %w", err)
			}
		}
		s.logger.Info("threshold triggered", "threshold_id", th.ID, "metric", metric, "observed", reading.Value)
		triggered = append(triggered, alert)
	}
	return triggered, nil
}

func (s *AlertService) matches(th repository.Threshold, observed float64) (bool, error) {
	program, err := s.program(th.Operator)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, map[string]any{"observed": observed, "limit": th.Value})
	if err != nil {
		return false, err
	}
	hit, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("rule returned %T", out)
	}
	return hit, nil
}

// program compiles "observed <op> limit" once per operator.
func (s *AlertService) program(op string) (*vm.Program, error) {
	if !slices.Contains(Operators, op) {
		return nil, validationf("unknown operator %q (want one of %s)", op, strings.Join(Operators, " "))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.programs[op]; ok {
		return p, nil
	}
	p, err := expr.Compile("observed "+op+" limit",
		expr.Env(map[string]any{"observed": 0.0, "limit": 0.0}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", op, err)
	}
	s.programs[op] = p
	return p, nil
}

func alertMessage(th repository.Threshold, observed float64) string {
	if th.Message != "" {
		return th.Message
	}
	return fmt.Sprintf("%s %g %s %g", th.Metric, observed, th.Operator, th.Value)
}

func normalizeMetric(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
