package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	tableWeatherThresholds = "weather_thresholds"
	tableWeatherAlerts     = "weather_alerts"
	tableMetrics           = "metrics"
)

type thresholdRepository struct {
	exec storage.Executor
}

func (r *thresholdRepository) List(ctx context.Context) ([]Threshold, error) {
	thresholds, err := selectAll(ctx, r.exec, storage.Select(tableWeatherThresholds).OrderedBy("id", false), decodeThreshold)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	return thresholds, nil
}

func (r *thresholdRepository) ListActiveForMetric(ctx context.Context, metric string) ([]Threshold, error) {
	cmd := storage.Select(tableWeatherThresholds, storage.Eq("metric", metric), storage.Eq("is_active", true)).OrderedBy("id", false)
	thresholds, err := selectAll(ctx, r.exec, cmd, decodeThreshold)
	if err != nil {
		return nil, fmt.Errorf("list active %s thresholds: %w", metric, err)
	}
	return thresholds, nil
}

func (r *thresholdRepository) Get(ctx context.Context, id int64) (*Threshold, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableWeatherThresholds, storage.ByID(id)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get threshold: %w", err)
	}
	threshold, err := decodeThreshold(row)
	if err != nil {
		return nil, fmt.Errorf("get threshold: %w", err)
	}
	return threshold, nil
}

func (r *thresholdRepository) Add(ctx context.Context, threshold *Threshold) error {
	if threshold == nil {
		return fmt.Errorf("add threshold: threshold is nil")
	}
	threshold.CreatedAt = nowUTC()

	res, err := r.exec.Exec(ctx, storage.Insert(tableWeatherThresholds,
		storage.Set("crop_id", threshold.CropID),
		storage.Set("metric", threshold.Metric),
		storage.Set("operator", threshold.Operator),
		storage.Set("value", threshold.Value),
		storage.Set("message", nullable(threshold.Message)),
		storage.Set("is_active", threshold.Active),
		storage.Set("created_at", fmtTime(threshold.CreatedAt)),
	))
	if err != nil {
		return fmt.Errorf("add threshold: %w", err)
	}
	threshold.ID = res.InsertID
	return nil
}

func (r *thresholdRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if err := updateOne(ctx, r.exec, storage.UpdateByID(tableWeatherThresholds, id, storage.Set("is_active", active))); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("set threshold active: %w", err)
	}
	return nil
}

func (r *thresholdRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableWeatherThresholds, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete threshold: %w", err)
	}
	return nil
}

func decodeThreshold(row storage.Row) (*Threshold, error) {
	rr := read(row)
	threshold := &Threshold{
		ID:        rr.int64("id"),
		CropID:    rr.optInt64("crop_id"),
		Metric:    rr.str("metric"),
		Operator:  rr.str("operator"),
		Value:     rr.float("value"),
		Message:   rr.str("message"),
		Active:    rr.boolean("is_active", true),
		CreatedAt: rr.time("created_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode threshold: %w", err)
	}
	return threshold, nil
}

type alertRepository struct {
	exec storage.Executor
}

func (r *alertRepository) Record(ctx context.Context, alert *Alert) error {
	if alert == nil {
		return fmt.Errorf("record alert: alert is nil")
	}
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = nowUTC()
	}
	res, err := r.exec.Exec(ctx, storage.Insert(tableWeatherAlerts,
		storage.Set("threshold_id", alert.ThresholdID),
		storage.Set("metric", alert.Metric),
		storage.Set("observed", alert.Observed),
		storage.Set("message", nullable(alert.Message)),
		storage.Set("triggered_at", fmtTime(alert.TriggeredAt)),
	))
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	alert.ID = res.InsertID
	return nil
}

// List returns the most recent alerts first; limit <= 0 means all.
func (r *alertRepository) List(ctx context.Context, limit int) ([]Alert, error) {
	cmd := storage.Select(tableWeatherAlerts).OrderedBy("triggered_at", true).OrderedBy("id", true)
	if limit > 0 {
		cmd = cmd.Limited(limit)
	}
	alerts, err := selectAll(ctx, r.exec, cmd, decodeAlert)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func decodeAlert(row storage.Row) (*Alert, error) {
	rr := read(row)
	alert := &Alert{
		ID:          rr.int64("id"),
		ThresholdID: rr.optInt64("threshold_id"),
		Metric:      rr.str("metric"),
		Observed:    rr.float("observed"),
		Message:     rr.str("message"),
		TriggeredAt: rr.time("triggered_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	return alert, nil
}

type metricRepository struct {
	exec storage.Executor
}

func (r *metricRepository) Record(ctx context.Context, metric *Metric) error {
	if metric == nil {
		return fmt.Errorf("record metric: metric is nil")
	}
	if metric.Name == "" {
		return fmt.Errorf("record metric: name is required")
	}
	if metric.RecordedAt.IsZero() {
		metric.RecordedAt = nowUTC()
	}
	res, err := r.exec.Exec(ctx, storage.Insert(tableMetrics,
		storage.Set("crop_id", metric.CropID),
		storage.Set("name", metric.Name),
		storage.Set("value", metric.Value),
		storage.Set("unit", nullable(metric.Unit)),
		storage.Set("recorded_at", fmtTime(metric.RecordedAt)),
	))
	if err != nil {
		return fmt.Errorf("record metric: %w", err)
	}
	metric.ID = res.InsertID
	return nil
}

// List returns readings newest first, filtered by name when name is set.
func (r *metricRepository) List(ctx context.Context, name string, limit int) ([]Metric, error) {
	cmd := storage.Select(tableMetrics)
	if name != "" {
		cmd = storage.Select(tableMetrics, storage.Eq("name", name))
	}
	cmd = cmd.OrderedBy("recorded_at", true).OrderedBy("id", true)
	if limit > 0 {
		cmd = cmd.Limited(limit)
	}
	metrics, err := selectAll(ctx, r.exec, cmd, decodeMetric)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return metrics, nil
}

func decodeMetric(row storage.Row) (*Metric, error) {
	rr := read(row)
	metric := &Metric{
		ID:         rr.int64("id"),
		CropID:     rr.optInt64("crop_id"),
		Name:       rr.str("name"),
		Value:      rr.float("value"),
		Unit:       rr.str("unit"),
		RecordedAt: rr.time("recorded_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode metric: %w", err)
	}
	return metric, nil
}
