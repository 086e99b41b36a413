package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NatDug/Field-Buddy/internal/notify"
)

func TestAlertServiceEvaluatesThresholds(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		alerts := env.svc.Alerts

		_, err := alerts.AddThreshold(ctx, AddThresholdRequest{Metric: "temperature", Operator: "=>", Value: 1})
		require.ErrorIs(t, err, ErrValidation)

		heat, err := alerts.AddThreshold(ctx, AddThresholdRequest{Metric: "Temperature", Operator: ">=", Value: 35, Message: "Heat stress"})
		require.NoError(t, err)
		require.Equal(t, "temperature", heat.Metric)
		frost, err := alerts.AddThreshold(ctx, AddThresholdRequest{Metric: "temperature", Operator: "<", Value: 0})
		require.NoError(t, err)

		env.notifier.On("Schedule", mock.Anything, notify.Notification{Title: "Weather alert: temperature", Body: "Heat stress"}).
			Return("notification-1", nil).Once()

		got, err := alerts.Evaluate(ctx, Reading{Metric: "temperature", Value: 36.5, Unit: "C"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, heat.ID, *got[0].ThresholdID)
		require.Equal(t, 36.5, got[0].Observed)

		got, err = alerts.Evaluate(ctx, Reading{Metric: "temperature", Value: 20})
		require.NoError(t, err)
		require.Empty(t, got)

		require.NoError(t, alerts.SetActive(ctx, frost.ID, false))
		got, err = alerts.Evaluate(ctx, Reading{Metric: "temperature", Value: -3})
		require.NoError(t, err)
		require.Empty(t, got)
		env.notifier.AssertExpectations(t)

		readings, err := alerts.Readings(ctx, "temperature", 0)
		require.NoError(t, err)
		require.Len(t, readings, 3)

		history, err := alerts.Alerts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.Equal(t, "Heat stress", history[0].Message)
	})
}

func TestAlertServiceCropScopedThreshold(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "kv")
	ctx := context.Background()

	corn, err := env.svc.Crops.Add(ctx, AddCropRequest{Name: "Corn"})
	require.NoError(t, err)
	_, err = env.svc.Alerts.AddThreshold(ctx, AddThresholdRequest{Metric: "soil_moisture", Operator: "<", Value: 20, CropID: ptr(int64(404))})
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.svc.Alerts.AddThreshold(ctx, AddThresholdRequest{Metric: "soil_moisture", Operator: "<", Value: 20, CropID: &corn.ID})
	require.NoError(t, err)

	env.notifier.On("Schedule", mock.Anything, mock.Anything).Return("notification-1", nil).Once()

	got, err := env.svc.Alerts.Evaluate(ctx, Reading{Metric: "soil_moisture", Value: 12})
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = env.svc.Alerts.Evaluate(ctx, Reading{Metric: "soil_moisture", Value: 12, CropID: &corn.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "soil_moisture 12 < 20", got[0].Message)
	env.notifier.AssertExpectations(t)
}

func TestAlertServiceCompilesEachOperator(t *testing.T) {
	t.Parallel()

	s := NewAlertService(nil, nil, nil, nil, nil, nil, nil)
	cases := map[string][2]bool{
		">":  {true, false},
		">=": {true, true},
		"<":  {false, false},
		"<=": {false, true},
		"==": {false, true},
		"!=": {true, false},
	}
	for op, want := range cases {
		p1, err := s.program(op)
		require.NoError(t, err)
		p2, err := s.program(op)
		require.NoError(t, err)
		require.Same(t, p1, p2)

		above, err := s.matches(thresholdFor(op, 10), 11)
		require.NoError(t, err)
		require.Equal(t, want[0], above, "%s above", op)
		equal, err := s.matches(thresholdFor(op, 10), 10)
		require.NoError(t, err)
		require.Equal(t, want[1], equal, "%s equal", op)
	}
}
