package usda

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NatDug/Field-Buddy/internal/geo"
)

func TestFarmTypeThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		strata *Strata
		want   string
		score  float64
	}{
		{nil, FarmTypeUnknown, 0},
		{&Strata{PercentCultivated: 75}, FarmTypeCultivated, 75},
		{&Strata{PercentCultivated: 70}, FarmTypeMixed, 70},
		{&Strata{PercentCultivated: 31}, FarmTypeMixed, 31},
		{&Strata{PercentCultivated: 30}, FarmTypeNonAgriculture, 30},
	}
	for _, tc := range cases {
		got, score := FarmType(tc.strata)
		require.Equal(t, tc.want, got)
		require.Equal(t, tc.score, score)
	}
}

type cropSourceMock struct {
	mock.Mock
}

func (m *cropSourceMock) CropData(ctx context.Context, q CropQuery) []CropData {
	args := m.Called(ctx, q)
	return args.Get(0).([]CropData)
}

type strataMatcherMock struct {
	mock.Mock
}

func (m *strataMatcherMock) Match(ctx context.Context, pos geo.Position) (*Strata, error) {
	args := m.Called(ctx, pos)
	s, _ := args.Get(0).(*Strata)
	return s, args.Error(1)
}

func TestStrataClassifierUsesMockStrataAndDefaultState(t *testing.T) {
	t.Parallel()

	crops := &cropSourceMock{}
	crops.On("CropData", mock.Anything, CropQuery{State: "CA"}).Return([]CropData{{Commodity: "CORN", Year: 2023, Value: 1200}})

	c := NewStrataClassifier(nil, crops, "CA")
	got, err := c.Classify(context.Background(), Location{Position: geo.Position{Latitude: 36.7, Longitude: -119.8}})
	require.NoError(t, err)
	require.Equal(t, FarmTypeCultivated, got.FarmType)
	require.Equal(t, 75.0, got.EfficiencyScore)
	require.Equal(t, MockStrataID, got.Strata.ID)
	require.Len(t, got.Crops, 1)
	crops.AssertExpectations(t)
}

func TestStrataClassifierUnknownWithoutStrata(t *testing.T) {
	t.Parallel()

	matcher := &strataMatcherMock{}
	matcher.On("Match", mock.Anything, mock.Anything).Return(nil, nil).Once()
	got, err := NewStrataClassifier(matcher, nil, "").Classify(context.Background(), Location{})
	require.NoError(t, err)
	require.Equal(t, FarmTypeUnknown, got.FarmType)
	require.Zero(t, got.EfficiencyScore)
	require.Empty(t, got.Crops)

	matcher.On("Match", mock.Anything, mock.Anything).Return(nil, errors.New("offline")).Once()
	_, err = NewStrataClassifier(matcher, nil, "").Classify(context.Background(), Location{})
	require.ErrorContains(t, err, "offline")
}

func TestQuickStatsCropData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("key"))
		assert.Equal(t, "IA", q.Get("state_alpha"))
		assert.Equal(t, "STORY", q.Get("county_name"))
		assert.Equal(t, "2023", q.Get("year"))
		assert.Equal(t, "FIELD CROPS", q.Get("group_desc"))
		_, _ = w.Write([]byte(`{"data":[
			{"commodity_desc":"CORN","year":2023,"state_alpha":"IA","county_name":"STORY","Value":"2,512,000","unit_desc":"BU","source_desc":"SURVEY"},
			{"commodity_desc":"OATS","year":2023,"state_alpha":"IA","county_name":"STORY","Value":" (D)","unit_desc":"BU","source_desc":"SURVEY"}
		]}`))
	}))
	defer srv.Close()

	c := NewQuickStatsClient(srv.URL, "secret", time.Second, slog.New(slog.DiscardHandler))
	rows := c.CropData(context.Background(), CropQuery{State: "ia", County: "Story County", Year: 2023})
	require.Len(t, rows, 2)
	require.Equal(t, CropData{Commodity: "CORN", Year: 2023, State: "IA", County: "STORY", Value: 2512000, Unit: "BU", Source: "SURVEY"}, rows[0])
	require.Zero(t, rows[1].Value)
}

func TestQuickStatsFailuresYieldEmptyList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	logger := slog.New(slog.DiscardHandler)
	rows := NewQuickStatsClient(srv.URL, "secret", time.Second, logger).CropData(context.Background(), CropQuery{State: "IA"})
	require.NotNil(t, rows)
	require.Empty(t, rows)

	rows = NewQuickStatsClient(srv.URL, "", time.Second, logger).CropData(context.Background(), CropQuery{State: "IA"})
	require.Empty(t, rows)
}

func TestQuickStatsErrorsDoNotLeakAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewQuickStatsClient(base, "very-secret", time.Second, nil).fetch(context.Background(), CropQuery{State: "IA"})
	require.Error(t, err)
	require.NotContains(t, err.Error(), "very-secret")
}

func TestQuickStatsMalformedBaseURLDoesNotLeakAPIKey(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"://no-scheme/api_GET/", "http://quickstats\x7f.example/api_GET/"} {
		_, err := NewQuickStatsClient(base, "very-secret", time.Second, nil).fetch(context.Background(), CropQuery{State: "IA"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "quickstats: parse")
		require.NotContains(t, err.Error(), "very-secret")
		require.NotContains(t, err.Error(), "key=")
	}
}
