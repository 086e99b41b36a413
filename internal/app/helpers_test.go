package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NatDug/Field-Buddy/internal/geo"
	"github.com/NatDug/Field-Buddy/internal/notify"
	"github.com/NatDug/Field-Buddy/internal/repository"
	"github.com/NatDug/Field-Buddy/internal/storage"
	"github.com/NatDug/Field-Buddy/internal/usda"
)

type schedulerMock struct {
	mock.Mock
}

func (m *schedulerMock) Schedule(ctx context.Context, n notify.Notification) (string, error) {
	args := m.Called(ctx, n)
	return args.String(0), args.Error(1)
}

func (m *schedulerMock) PermissionGranted(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type locatorMock struct {
	mock.Mock
}

func (m *locatorMock) Current(ctx context.Context) (geo.Position, error) {
	args := m.Called(ctx)
	return args.Get(0).(geo.Position), args.Error(1)
}

type geocoderMock struct {
	mock.Mock
}

func (m *geocoderMock) Search(ctx context.Context, q string) (geo.Position, geo.Address, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(geo.Position), args.Get(1).(geo.Address), args.Error(2)
}

func (m *geocoderMock) Reverse(ctx context.Context, pos geo.Position) (geo.Address, error) {
	args := m.Called(ctx, pos)
	return args.Get(0).(geo.Address), args.Error(1)
}

type classifierMock struct {
	mock.Mock
}

func (m *classifierMock) Classify(ctx context.Context, loc usda.Location) (usda.Classification, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(usda.Classification), args.Error(1)
}

type identityMock struct {
	mock.Mock
}

func (m *identityMock) Name() string { return "google" }

func (m *identityMock) Authenticate(ctx context.Context) (Identity, error) {
	args := m.Called(ctx)
	return args.Get(0).(Identity), args.Error(1)
}

type testEnv struct {
	svc        *Services
	repos      *repository.Repositories
	notifier   *schedulerMock
	locator    *locatorMock
	geocoder   *geocoderMock
	classifier *classifierMock
	identity   *identityMock
	dir        string
}

func newTestEnv(t *testing.T, backend storage.Backend) *testEnv {
	t.Helper()

	dir := t.TempDir()
	g, err := storage.Open(context.Background(), storage.Options{Backend: backend, DataDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, g.Close()) })

	env := &testEnv{
		repos:      repository.New(g),
		notifier:   &schedulerMock{},
		locator:    &locatorMock{},
		geocoder:   &geocoderMock{},
		classifier: &classifierMock{},
		identity:   &identityMock{},
		dir:        dir,
	}
	env.svc = New(Deps{
		Repos:      env.repos,
		Locator:    env.locator,
		Geocoder:   env.geocoder,
		Classifier: env.classifier,
		Notifier:   env.notifier,
		Identity:   env.identity,
		Sessions:   NewFileSessionStore(filepath.Join(dir, SessionFileName)),
	})
	return env
}

func forEachBackend(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Helper()
	for _, backend := range []storage.Backend{storage.BackendSQLite, storage.BackendKV} {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()
			fn(t, newTestEnv(t, backend))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func thresholdFor(op string, limit float64) repository.Threshold {
	return repository.Threshold{Metric: "m", Operator: op, Value: limit, Active: true}
}
