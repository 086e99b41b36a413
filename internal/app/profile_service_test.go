package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NatDug/Field-Buddy/internal/geo"
	"github.com/NatDug/Field-Buddy/internal/usda"
)

func TestProfileServiceSaveAndLocation(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		profiles := env.svc.Profile

		p, err := profiles.Get(ctx)
		require.NoError(t, err)
		require.Zero(t, p.ID)

		_, err = profiles.Save(ctx, SaveProfileRequest{Name: "Sam"})
		require.ErrorIs(t, err, ErrValidation)
		p, err = profiles.Save(ctx, SaveProfileRequest{Name: "Sam", FarmName: "Green Acres"})
		require.NoError(t, err)

		pos := geo.Position{Latitude: 36.7378, Longitude: -119.7871}
		env.locator.On("Current", mock.Anything).Return(pos, nil).Once()
		env.geocoder.On("Reverse", mock.Anything, pos).
			Return(geo.Address{Display: "Fresno, CA", State: "CA", County: "Fresno County", ZipCode: "93721"}, nil).Once()

		p, err = profiles.UseCurrentLocation(ctx)
		require.NoError(t, err)
		require.Equal(t, "Green Acres", p.FarmName)
		require.Equal(t, "CA", p.State)
		require.Equal(t, 36.7378, *p.Latitude)

		stored, err := profiles.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, "Fresno, CA", stored.Location)
		require.Equal(t, "93721", stored.ZipCode)
		env.locator.AssertExpectations(t)
		env.geocoder.AssertExpectations(t)
	})
}

func TestProfileServiceLocationFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "kv")
	ctx := context.Background()

	env.locator.On("Current", mock.Anything).Return(geo.Position{}, geo.ErrPermissionDenied).Once()
	_, err := env.svc.Profile.UseCurrentLocation(ctx)
	require.ErrorIs(t, err, geo.ErrPermissionDenied)

	// Coordinates are kept even when no address resolves.
	pos := geo.Position{Latitude: 1, Longitude: 2}
	env.locator.On("Current", mock.Anything).Return(pos, nil).Once()
	env.geocoder.On("Reverse", mock.Anything, pos).Return(geo.Address{}, geo.ErrAddressNotFound).Once()
	p, err := env.svc.Profile.UseCurrentLocation(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.00000, 2.00000", p.Location)

	env.geocoder.On("Search", mock.Anything, "nowhere").Return(geo.Position{}, geo.Address{}, geo.ErrAddressNotFound).Once()
	_, err = env.svc.Profile.SetAddress(ctx, "nowhere")
	require.ErrorIs(t, err, geo.ErrAddressNotFound)
	_, err = env.svc.Profile.SetAddress(ctx, "  ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestProfileServiceClassify(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "sqlite")
	ctx := context.Background()

	_, err := env.svc.Profile.Classify(ctx)
	require.ErrorIs(t, err, ErrValidation)

	pos := geo.Position{Latitude: 42.03, Longitude: -93.63}
	env.geocoder.On("Search", mock.Anything, "Ames, Iowa").
		Return(pos, geo.Address{Display: "Ames, IA", State: "IA", County: "Story County"}, nil).Once()
	_, err = env.svc.Profile.SetAddress(ctx, "Ames, Iowa")
	require.NoError(t, err)

	env.classifier.On("Classify", mock.Anything, usda.Location{Position: pos, State: "IA", County: "Story County"}).
		Return(usda.Classification{
			FarmType:        usda.FarmTypeCultivated,
			EfficiencyScore: 75,
			Strata:          &usda.Strata{ID: usda.MockStrataID, PercentCultivated: 75},
			Crops:           []usda.CropData{},
		}, nil).Once()

	c, err := env.svc.Profile.Classify(ctx)
	require.NoError(t, err)
	require.Equal(t, usda.FarmTypeCultivated, c.FarmType)

	p, err := env.svc.Profile.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, usda.FarmTypeCultivated, p.FarmType)
	require.Equal(t, 75.0, *p.EfficiencyScore)
	require.Equal(t, usda.MockStrataID, p.StrataID)

	env.classifier.On("Classify", mock.Anything, mock.Anything).Return(usda.Classification{}, errors.New("boom")).Once()
	_, err = env.svc.Profile.Classify(ctx)
	require.ErrorContains(t, err, "boom")
	env.classifier.AssertExpectations(t)
}
