package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NatDug/Field-Buddy/internal/geo"
	"github.com/NatDug/Field-Buddy/internal/repository"
	"github.com/NatDug/Field-Buddy/internal/usda"
)

type SaveProfileRequest struct {
	Name     string
	FarmName string
}

type ProfileService struct {
	profiles   repository.ProfileRepository
	locator    geo.Locator
	geocoder   geo.Geocoder
	classifier usda.Classifier
	guard      *Guard
	logger     *slog.Logger
}

func NewProfileService(
	profiles repository.ProfileRepository,
	locator geo.Locator,
	geocoder geo.Geocoder,
	classifier usda.Classifier,
	guard *Guard,
	logger *slog.Logger,
) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		profiles:   profiles,
		locator:    locator,
		geocoder:   geocoder,
		classifier: classifier,
		guard:      guard,
		logger:     logger,
	}
}

// Get returns the farm profile. A farm that has not saved one yet gets an
// empty profile.
func (s *ProfileService) Get(ctx context.Context) (*repository.Profile, error) {
	if err := s.guard.Read(ctx, PageProfile); err != nil {
		return nil, err
	}
	return s.current(ctx)
}

func (s *ProfileService) current(ctx context.Context) (*repository.Profile, error) {
	p, err := s.profiles.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return &repository.Profile{}, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Save(ctx context.Context, req SaveProfileRequest) (*repository.Profile, error) {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	farm := strings.TrimSpace(req.FarmName)
	if name == "" || farm == "" {
		return nil, validationf("name and farm name are required")
	}
	p, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.FarmName = farm
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UseCurrentLocation stores the device position and, when it resolves, the
// address around it.
func (s *ProfileService) UseCurrentLocation(ctx context.Context) (*repository.Profile, error) {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return nil, err
	}
	if s.locator == nil {
		return nil, geo.ErrPermissionDenied
	}
	pos, err := s.locator.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("current location: %w", err)
	}

	addr := geo.Address{Display: fmt.Sprintf("%.5f, %.5f", pos.Latitude, pos.Longitude)}
	if s.geocoder != nil {
		found, err := s.geocoder.Reverse(ctx, pos)
		switch {
		case err == nil:
			addr = found
		case errors.Is(err, geo.ErrAddressNotFound):
			s.logger.Info("no address for position", "latitude", pos.Latitude, "longitude", pos.Longitude)
		default:
			return nil, err
		}
	}
	return s.storeLocation(ctx, pos, addr)
}

// SetAddress geocodes a free-form address and stores where it resolved.
func (s *ProfileService) SetAddress(ctx context.Context, query string) (*repository.Profile, error) {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationf("address is required")
	}
	if s.geocoder == nil {
		return nil, fmt.Errorf("geocode %q: no geocoder configured", query)
	}
	pos, addr, err := s.geocoder.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.storeLocation(ctx, pos, addr)
}

func (s *ProfileService) storeLocation(ctx context.Context, pos geo.Position, addr geo.Address) (*repository.Profile, error) {
	p, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	lat, lon := pos.Latitude, pos.Longitude
	p.Latitude = &lat
	p.Longitude = &lon
	p.Location = addr.Display
	p.Address = addr.Display
	p.State = addr.State
	p.County = addr.County
	p.ZipCode = addr.ZipCode
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Classify runs the land-use classification for the stored location and
// keeps the farm type, efficiency score and strata id on the profile.
func (s *ProfileService) Classify(ctx context.Context) (*usda.Classification, error) {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return nil, err
	}
	p, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, validationf("farm location is not set")
	}
	if s.classifier == nil {
		return nil, fmt.Errorf("classify farm: no classifier configured")
	}

	c, err := s.classifier.Classify(ctx, usda.Location{
		Position: geo.Position{Latitude: *p.Latitude, Longitude: *p.Longitude},
		State:    p.State,
		County:   p.County,
	})
	if err != nil {
		return nil, err
	}

	score := c.EfficiencyScore
	p.FarmType = c.FarmType
	p.EfficiencyScore = &score
	p.StrataID = ""
	if c.Strata != nil {
		p.StrataID = c.Strata.ID
	}
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	return &c, nil
}
