// Package geo provides the farm's position and address lookups.
package geo

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("geo: location permission denied")
	ErrAddressNotFound  = errors.New("geo: address not found")
)

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Address struct {
	Display string `json:"display"`
	State   string `json:"state,omitempty"`
	County  string `json:"county,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
}

type Locator interface {
	Current(ctx context.Context) (Position, error)
}

type Geocoder interface {
	Search(ctx context.Context, query string) (Position, Address, error)
	Reverse(ctx context.Context, pos Position) (Address, error)
}

// StaticLocator reports a configured position. With no coordinates set it
// behaves like a device that refused location access.
type StaticLocator struct {
	Latitude  *float64
	Longitude *float64
}

func (l StaticLocator) Current(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if l.Latitude == nil || l.Longitude == nil {
		return Position{}, ErrPermissionDenied
	}
	return Position{Latitude: *l.Latitude, Longitude: *l.Longitude}, nil
}
