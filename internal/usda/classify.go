// Package usda classifies a farm from its land-use strata and looks up
// regional crop statistics from USDA QuickStats.
package usda

import (
	"context"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/geo"
)

const (
	FarmTypeCultivated     = "Cultivated"
	FarmTypeMixed          = "Mixed"
	FarmTypeNonAgriculture = "Non-Agricultural"
	FarmTypeUnknown        = "Unknown"

	MockStrataID = "MOCK_STRATA_001"
)

type Strata struct {
	ID                     string  `json:"strata_id"`
	PercentCultivated      float64 `json:"percent_cultivated"`
	PercentNonAgricultural float64 `json:"percent_non_agricultural"`
	PercentWater           float64 `json:"percent_water"`
	PercentUrban           float64 `json:"percent_urban"`
}

type Location struct {
	Position geo.Position
	State    string
	County   string
}

type Classification struct {
	FarmType        string     `json:"farm_type"`
	EfficiencyScore float64    `json:"efficiency_score"`
	Strata          *Strata    `json:"strata,omitempty"`
	Crops           []CropData `json:"crops"`
}

type Classifier interface {
	Classify(ctx context.Context, loc Location) (Classification, error)
}

// StrataMatcher finds the land-use strata polygon containing a position.
// A nil strata with no error means the position is not covered.
type StrataMatcher interface {
	Match(ctx context.Context, pos geo.Position) (*Strata, error)
}

type CropSource interface {
	CropData(ctx context.Context, q CropQuery) []CropData
}

// MockStrataMatcher returns the same strata for every position. There is no
// strata dataset to match against yet.
type MockStrataMatcher struct{}

func (MockStrataMatcher) Match(ctx context.Context, _ geo.Position) (*Strata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Strata{
		ID:                     MockStrataID,
		PercentCultivated:      75,
		PercentNonAgricultural: 20,
		PercentWater:           3,
		PercentUrban:           2,
	}, nil
}

// FarmType maps strata to a farm type and efficiency score. The score is the
// cultivated percentage.
func FarmType(s *Strata) (string, float64) {
	if s == nil {
		return FarmTypeUnknown, 0
	}
	switch {
	case s.PercentCultivated > 70:
		return FarmTypeCultivated, s.PercentCultivated
	case s.PercentCultivated > 30:
		return FarmTypeMixed, s.PercentCultivated
	default:
		return FarmTypeNonAgriculture, s.PercentCultivated
	}
}

type StrataClassifier struct {
	strata       StrataMatcher
	crops        CropSource
	defaultState string
}

func NewStrataClassifier(strata StrataMatcher, crops CropSource, defaultState string) *StrataClassifier {
	if strata == nil {
		strata = MockStrataMatcher{}
	}
	return &StrataClassifier{strata: strata, crops: crops, defaultState: defaultState}
}

func (c *StrataClassifier) Classify(ctx context.Context, loc Location) (Classification, error) {
	strata, err := c.strata.Match(ctx, loc.Position)
	if err != nil {
		return Classification{}, fmt.Errorf("classify farm: match strata: %w", err)
	}

	out := Classification{Strata: strata, Crops: []CropData{}}
	out.FarmType, out.EfficiencyScore = FarmType(strata)

	state := loc.State
	if state == "" {
		state = c.defaultState
	}
	if c.crops != nil && state != "" {
		out.Crops = c.crops.CropData(ctx, CropQuery{State: state, County: loc.County})
	}
	return out, nil
}
