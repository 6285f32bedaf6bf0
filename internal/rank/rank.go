package rank

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"ProviderDirectory/internal/domain"
)

const metersPerMile = 1609.344

// Miles computes the great-circle distance between two points in miles,
// rounded to one decimal. orb's haversine uses the mean Earth radius
// (6,371,008.8 m, i.e. 3958.7613 mi).
func Miles(from, to domain.Coordinate) float64 {
	meters := geo.DistanceHaversine(
		orb.Point{from.Lon, from.Lat},
		orb.Point{to.Lon, to.Lat},
	)
	return math.Round(meters/metersPerMile*10) / 10
}

// Strategy orders the provider list for display.
type Strategy interface {
	Name() string
	Sort(providers []domain.Provider)
}

const (
	ModeDistance       = "distance"
	ModeClassification = "classification"
)

// Registry maps strategy names to implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry preloaded with both ranking modes.
func NewRegistry() *Registry {
	r := &Registry{strategies: map[string]Strategy{}}
	r.Register(distanceFirst{})
	r.Register(classificationFirst{})
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[s.Name()] = s
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if s, ok := r.strategies[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("ranking mode %s is not registered", name)
}

// distanceFirst orders by distance ascending with ungeocoded records
// last, then specialist before generalist, then tenure descending, then
// display name.
type distanceFirst struct{}

func (distanceFirst) Name() string { return ModeDistance }

func (distanceFirst) Sort(providers []domain.Provider) {
	sort.SliceStable(providers, func(i, j int) bool {
		a, b := providers[i], providers[j]
		switch {
		case a.DistanceMiles == nil && b.DistanceMiles != nil:
			return false
		case a.DistanceMiles != nil && b.DistanceMiles == nil:
			return true
		case a.DistanceMiles != nil && b.DistanceMiles != nil &&
			*a.DistanceMiles != *b.DistanceMiles:
			return *a.DistanceMiles < *b.DistanceMiles
		}
		if a.Specialist != b.Specialist {
			return a.Specialist
		}
		if a.YearsInPractice != b.YearsInPractice {
			return a.YearsInPractice > b.YearsInPractice
		}
		return a.Name < b.Name
	})
}

// classificationFirst orders specialists first, then city, then display
// name, matching the directory's original default ordering.
type classificationFirst struct{}

func (classificationFirst) Name() string { return ModeClassification }

func (classificationFirst) Sort(providers []domain.Provider) {
	sort.SliceStable(providers, func(i, j int) bool {
		a, b := providers[i], providers[j]
		if a.Specialist != b.Specialist {
			return a.Specialist
		}
		if a.City != b.City {
			return a.City < b.City
		}
		return a.Name < b.Name
	})
}
