package domain

import "time"

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Provider is the directory entry derived from a RawRecord, keyed by NPI.
type Provider struct {
	NPI             string   `json:"npi"`
	ProviderType    string   `json:"provider_type"`
	Name            string   `json:"name"`
	Credential      string   `json:"credential"`
	Clinic          string   `json:"clinic"`
	Taxonomy        string   `json:"taxonomy"`
	TaxonomyCodes   []string `json:"taxonomy_codes"`
	Specialist      bool     `json:"specialist"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	Zip             string   `json:"zip"`
	EnumerationDate string   `json:"enumeration_date"`
	YearsInPractice float64  `json:"years_in_practice_proxy"`
	DistanceMiles   *float64 `json:"distance_miles"`
}

// Payload is the full render payload consumed by the HTML template.
type Payload struct {
	GeneratedUTC    string     `json:"generated_utc"`
	Count           int        `json:"count"`
	Providers       []Provider `json:"providers"`
	Stale           bool       `json:"stale"`
	Note            string     `json:"note,omitempty"`
	TerritoryRule   string     `json:"territory_rule,omitempty"`
	HomeAddress     string     `json:"home_address,omitempty"`
	BudgetRemaining int        `json:"geocode_budget_remaining"`
}

// GeocodeBudget bounds the number of new geocode lookups in a single run.
// It is passed by handle into every geocode call; cache hits are free.
type GeocodeBudget struct {
	remaining int
}

// NewGeocodeBudget creates a budget allowing n new lookups.
func NewGeocodeBudget(n int) *GeocodeBudget {
	if n < 0 {
		n = 0
	}
	return &GeocodeBudget{remaining: n}
}

// Remaining reports how many new lookups are still allowed.
func (b *GeocodeBudget) Remaining() int {
	if b == nil {
		return 0
	}
	return b.remaining
}

// Exhausted reports whether no new lookups are allowed.
func (b *GeocodeBudget) Exhausted() bool {
	return b.Remaining() <= 0
}

// Spend consumes one lookup from the budget.
func (b *GeocodeBudget) Spend() {
	if b != nil && b.remaining > 0 {
		b.remaining--
	}
}

// RunRecord summarizes one completed build run for the history table.
type RunRecord struct {
	GeneratedAt time.Time
	Count       int
	Stale       bool
	Note        string
}
