package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ProviderDirectory/internal/directory"
	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/rank"
	"ProviderDirectory/internal/territory"
)

type fakeSource struct {
	byCity map[string][]domain.RawRecord
}

func (f *fakeSource) FetchSeed(_ context.Context, city string) []domain.RawRecord {
	return f.byCity[city]
}

type fakeGeocoder struct {
	coords map[string]domain.Coordinate
	home   domain.Coordinate
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string, budget *domain.GeocodeBudget) *domain.Coordinate {
	for key, coord := range f.coords {
		if strings.Contains(address, key) {
			if budget.Exhausted() {
				return nil
			}
			budget.Spend()
			c := coord
			return &c
		}
	}
	return nil
}

func (f *fakeGeocoder) HomeCoordinate(_ context.Context, _ *domain.GeocodeBudget) domain.Coordinate {
	return f.home
}

type fakeSnapshots struct {
	stored *domain.Payload
	saves  int
}

func (f *fakeSnapshots) Load(_ context.Context) (*domain.Payload, error) {
	return f.stored, nil
}

func (f *fakeSnapshots) Save(_ context.Context, payload domain.Payload) error {
	f.stored = &payload
	f.saves++
	return nil
}

type fakeRenderer struct {
	rendered []domain.Payload
}

func (f *fakeRenderer) Render(_ context.Context, payload domain.Payload) error {
	f.rendered = append(f.rendered, payload)
	return nil
}

func record(npi, city, zip string) domain.RawRecord {
	return domain.RawRecord{
		Number: json.Number(npi),
		Basic: domain.RawBasic{
			FirstName:       "Alex",
			LastName:        "Rivera",
			EnumerationDate: "2012-03-01",
		},
		Taxonomies: []domain.RawTaxonomy{{Code: "207R00000X", Desc: "Internal Medicine"}},
		Addresses: []domain.RawAddress{{
			AddressPurpose: "LOCATION",
			Address1:       "100 Health Way",
			City:           city,
			State:          "IN",
			PostalCode:     zip,
		}},
	}
}

func newTestPipeline(source *fakeSource, geocoder *fakeGeocoder, snapshots *fakeSnapshots, renderer *fakeRenderer, mode string, budget int) *Pipeline {
	strategy, _ := rank.NewRegistry().Resolve(mode)
	return NewPipeline(PipelineDeps{
		Source:     source,
		Geocoder:   geocoder,
		Snapshots:  snapshots,
		Renderer:   renderer,
		Rule:       territory.StateRule{State: "IN"},
		Strategy:   strategy,
		Allowlist:  directory.NewAllowlist([]string{"207R00000X"}),
		Privileged: directory.NewAllowlist([]string{"207RE0101X"}),
		Cities:     []string{"Indianapolis", "Carmel"},
		Budget:     budget,
		Logger:     nil,
	})
}

func TestBuildDirectoryFreshRun(t *testing.T) {
	t.Parallel()

	source := &fakeSource{byCity: map[string][]domain.RawRecord{
		"Indianapolis": {record("10", "Indianapolis", "46204"), record("11", "Indianapolis", "46208")},
		// Same identifier seen from a second seed collapses to one.
		"Carmel": {record("10", "Carmel", "46032")},
	}}
	snapshots := &fakeSnapshots{}
	renderer := &fakeRenderer{}
	pipeline := newTestPipeline(source, &fakeGeocoder{}, snapshots, renderer, rank.ModeClassification, 10)

	payload, err := pipeline.BuildDirectory(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("BuildDirectory: %v", err)
	}

	if payload.Stale {
		t.Fatal("fresh run must not be stale")
	}
	if payload.Count != 2 {
		t.Fatalf("expected 2 deduplicated providers, got %d", payload.Count)
	}
	if snapshots.saves != 1 {
		t.Fatalf("fresh run must persist the snapshot once, got %d saves", snapshots.saves)
	}
	if len(renderer.rendered) != 1 {
		t.Fatalf("expected 1 rendered payload, got %d", len(renderer.rendered))
	}
	if payload.TerritoryRule != "state" {
		t.Fatalf("unexpected territory rule: %s", payload.TerritoryRule)
	}
}

func TestBuildDirectoryFreshRunOverwritesSnapshot(t *testing.T) {
	t.Parallel()

	stale := domain.Payload{GeneratedUTC: "2026-01-01 00:00:00", Count: 9}
	snapshots := &fakeSnapshots{stored: &stale}
	source := &fakeSource{byCity: map[string][]domain.RawRecord{
		"Indianapolis": {record("10", "Indianapolis", "46204")},
	}}
	pipeline := newTestPipeline(source, &fakeGeocoder{}, snapshots, &fakeRenderer{}, rank.ModeClassification, 10)

	payload, err := pipeline.BuildDirectory(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("BuildDirectory: %v", err)
	}

	if payload.Count != 1 {
		t.Fatalf("expected 1 provider, got %d", payload.Count)
	}
	if snapshots.stored.Count != 1 {
		t.Fatalf("snapshot not overwritten: %+v", snapshots.stored)
	}
}

func TestBuildDirectoryStaleFallback(t *testing.T) {
	t.Parallel()

	snapshots := &fakeSnapshots{stored: &domain.Payload{
		GeneratedUTC: "2026-08-01 06:00:00",
		Count:        2,
		Providers: []domain.Provider{
			{NPI: "1", Name: "Kept Clinic", TaxonomyCodes: []string{"207R00000X"}, State: "IN", Zip: "46204"},
			// Out of territory: must be stripped on reuse.
			{NPI: "2", Name: "Dropped Clinic", TaxonomyCodes: []string{"207R00000X"}, State: "IL", Zip: "60601"},
		},
	}}
	renderer := &fakeRenderer{}
	pipeline := newTestPipeline(&fakeSource{}, &fakeGeocoder{}, snapshots, renderer, rank.ModeClassification, 10)

	payload, err := pipeline.BuildDirectory(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("BuildDirectory: %v", err)
	}

	if !payload.Stale {
		t.Fatal("expected stale payload")
	}
	if payload.Note == "" {
		t.Fatal("stale payload must carry a note")
	}
	if payload.Count != 1 || len(payload.Providers) != 1 {
		t.Fatalf("expected 1 surviving provider, got %d", payload.Count)
	}
	if payload.Providers[0].NPI != "1" {
		t.Fatalf("non-compliant snapshot record leaked: %+v", payload.Providers[0])
	}
	if snapshots.saves != 0 {
		t.Fatal("stale run must never overwrite the snapshot")
	}
}

func TestBuildDirectoryStaleWithoutSnapshot(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{}
	pipeline := newTestPipeline(&fakeSource{}, &fakeGeocoder{}, &fakeSnapshots{}, renderer, rank.ModeClassification, 10)

	payload, err := pipeline.BuildDirectory(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("BuildDirectory: %v", err)
	}

	if !payload.Stale {
		t.Fatal("expected stale payload")
	}
	if payload.Count != 0 || len(payload.Providers) != 0 {
		t.Fatalf("expected explicitly empty payload, got %+v", payload)
	}
	if payload.Note == "" {
		t.Fatal("empty stale payload must carry a note")
	}
	if len(renderer.rendered) != 1 {
		t.Fatal("stale run must still render the artifact")
	}
}

func TestBuildDirectoryDistances(t *testing.T) {
	t.Parallel()

	source := &fakeSource{byCity: map[string][]domain.RawRecord{
		"Indianapolis": {record("10", "Indianapolis", "46204"), record("11", "Nowhere", "46999")},
	}}
	geocoder := &fakeGeocoder{
		home:   domain.Coordinate{Lat: 39.7684, Lon: -86.1581},
		coords: map[string]domain.Coordinate{"46204": {Lat: 39.7797, Lon: -86.1563}},
	}
	pipeline := newTestPipeline(source, geocoder, &fakeSnapshots{}, &fakeRenderer{}, rank.ModeDistance, 5)

	payload, err := pipeline.BuildDirectory(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("BuildDirectory: %v", err)
	}

	if payload.Count != 2 {
		t.Fatalf("expected 2 providers, got %d", payload.Count)
	}

	first, second := payload.Providers[0], payload.Providers[1]
	if first.DistanceMiles == nil {
		t.Fatal("expected geocoded provider first under distance ordering")
	}
	if *first.DistanceMiles != 0.8 {
		t.Fatalf("unexpected distance: %v", *first.DistanceMiles)
	}
	if second.DistanceMiles != nil {
		t.Fatal("ungeocoded provider must sort last")
	}
	if payload.BudgetRemaining != 4 {
		t.Fatalf("expected budget 4 remaining, got %d", payload.BudgetRemaining)
	}
}
