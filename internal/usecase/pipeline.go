package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ProviderDirectory/internal/directory"
	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/ports"
	"ProviderDirectory/internal/rank"
	"ProviderDirectory/internal/territory"
)

const generatedFormat = "2006-01-02 15:04:05"

// PipelineDeps wires all driven adapters into the build pipeline.
type PipelineDeps struct {
	Source     ports.RegistrySource
	Geocoder   ports.Geocoder
	Snapshots  ports.SnapshotStore
	Repository ports.RunRepository
	Renderer   ports.Renderer
	Notifier   ports.Notifier
	Rule       territory.Rule
	Strategy   rank.Strategy
	Allowlist  directory.Allowlist
	Privileged directory.Allowlist
	Cities     []string
	Budget     int
	Logger     *slog.Logger
}

// Pipeline implements the directory build workflow: seed fetch, filter
// and dedupe, budgeted geocoding, distance ranking, the fresh/stale
// snapshot state machine, and artifact delivery. The only error it can
// return is a renderer failure; every upstream outage degrades into
// the payload's stale/note fields instead.
type Pipeline struct {
	source     ports.RegistrySource
	geocoder   ports.Geocoder
	snapshots  ports.SnapshotStore
	repository ports.RunRepository
	renderer   ports.Renderer
	notifier   ports.Notifier
	rule       territory.Rule
	strategy   rank.Strategy
	allow      directory.Allowlist
	privileged directory.Allowlist
	cities     []string
	budget     int
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		geocoder:   deps.Geocoder,
		snapshots:  deps.Snapshots,
		repository: deps.Repository,
		renderer:   deps.Renderer,
		notifier:   deps.Notifier,
		rule:       deps.Rule,
		strategy:   deps.Strategy,
		allow:      deps.Allowlist,
		privileged: deps.Privileged,
		cities:     deps.Cities,
		budget:     deps.Budget,
		logger:     deps.Logger,
	}
}

// BuildDirectory executes one full run and returns the payload it
// rendered.
func (p *Pipeline) BuildDirectory(ctx context.Context, now time.Time) (domain.Payload, error) {
	acc := directory.NewAccumulator(p.allow, p.rule)
	for _, city := range p.cities {
		records := p.source.FetchSeed(ctx, city)
		p.debug("seed fetched", "city", city, "records", len(records))
		for _, rec := range records {
			acc.Add(rec)
		}
	}
	p.info("accumulation done", "eligible", acc.Len())

	budget := domain.NewGeocodeBudget(p.budget)
	home := p.geocoder.HomeCoordinate(ctx, budget)

	providers := make([]domain.Provider, 0, acc.Len())
	for _, entry := range acc.Entries() {
		prov := directory.BuildProvider(entry, p.allow, p.privileged, now)
		if coord := p.geocoder.Geocode(ctx, addressText(prov), budget); coord != nil {
			miles := rank.Miles(home, *coord)
			prov.DistanceMiles = &miles
		}
		providers = append(providers, prov)
	}

	p.strategy.Sort(providers)
	providers = directory.CompliantProviders(providers, p.allow, p.rule)

	payload := p.resolvePayload(ctx, providers, now)
	payload.TerritoryRule = p.rule.Name()
	payload.BudgetRemaining = budget.Remaining()

	if err := p.renderer.Render(ctx, payload); err != nil {
		return payload, fmt.Errorf("render directory: %w", err)
	}

	p.recordRun(ctx, payload, now)
	p.notify(ctx, payload)

	return payload, nil
}

// resolvePayload runs the fresh/stale state machine. A run with at
// least one eligible provider is FRESH and becomes the new snapshot;
// a zero-survivor run is STALE and reuses the last snapshot after
// re-sanitizing it against the active guard. STALE never writes the
// snapshot, so an outage cannot erase the last good data.
func (p *Pipeline) resolvePayload(ctx context.Context, providers []domain.Provider, now time.Time) domain.Payload {
	generated := now.UTC().Format(generatedFormat)

	if len(providers) > 0 {
		payload := domain.Payload{
			GeneratedUTC: generated,
			Count:        len(providers),
			Providers:    providers,
		}
		if err := p.snapshots.Save(ctx, payload); err != nil {
			p.warn("snapshot save failed", "error", err)
		}
		return payload
	}

	snap, err := p.snapshots.Load(ctx)
	if err != nil {
		p.warn("snapshot load failed", "error", err)
	}
	if snap == nil {
		return domain.Payload{
			GeneratedUTC: generated,
			Providers:    []domain.Provider{},
			Stale:        true,
			Note:         "Live registry fetch returned no eligible providers and no snapshot exists yet.",
		}
	}

	kept := directory.CompliantProviders(snap.Providers, p.allow, p.rule)
	p.strategy.Sort(kept)
	return domain.Payload{
		GeneratedUTC: generated,
		Count:        len(kept),
		Providers:    kept,
		Stale:        true,
		Note: fmt.Sprintf(
			"Live registry fetch returned no eligible providers; showing snapshot from %s.",
			snap.GeneratedUTC,
		),
	}
}

func (p *Pipeline) recordRun(ctx context.Context, payload domain.Payload, now time.Time) {
	if p.repository == nil {
		return
	}
	err := p.repository.SaveRun(ctx, domain.RunRecord{
		GeneratedAt: now.UTC(),
		Count:       payload.Count,
		Stale:       payload.Stale,
		Note:        payload.Note,
	})
	if err != nil {
		p.warn("run history save failed", "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, payload domain.Payload) {
	if p.notifier == nil {
		return
	}
	summary := fmt.Sprintf("Directory build: %d providers", payload.Count)
	if payload.Stale {
		summary += " (stale). " + payload.Note
	}
	if err := p.notifier.PublishSummary(ctx, summary); err != nil {
		p.warn("notification failed", "error", err)
	}
}

// addressText composes the free-text geocoder query from the same
// address fields the record was admitted and rendered with.
func addressText(p domain.Provider) string {
	parts := make([]string, 0, 3)
	if p.Address != "" {
		parts = append(parts, p.Address)
	}
	if p.City != "" {
		parts = append(parts, p.City)
	}
	region := strings.TrimSpace(p.State + " " + p.Zip)
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
