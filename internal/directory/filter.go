package directory

import (
	"sort"
	"strings"

	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/territory"
)

// Allowlist is the set of taxonomy codes admitted into the directory.
type Allowlist map[string]struct{}

// NewAllowlist builds an Allowlist from configured codes.
func NewAllowlist(codes []string) Allowlist {
	allow := make(Allowlist, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code != "" {
			allow[code] = struct{}{}
		}
	}
	return allow
}

// Contains reports whether the code is on the allowlist.
func (a Allowlist) Contains(code string) bool {
	_, ok := a[strings.TrimSpace(code)]
	return ok
}

// MatchesTaxonomy reports whether at least one classification code on
// the record is on the allowlist.
func MatchesTaxonomy(rec domain.RawRecord, allow Allowlist) bool {
	for _, t := range rec.Taxonomies {
		if allow.Contains(t.Code) {
			return true
		}
	}
	return false
}

// SelectAddress picks the record's place-of-service address: the one
// tagged "location" when present, otherwise the first address. A
// mailing address must never stand in for a place of service when a
// location address exists.
func SelectAddress(rec domain.RawRecord) domain.RawAddress {
	for _, a := range rec.Addresses {
		if strings.EqualFold(strings.TrimSpace(a.AddressPurpose), "location") {
			return a
		}
	}
	if len(rec.Addresses) > 0 {
		return rec.Addresses[0]
	}
	return domain.RawAddress{}
}

// Entry pairs an eligible record with the address it was admitted on.
// The address is captured at accumulation time so filtering, geocoding
// and rendering all see the same one.
type Entry struct {
	Record  domain.RawRecord
	Address domain.RawAddress
}

// Accumulator deduplicates eligible records by NPI. Later observations
// of the same identifier overwrite earlier ones; ineligible records are
// never inserted.
type Accumulator struct {
	allow Allowlist
	rule  territory.Rule
	byNPI map[string]Entry
}

// NewAccumulator builds an accumulator for the active allowlist and
// territory rule.
func NewAccumulator(allow Allowlist, rule territory.Rule) *Accumulator {
	return &Accumulator{
		allow: allow,
		rule:  rule,
		byNPI: map[string]Entry{},
	}
}

// Add inserts the record if it is eligible. Returns true on insert.
func (a *Accumulator) Add(rec domain.RawRecord) bool {
	npi := rec.NPI()
	if npi == "" {
		return false
	}
	if !MatchesTaxonomy(rec, a.allow) {
		return false
	}
	addr := SelectAddress(rec)
	if a.rule != nil && !a.rule.Allows(addr.State, addr.PostalCode) {
		return false
	}
	a.byNPI[npi] = Entry{Record: rec, Address: addr}
	return true
}

// Len reports how many distinct eligible identifiers are accumulated.
func (a *Accumulator) Len() int {
	return len(a.byNPI)
}

// Entries returns the accumulated entries in NPI order, so downstream
// sorting starts from a deterministic sequence.
func (a *Accumulator) Entries() []Entry {
	npis := make([]string, 0, len(a.byNPI))
	for npi := range a.byNPI {
		npis = append(npis, npi)
	}
	sort.Strings(npis)

	entries := make([]Entry, 0, len(npis))
	for _, npi := range npis {
		entries = append(entries, a.byNPI[npi])
	}
	return entries
}

// CompliantProviders re-applies the active taxonomy and territory guard
// over already-built providers. It is the final gate on every payload,
// fresh or reused, so a record admitted under a relaxed rule cannot
// survive into the output.
func CompliantProviders(providers []domain.Provider, allow Allowlist, rule territory.Rule) []domain.Provider {
	kept := make([]domain.Provider, 0, len(providers))
	for _, p := range providers {
		if !anyAllowed(p.TaxonomyCodes, allow) {
			continue
		}
		if rule != nil && !rule.Allows(p.State, p.Zip) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func anyAllowed(codes []string, allow Allowlist) bool {
	for _, code := range codes {
		if allow.Contains(code) {
			return true
		}
	}
	return false
}
