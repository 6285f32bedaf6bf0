package directory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/territory"
)

func rawRecord(npi, code, state, zip, purpose string) domain.RawRecord {
	return domain.RawRecord{
		Number: json.Number(npi),
		Basic: domain.RawBasic{
			FirstName:       "Jane",
			LastName:        "Doe",
			EnumerationDate: "2015-06-01",
		},
		Taxonomies: []domain.RawTaxonomy{{Code: code, Desc: "Internal Medicine"}},
		Addresses: []domain.RawAddress{{
			AddressPurpose: purpose,
			Address1:       "123 Main St",
			City:           "Indianapolis",
			State:          state,
			PostalCode:     zip,
		}},
	}
}

func TestMatchesTaxonomy(t *testing.T) {
	t.Parallel()

	allow := NewAllowlist([]string{"207R00000X", "207RE0101X"})

	require.True(t, MatchesTaxonomy(rawRecord("1", "207R00000X", "IN", "46204", "LOCATION"), allow))
	require.False(t, MatchesTaxonomy(rawRecord("2", "999X00000X", "IN", "46204", "LOCATION"), allow))
	require.False(t, MatchesTaxonomy(domain.RawRecord{}, allow))
}

func TestSelectAddressPrefersLocation(t *testing.T) {
	t.Parallel()

	rec := domain.RawRecord{
		Addresses: []domain.RawAddress{
			{AddressPurpose: "MAILING", Address1: "PO Box 99", City: "Chicago", State: "IL"},
			{AddressPurpose: "LOCATION", Address1: "456 Clinic Way", City: "Carmel", State: "IN"},
		},
	}

	addr := SelectAddress(rec)
	require.Equal(t, "456 Clinic Way", addr.Address1)
	require.Equal(t, "IN", addr.State)
}

func TestSelectAddressFallsBackToFirst(t *testing.T) {
	t.Parallel()

	rec := domain.RawRecord{
		Addresses: []domain.RawAddress{
			{AddressPurpose: "MAILING", Address1: "PO Box 99", State: "IN"},
		},
	}
	require.Equal(t, "PO Box 99", SelectAddress(rec).Address1)

	require.Equal(t, domain.RawAddress{}, SelectAddress(domain.RawRecord{}))
}

func TestAccumulatorDeduplicates(t *testing.T) {
	t.Parallel()

	allow := NewAllowlist([]string{"207R00000X"})
	rule := territory.StateRule{State: "IN"}
	acc := NewAccumulator(allow, rule)

	require.True(t, acc.Add(rawRecord("1003000126", "207R00000X", "IN", "46204", "LOCATION")))
	require.True(t, acc.Add(rawRecord("1003000126", "207R00000X", "IN", "46077", "LOCATION")))
	require.Equal(t, 1, acc.Len())

	// Last write wins.
	entries := acc.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "46077", entries[0].Address.PostalCode)
}

func TestAccumulatorRejectsIneligible(t *testing.T) {
	t.Parallel()

	allow := NewAllowlist([]string{"207R00000X"})
	acc := NewAccumulator(allow, territory.StateRule{State: "IN"})

	require.False(t, acc.Add(rawRecord("1", "999X00000X", "IN", "46204", "LOCATION")), "taxonomy mismatch")
	require.False(t, acc.Add(rawRecord("2", "207R00000X", "IL", "60601", "LOCATION")), "territory mismatch")
	require.False(t, acc.Add(rawRecord("", "207R00000X", "IN", "46204", "LOCATION")), "missing identifier")
	require.Equal(t, 0, acc.Len())
}

func TestAccumulatorFiltersOnSelectedAddress(t *testing.T) {
	t.Parallel()

	// In-state mailing address, out-of-state location address: the
	// record must be judged on the location address and rejected.
	rec := domain.RawRecord{
		Number:     json.Number("55"),
		Taxonomies: []domain.RawTaxonomy{{Code: "207R00000X"}},
		Addresses: []domain.RawAddress{
			{AddressPurpose: "MAILING", State: "IN", PostalCode: "46204"},
			{AddressPurpose: "LOCATION", State: "KY", PostalCode: "40202"},
		},
	}

	acc := NewAccumulator(NewAllowlist([]string{"207R00000X"}), territory.StateRule{State: "IN"})
	require.False(t, acc.Add(rec))
}

func TestCompliantProvidersIdempotent(t *testing.T) {
	t.Parallel()

	allow := NewAllowlist([]string{"207R00000X"})
	rule := territory.StateRule{State: "IN"}

	providers := []domain.Provider{
		{NPI: "1", TaxonomyCodes: []string{"207R00000X"}, State: "IN", Zip: "46204"},
		{NPI: "2", TaxonomyCodes: []string{"207R00000X"}, State: "IL", Zip: "60601"},
		{NPI: "3", TaxonomyCodes: []string{"999X00000X"}, State: "IN", Zip: "46204"},
	}

	once := CompliantProviders(providers, allow, rule)
	require.Len(t, once, 1)
	require.Equal(t, "1", once[0].NPI)

	// Re-filtering an already-compliant set yields the identical set.
	twice := CompliantProviders(once, allow, rule)
	require.Equal(t, once, twice)
}

func TestCompliantProvidersZipPrefix(t *testing.T) {
	t.Parallel()

	allow := NewAllowlist([]string{"207R00000X"})
	rule := territory.StateZipRule{State: "IN", Prefixes: []string{"462"}}

	providers := []domain.Provider{
		{NPI: "1", TaxonomyCodes: []string{"207R00000X"}, State: "IN", Zip: "46204-1234"},
		{NPI: "2", TaxonomyCodes: []string{"207R00000X"}, State: "IN", Zip: "47906"},
	}

	kept := CompliantProviders(providers, allow, rule)
	require.Len(t, kept, 1)
	require.Equal(t, "1", kept[0].NPI)
}
