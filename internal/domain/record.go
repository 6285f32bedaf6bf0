package domain

import "encoding/json"

// RawRecord is one registry entity exactly as received from the NPI API.
// Records are projected into Providers, never mutated.
type RawRecord struct {
	Number             json.Number   `json:"number"`
	Basic              RawBasic      `json:"basic"`
	Taxonomies         []RawTaxonomy `json:"taxonomies"`
	Addresses          []RawAddress  `json:"addresses"`
	AuthorizedOfficial *RawOfficial  `json:"authorized_official,omitempty"`
}

// NPI returns the registry identifier as a string, or "" when absent.
func (r RawRecord) NPI() string {
	return r.Number.String()
}

// RawBasic carries the name and enumeration fields of a record.
type RawBasic struct {
	OrganizationName string `json:"organization_name"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Credential       string `json:"credential"`
	EnumerationDate  string `json:"enumeration_date"`
}

// RawTaxonomy is a single classification entry (code plus free-text label).
type RawTaxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
}

// RawAddress is one postal address tagged with its purpose
// ("LOCATION" vs "MAILING" in registry responses).
type RawAddress struct {
	AddressPurpose  string `json:"address_purpose"`
	Address1        string `json:"address_1"`
	Address2        string `json:"address_2"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	TelephoneNumber string `json:"telephone_number"`
}

// RawOfficial is the authorized official block some organization
// records carry; only the organization name is used.
type RawOfficial struct {
	OrganizationName string `json:"organization_name"`
}
