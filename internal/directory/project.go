package directory

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"ProviderDirectory/internal/domain"
)

var nonDigits = regexp.MustCompile(`\D+`)

// CleanPhone normalizes a ten-digit US number to "(aaa) bbb-cccc"; any
// other shape is returned trimmed as-is.
func CleanPhone(phone string) string {
	if phone == "" {
		return ""
	}
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) == 10 {
		return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10])
	}
	return strings.TrimSpace(phone)
}

// YearsSince computes the tenure proxy: elapsed years since the
// enumeration date ("2006-01-02"), in 365.25-day years rounded to one
// decimal. Unparseable dates yield 0.
func YearsSince(dateStr string, now time.Time) float64 {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
	if err != nil {
		return 0
	}
	days := now.UTC().Sub(d.UTC()).Hours() / 24
	return math.Round(days/365.25*10) / 10
}

// clinicName is a best-effort lookup: the registry does not reliably
// carry an employer for individual providers, so fall back through the
// organization fields and return "" when none exist.
func clinicName(rec domain.RawRecord) string {
	if org := strings.TrimSpace(rec.Basic.OrganizationName); org != "" {
		return org
	}
	if rec.AuthorizedOfficial != nil {
		if org := strings.TrimSpace(rec.AuthorizedOfficial.OrganizationName); org != "" {
			return org
		}
	}
	return ""
}

// BuildProvider projects an accumulated entry into a directory record.
// The privileged set marks the specialist sub-classification (e.g.
// endocrinology among general diabetes-care codes).
func BuildProvider(entry Entry, allow Allowlist, privileged Allowlist, now time.Time) domain.Provider {
	rec := entry.Record
	basic := rec.Basic

	providerType := "Individual"
	name := strings.TrimSpace(strings.Join(nonEmpty(
		strings.TrimSpace(basic.FirstName),
		strings.TrimSpace(basic.LastName),
	), " "))
	credential := strings.TrimSpace(basic.Credential)
	if strings.TrimSpace(basic.OrganizationName) != "" {
		providerType = "Organization"
		name = strings.TrimSpace(basic.OrganizationName)
		credential = ""
	} else if credential != "" {
		name = fmt.Sprintf("%s, %s", name, credential)
	}

	var (
		labels     []string
		codes      []string
		specialist bool
	)
	for _, t := range rec.Taxonomies {
		code := strings.TrimSpace(t.Code)
		if !allow.Contains(code) {
			continue
		}
		codes = append(codes, code)
		if privileged.Contains(code) {
			specialist = true
		}
		if desc := strings.TrimSpace(t.Desc); desc != "" {
			labels = append(labels, desc)
		} else {
			labels = append(labels, code)
		}
	}
	sort.Strings(codes)

	addr := entry.Address
	street := strings.TrimSpace(addr.Address1)
	if extra := strings.TrimSpace(addr.Address2); extra != "" {
		street = strings.TrimSpace(street + " " + extra)
	}

	return domain.Provider{
		NPI:             rec.NPI(),
		ProviderType:    providerType,
		Name:            name,
		Credential:      credential,
		Clinic:          clinicName(rec),
		Taxonomy:        joinSortedUnique(labels),
		TaxonomyCodes:   codes,
		Specialist:      specialist,
		Phone:           CleanPhone(addr.TelephoneNumber),
		Address:         street,
		City:            strings.TrimSpace(addr.City),
		State:           strings.TrimSpace(addr.State),
		Zip:             strings.TrimSpace(addr.PostalCode),
		EnumerationDate: strings.TrimSpace(basic.EnumerationDate),
		YearsInPractice: YearsSince(basic.EnumerationDate, now),
	}
}

func nonEmpty(parts ...string) []string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

func joinSortedUnique(labels []string) string {
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		uniq = append(uniq, l)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ", ")
}
