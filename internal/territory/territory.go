package territory

import "strings"

// Rule decides whether an address belongs to the directory's territory.
// The same rule is enforced during accumulation and again over the
// materialized output, so relaxed upstream data (including a reused
// snapshot) cannot leak past it.
type Rule interface {
	Name() string
	Allows(state, zip string) bool
}

const (
	RuleState    = "state"
	RuleStateZip = "state-zip"
)

// StateRule admits addresses with an exact region-code match.
type StateRule struct {
	State string
}

func (r StateRule) Name() string { return RuleState }

func (r StateRule) Allows(state, _ string) bool {
	return strings.EqualFold(strings.TrimSpace(state), r.State)
}

// StateZipRule additionally requires the postal code to start with one
// of the configured prefixes. Extension suffixes ("46204-1234") are
// matched by prefix, so five-digit prefixes cover them.
type StateZipRule struct {
	State    string
	Prefixes []string
}

func (r StateZipRule) Name() string { return RuleStateZip }

func (r StateZipRule) Allows(state, zip string) bool {
	if !strings.EqualFold(strings.TrimSpace(state), r.State) {
		return false
	}
	zip = strings.TrimSpace(zip)
	for _, prefix := range r.Prefixes {
		if prefix != "" && strings.HasPrefix(zip, prefix) {
			return true
		}
	}
	return false
}

// FromName resolves a rule by its configured name. Unknown names fall
// back to the plain state rule, the strictest always-applicable one.
func FromName(name, state string, zipPrefixes []string) Rule {
	switch name {
	case RuleStateZip:
		return StateZipRule{State: state, Prefixes: zipPrefixes}
	default:
		return StateRule{State: state}
	}
}
