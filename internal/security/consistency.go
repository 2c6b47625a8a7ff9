package security

import (
	"fmt"
	"sort"
	"strings"
)

// SourceKind identifies where a contact was declared.
type SourceKind string

const (
	SourceHeader      SourceKind = "header"
	SourceSecurityMD  SourceKind = "security_md"
	SourceSecurityTXT SourceKind = "security_txt"
	SourceReadme      SourceKind = "readme"
)

// sourcePriority is the precedence used for the primary contact and for
// ordering diagnostics.
var sourcePriority = []SourceKind{SourceHeader, SourceSecurityMD, SourceSecurityTXT, SourceReadme}

// Observation is a contact found in one source.
type Observation struct {
	Source     SourceKind `json:"source"`
	Raw        string     `json:"raw"`
	Normalized string     `json:"normalized"`
}

// Verdict is the outcome of comparing every observed contact.
type Verdict struct {
	Consistent bool     `json:"consistent"`
	Distinct   []string `json:"distinct"`
}

func newObservation(source SourceKind, raw string) (Observation, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Observation{}, false
	}
	return Observation{Source: source, Raw: raw, Normalized: Normalize(raw)}, true
}

// Reconcile decides whether the observations agree. They do when at most one
// distinct normalized value exists, however many sources declared it.
func Reconcile(observations []Observation) Verdict {
	seen := map[string]struct{}{}
	for _, obs := range observations {
		seen[obs.Normalized] = struct{}{}
	}

	distinct := make([]string, 0, len(seen))
	for value := range seen {
		distinct = append(distinct, value)
	}
	sort.Strings(distinct)

	return Verdict{Consistent: len(distinct) <= 1, Distinct: distinct}
}

// describeMismatch lists every source with its raw value, in priority order.
func describeMismatch(observations []Observation) string {
	parts := make([]string, 0, len(observations))
	for _, obs := range sortByPriority(observations) {
		parts = append(parts, fmt.Sprintf("%s: %s", obs.Source, obs.Raw))
	}
	return strings.Join(parts, ", ")
}

func sortByPriority(observations []Observation) []Observation {
	out := make([]Observation, len(observations))
	copy(out, observations)
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOf(out[i].Source) < priorityOf(out[j].Source)
	})
	return out
}

func priorityOf(kind SourceKind) int {
	for i, k := range sourcePriority {
		if k == kind {
			return i
		}
	}
	return len(sourcePriority)
}
