// Package refcode recognizes and normalizes regulation reference codes such as "CS 25.571",
// "AMC1 25.1309" or "CS-E 510". A Set is built once from configuration and is safe for
// concurrent use.
package refcode

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Family names accepted in configuration.
const (
	FamilyStandard        = "standard"
	FamilyGuidance        = "guidance-material"
	FamilyAcceptableMeans = "acceptable-means"
	FamilyEngine          = "engine-specific"
	FamilyAPU             = "auxiliary-power-specific"
	FamilyCustom          = "custom"
)

// DefaultFamilies is the family list used when configuration names none.
var DefaultFamilies = []string{
	FamilyStandard,
	FamilyGuidance,
	FamilyAcceptableMeans,
	FamilyEngine,
	FamilyAPU,
}

// Family is one recognizable reference-code shape.
type Family struct {
	Name    string
	Pattern *regexp.Regexp
	format  func(groups []string) string
	// qualifiesBare is true for families whose sections may cite bare "25.573" style codes.
	qualifiesBare bool
}

// Match is a reference code found in text. Start and End are byte offsets.
type Match struct {
	Start  int
	End    int
	Raw    string
	Code   string
	Family string
}

// Set is an immutable, ordered collection of families.
type Set struct {
	families []*Family
}

const sep = `[ \t-]?`

func builtin(name string) (*Family, bool) {
	switch name {
	case FamilyStandard:
		return &Family{
			Name:          name,
			Pattern:       regexp.MustCompile(`(?i)\bCS` + sep + `(\d{2,3})\.(\d{1,4}[a-z]?)\b`),
			format:        func(g []string) string { return "CS " + g[1] + "." + strings.ToUpper(g[2]) },
			qualifiesBare: true,
		}, true
	case FamilyGuidance:
		return &Family{
			Name:          name,
			Pattern:       regexp.MustCompile(`(?i)\bGM(\d{0,2})` + sep + `(?:CS` + sep + `)?(\d{2,3})\.(\d{1,4}[a-z]?)\b`),
			format:        func(g []string) string { return "GM" + g[1] + " " + g[2] + "." + strings.ToUpper(g[3]) },
			qualifiesBare: true,
		}, true
	case FamilyAcceptableMeans:
		return &Family{
			Name:          name,
			Pattern:       regexp.MustCompile(`(?i)\bAMC(\d{0,2})` + sep + `(?:CS` + sep + `)?(\d{2,3})\.(\d{1,4}[a-z]?)\b`),
			format:        func(g []string) string { return "AMC" + g[1] + " " + g[2] + "." + strings.ToUpper(g[3]) },
			qualifiesBare: true,
		}, true
	case FamilyEngine:
		return &Family{
			Name:    name,
			Pattern: regexp.MustCompile(`(?i)\bCS[ \t-]E` + sep + `(\d{1,4}[a-z]?)\b`),
			format:  func(g []string) string { return "CS-E " + strings.ToUpper(g[1]) },
		}, true
	case FamilyAPU:
		return &Family{
			Name:    name,
			Pattern: regexp.MustCompile(`(?i)\bCS[ \t-]APU` + sep + `(\d{1,4}[a-z]?)\b`),
			format:  func(g []string) string { return "CS-APU " + strings.ToUpper(g[1]) },
		}, true
	}
	return nil, false
}

// NewSet builds a set from family names (in priority order) and custom patterns.
// Unknown family names are ignored. An empty name list selects DefaultFamilies.
// Custom patterns are compiled as given; their matches normalize to the whitespace-collapsed,
// upper-cased matched text.
func NewSet(names []string, customPatterns []string) (*Set, error) {
	if len(names) == 0 {
		names = DefaultFamilies
	}
	s := &Set{}
	seen := make(map[string]bool)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if seen[n] {
			continue
		}
		seen[n] = true
		if f, ok := builtin(n); ok {
			s.families = append(s.families, f)
		}
	}
	for i, p := range customPatterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("custom reference pattern %d: %w", i, err)
		}
		s.families = append(s.families, &Family{
			Name:    FamilyCustom,
			Pattern: re,
			format:  func(g []string) string { return collapse(strings.ToUpper(g[0])) },
		})
	}
	return s, nil
}

// DefaultSet returns a set with DefaultFamilies and no custom patterns.
func DefaultSet() *Set {
	s, _ := NewSet(nil, nil)
	return s
}

// Families returns the family names in priority order.
func (s *Set) Families() []string {
	names := make([]string, len(s.families))
	for i, f := range s.families {
		names[i] = f.Name
	}
	return names
}

// FindAll returns every match of every family, ordered by start offset, then longer match,
// then family priority. Matches of different families may overlap.
func (s *Set) FindAll(text string) []Match {
	if s == nil || text == "" {
		return nil
	}
	type ranked struct {
		Match
		prio int
	}
	var all []ranked
	for prio, f := range s.families {
		for _, loc := range f.Pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(loc)/2)
			for g := range groups {
				if loc[2*g] >= 0 {
					groups[g] = text[loc[2*g]:loc[2*g+1]]
				}
			}
			all = append(all, ranked{
				Match: Match{
					Start:  loc[0],
					End:    loc[1],
					Raw:    groups[0],
					Code:   f.format(groups),
					Family: f.Name,
				},
				prio: prio,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		li, lj := all[i].End-all[i].Start, all[j].End-all[j].Start
		if li != lj {
			return li > lj
		}
		return all[i].prio < all[j].prio
	})
	out := make([]Match, len(all))
	for i := range all {
		out[i] = all[i].Match
	}
	return out
}

// FindNonOverlapping resolves overlapping matches earliest-first. The matches that lost to an
// earlier overlapping match are returned separately so callers can report the ambiguity.
func (s *Set) FindNonOverlapping(text string) (kept, dropped []Match) {
	end := -1
	for _, m := range s.FindAll(text) {
		if m.Start < end {
			dropped = append(dropped, m)
			continue
		}
		kept = append(kept, m)
		end = m.End
	}
	return kept, dropped
}

// Normalize returns the canonical form of raw when raw is exactly one reference code.
func (s *Set) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	kept, _ := s.FindNonOverlapping(raw)
	if len(kept) != 1 || kept[0].Start != 0 || kept[0].End != len(raw) {
		return "", false
	}
	return kept[0].Code, true
}

// QualifyBare turns a bare section number such as "25.573" into a full code using the family
// of the citing section, e.g. "CS 25.573" when cited from "AMC1 25.571". The result is false when
// the citing section does not belong to a family that uses bare numbers.
func (s *Set) QualifyBare(ownSection, bare string) (string, bool) {
	if ownSection == "" || bare == "" {
		return "", false
	}
	kept, _ := s.FindNonOverlapping(ownSection)
	if len(kept) == 0 {
		return "", false
	}
	for _, f := range s.families {
		if f.Name == kept[0].Family && f.qualifiesBare {
			return s.Normalize("CS " + bare)
		}
	}
	return "", false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
