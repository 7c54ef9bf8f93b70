package importer

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
)

// Fuzzy match acceptance bounds. The relative bound keeps short names from
// matching everything within the absolute bound.
const (
	maxNameDistance   = 5
	nameDistanceRatio = 0.4
)

// matcher resolves normalized records against the persisted roster.
// Exact student-number lookup always wins; fuzzy name matching exists
// because scanned/PDF exports usually carry no identifiers.
type matcher struct {
	roster     []cadet.Cadet
	byNumber   map[string]cadet.Cadet
	byEmail    map[string]cadet.Cadet
	byUsername map[string]cadet.Cadet
}

func newMatcher(roster []cadet.Cadet) *matcher {
	m := &matcher{
		roster:     roster,
		byNumber:   make(map[string]cadet.Cadet, len(roster)),
		byEmail:    make(map[string]cadet.Cadet, len(roster)),
		byUsername: make(map[string]cadet.Cadet, len(roster)),
	}
	for _, cdt := range roster {
		if cdt.StudentNumber != "" {
			m.byNumber[cdt.StudentNumber] = cdt
		}
		if cdt.Email != "" {
			m.byEmail[cdt.Email] = cdt
		}
		if cdt.Username != "" {
			m.byUsername[cdt.Username] = cdt
		}
	}
	return m
}

// match resolves a record to a cadet: exact student number first, then
// fuzzy full-name matching. A failed match is not an error; the caller
// counts the record as skipped.
func (m *matcher) match(rec Record) (cadet.Cadet, bool) {
	if rec.StudentNumber != "" {
		cdt, ok := m.byNumber[rec.StudentNumber]
		return cdt, ok
	}
	if rec.Name != "" {
		return m.fuzzyMatch(rec.Name)
	}
	return cadet.Cadet{}, false
}

// matchForGrades resolves with the bulk score import priority:
// student number, email, username, then name.
func (m *matcher) matchForGrades(rec Record) (cadet.Cadet, bool) {
	if rec.StudentNumber != "" {
		if cdt, ok := m.byNumber[rec.StudentNumber]; ok {
			return cdt, true
		}
	}
	if rec.Email != "" {
		if cdt, ok := m.byEmail[rec.Email]; ok {
			return cdt, true
		}
	}
	if rec.Username != "" {
		if cdt, ok := m.byUsername[rec.Username]; ok {
			return cdt, true
		}
	}
	if rec.Name != "" {
		return m.fuzzyMatch(rec.Name)
	}
	return cadet.Cadet{}, false
}

// fuzzyMatch finds the roster cadet with the minimum edit distance to the
// input name across the four name orderings, accepting only within the
// distance bounds.
func (m *matcher) fuzzyMatch(name string) (cadet.Cadet, bool) {
	input := core.CleanString(core.CollapseSpaces(name), true /* lower */)
	if input == "" {
		return cadet.Cadet{}, false
	}

	best := -1
	var bestCadet cadet.Cadet
	for _, cdt := range m.roster {
		for _, ordering := range cdt.NameOrderings() {
			d := levenshtein.ComputeDistance(input, strings.ToLower(ordering))
			if best == -1 || d < best {
				best, bestCadet = d, cdt
			}
		}
	}
	if best < 0 || best > maxNameDistance || float64(best) >= nameDistanceRatio*float64(len(input)) {
		return cadet.Cadet{}, false
	}
	return bestCadet, true
}
