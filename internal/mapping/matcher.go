package mapping

import (
	"sort"

	"github.com/opencasa/casa-core/internal/event"
)

// Matches reports whether the mapping's source coordinates cover the
// given event coordinates. Disabled mappings never match. Each source
// field matches on equality or wildcard.
func (m *Mapping) Matches(device, button string, action event.Action) bool {
	if !m.Enabled {
		return false
	}
	if m.Device != Wildcard && m.Device != device {
		return false
	}
	if m.Button != Wildcard && m.Button != button {
		return false
	}
	if m.Action != Wildcard && m.Action != string(action) {
		return false
	}
	return true
}

// FindMatches returns every enabled mapping covering the event
// coordinates, in dispatch order. All returned mappings execute; ordering
// only determines the sequence.
//
// Precedence:
//  1. Priority ascending (lower number dispatches first)
//  2. Exact fields before wildcards, device exactness weighing more
//     than button, button more than action
//  3. ID ascending, so equal mappings order deterministically
func FindMatches(mappings []Mapping, device, button string, action event.Action) []Mapping {
	var matches []Mapping
	for i := range mappings {
		if mappings[i].Matches(device, button, action) {
			matches = append(matches, mappings[i])
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := &matches[i], &matches[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		sa, sb := specificity(a), specificity(b)
		if sa != sb {
			return sa > sb
		}
		return a.ID < b.ID
	})

	return matches
}

// specificity scores how exact a mapping's source coordinates are.
// Device exactness outweighs button, which outweighs action, so the
// score doubles as a lexicographic comparison of the three fields.
func specificity(m *Mapping) int {
	score := 0
	if m.Device != Wildcard {
		score += 4
	}
	if m.Button != Wildcard {
		score += 2
	}
	if m.Action != Wildcard {
		score++
	}
	return score
}
