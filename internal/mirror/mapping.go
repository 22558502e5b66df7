package mirror

// expansionGroups maps our expansion IDs to the mirror's numeric group IDs.
// Hand-maintained: the mirror has no stable cross-reference, so new expansions
// need a row here before CSV sync can cover them.
var expansionGroups = map[string]int64{
	"base1":  604,
	"base2":  630,
	"basep":  1418,
	"neo1":   1396,
	"swsh1":  2585,
	"swsh7":  2848,
	"swsh9":  3020,
	"swsh10": 3118,
	"swsh12": 3260,
	"sv1":    3309,
	"sv2":    3368,
	"sv3":    3418,
	"sv3pt5": 23237,
	"sv4":    23286,
	"sv5":    23330,
	"sv6":    23381,
	"sv7":    23448,
	"sv8":    23529,
}

var groupExpansions = func() map[int64]string {
	m := make(map[int64]string, len(expansionGroups))
	for exp, group := range expansionGroups {
		m[group] = exp
	}
	return m
}()

// GroupIDFor returns the mirror group ID for an expansion, if mapped.
func GroupIDFor(expansionID string) (int64, bool) {
	id, ok := expansionGroups[expansionID]
	return id, ok
}

// ExpansionIDFor returns the expansion ID for a mirror group, if mapped.
func ExpansionIDFor(groupID int64) (string, bool) {
	id, ok := groupExpansions[groupID]
	return id, ok
}

// MappedExpansions returns every expansion ID with a mirror mapping.
func MappedExpansions() []string {
	ids := make([]string, 0, len(expansionGroups))
	for id := range expansionGroups {
		ids = append(ids, id)
	}
	return ids
}
