package mirror

import "testing"

func TestMappingIsBidirectional(t *testing.T) {
	for expansionID, groupID := range expansionGroups {
		back, ok := ExpansionIDFor(groupID)
		if !ok {
			t.Errorf("group %d has no reverse mapping", groupID)
			continue
		}
		if back != expansionID {
			t.Errorf("ExpansionIDFor(%d) = %q, want %q", groupID, back, expansionID)
		}
	}
}

func TestGroupIDForUnmapped(t *testing.T) {
	if _, ok := GroupIDFor("not-an-expansion"); ok {
		t.Error("unmapped expansion must report ok=false")
	}
}

func TestMappedExpansionsCount(t *testing.T) {
	if got, want := len(MappedExpansions()), len(expansionGroups); got != want {
		t.Errorf("MappedExpansions() returned %d ids, want %d", got, want)
	}
}
