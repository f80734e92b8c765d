package schedule

import "github.com/wolfman30/medvisit-platform/internal/directory"

// UnassignedGroupID keys the sentinel bucket for doctors with no resolvable
// structure affiliation.
const UnassignedGroupID = "unassigned"

// UnassignedGroupName is the label the legacy report rendered for that bucket.
const UnassignedGroupName = "Medici non assegnati a una struttura"

// Group is one report section: a structure (or the unassigned sentinel) with
// its member doctors. Rebuilt on every pass; each group holds independent
// value copies of the doctor snapshot.
type Group struct {
	StructureID string             `json:"structureId"`
	Name        string             `json:"name"`
	Doctors     []directory.Doctor `json:"doctors"`
}

// GroupByStructure partitions doctors into per-structure buckets in the
// structures' own order, with the unassigned sentinel last. A doctor appears
// once per affiliated structure; one whose entire structure list fails to
// resolve falls back to the unassigned bucket. Empty groups are dropped.
func GroupByStructure(doctors []directory.Doctor, structures []directory.Structure) []Group {
	known := make(map[string]int, len(structures))
	groups := make([]Group, 0, len(structures)+1)
	for _, s := range structures {
		known[s.ID] = len(groups)
		groups = append(groups, Group{StructureID: s.ID, Name: s.Name})
	}
	unassigned := len(groups)
	groups = append(groups, Group{StructureID: UnassignedGroupID, Name: UnassignedGroupName})

	for _, d := range doctors {
		placed := false
		for _, id := range d.StructureIDs {
			if idx, ok := known[id]; ok {
				groups[idx].Doctors = append(groups[idx].Doctors, d)
				placed = true
			}
		}
		if !placed {
			groups[unassigned].Doctors = append(groups[unassigned].Doctors, d)
		}
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Doctors) > 0 {
			out = append(out, g)
		}
	}
	return out
}
