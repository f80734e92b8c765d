package schedule

import "github.com/wolfman30/medvisit-platform/internal/directory"

// BuildReport runs the full filter -> group -> sort pass over a point-in-time
// snapshot of an org's records. Pure: identical inputs yield identical output.
func BuildReport(doctors []directory.Doctor, structures []directory.Structure, c Criteria, key SortKey, dir SortDirection) []Group {
	filtered := Filter(doctors, c)
	groups := GroupByStructure(filtered, structures)
	return SortGroups(groups, key, dir)
}
