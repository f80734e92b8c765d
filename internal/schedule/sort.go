package schedule

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wolfman30/medvisit-platform/internal/directory"
)

// SortKey selects the doctor field to order by.
type SortKey string

const (
	SortByLastName    SortKey = "lastName"
	SortByFirstName   SortKey = "firstName"
	SortByLastVisit   SortKey = "lastVisit"
	SortByAppointment SortKey = "appointmentDate"
)

// SortDirection is "asc" or "desc".
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortGroups orders the member list of every group independently and leaves
// group order untouched. The returned groups carry fresh slices; the inputs
// are not mutated.
func SortGroups(groups []Group, key SortKey, dir SortDirection) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		sorted := make([]directory.Doctor, len(g.Doctors))
		copy(sorted, g.Doctors)
		sortDoctors(sorted, key, dir)
		g.Doctors = sorted
		out[i] = g
	}
	return out
}

// sortDoctors stable-sorts in place. Doctors without a value for the key sort
// last regardless of direction. Name keys compare with Italian collation,
// date keys lexically (ISO dates order correctly that way).
func sortDoctors(doctors []directory.Doctor, key SortKey, dir SortDirection) {
	value := sortValue(key)
	var c *collate.Collator
	if key == SortByLastName || key == SortByFirstName {
		// A collator is not safe for concurrent use, so build one per sort.
		c = collate.New(language.Italian, collate.IgnoreCase)
	}
	desc := dir == SortDesc
	sort.SliceStable(doctors, func(i, j int) bool {
		a, b := value(&doctors[i]), value(&doctors[j])
		if a == "" || b == "" {
			return b == "" && a != ""
		}
		var cmp int
		if c != nil {
			cmp = c.CompareString(a, b)
		} else {
			cmp = strings.Compare(a, b)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func sortValue(key SortKey) func(*directory.Doctor) string {
	switch key {
	case SortByFirstName:
		return func(d *directory.Doctor) string { return d.FirstName }
	case SortByLastVisit:
		return func(d *directory.Doctor) string { return d.LastVisit }
	case SortByAppointment:
		return func(d *directory.Doctor) string { return d.AppointmentDate }
	}
	return func(d *directory.Doctor) string { return d.LastName }
}
