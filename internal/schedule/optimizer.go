package schedule

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wolfman30/medvisit-platform/internal/directory"
)

// noStructureLabel annotates confirmed visits for doctors with no resolvable
// structure.
const noStructureLabel = "Nessuna struttura"

// ConfirmedVisit is a doctor whose appointment lands exactly on the target
// date, annotated for display.
type ConfirmedVisit struct {
	Doctor         directory.Doctor `json:"doctor"`
	StructureNames string           `json:"structureNames"`
	ShiftLabel     string           `json:"shiftLabel"`
}

// ShiftBucket lists, for one structure and one shift, the doctors with stated
// availability and the potential fallbacks with no stated schedule.
type ShiftBucket struct {
	StructureID   string             `json:"structureId"`
	StructureName string             `json:"structureName"`
	Available     []directory.Doctor `json:"disponibili"`
	Potential     []directory.Doctor `json:"potenziali"`
}

// OptimizationReport is the day-partitioned visit recommendation for a target
// date. Entirely derived; rebuilt per request.
type OptimizationReport struct {
	Date      string           `json:"date"`
	Weekday   string           `json:"weekday"`
	Confirmed []ConfirmedVisit `json:"appointments"`
	Morning   []ShiftBucket    `json:"mattina"`
	Afternoon []ShiftBucket    `json:"pomeriggio"`
}

// Optimize recommends visit candidates for targetDate. Doctors already
// confirmed for the date are extracted first and never reappear in the shift
// buckets; doctors with stated availability for the weekday land in the
// "available" lists; doctors with no schedule at all become "potential"
// fallbacks for both shifts of every relevant structure they belong to.
func Optimize(doctors []directory.Doctor, structures []directory.Structure, targetDate time.Time) OptimizationReport {
	target := truncateDay(targetDate)
	weekday := WeekdayName(target)

	names := make(map[string]string, len(structures))
	for _, s := range structures {
		names[s.ID] = s.Name
	}

	report := OptimizationReport{
		Date:      target.Format(DayFormat),
		Weekday:   weekday,
		Confirmed: []ConfirmedVisit{},
		Morning:   []ShiftBucket{},
		Afternoon: []ShiftBucket{},
	}

	// Confirmed appointments leave the candidate pool entirely.
	remaining := make([]directory.Doctor, 0, len(doctors))
	for _, d := range doctors {
		if appt, ok := parseDay(d.AppointmentDate); ok && truncateDay(appt).Equal(target) {
			report.Confirmed = append(report.Confirmed, ConfirmedVisit{
				Doctor:         d,
				StructureNames: joinStructureNames(d.StructureIDs, names),
				ShiftLabel:     ParseShifts(d.Availability[weekday]).Label(),
			})
			continue
		}
		remaining = append(remaining, d)
	}
	sortConfirmed(report.Confirmed)

	morning := newBucketSet(names)
	afternoon := newBucketSet(names)
	relevant := map[string]bool{}
	available := map[string]bool{}

	// Doctors with stated availability for the weekday.
	for _, d := range remaining {
		flags := ParseShifts(d.Availability[weekday])
		if !flags.Any() {
			continue
		}
		for _, sid := range resolveStructureIDs(d.StructureIDs, names) {
			if flags.Morning {
				morning.addAvailable(sid, d)
			}
			if flags.Afternoon {
				afternoon.addAvailable(sid, d)
			}
			relevant[sid] = true
		}
		available[d.ID] = true
	}

	// Doctors with no schedule at all, attached to structures already in
	// play. They might take either shift, so both buckets get them.
	for _, d := range remaining {
		if available[d.ID] || strings.TrimSpace(d.Availability[weekday]) != "" {
			continue
		}
		for _, sid := range resolveStructureIDs(d.StructureIDs, names) {
			if !relevant[sid] {
				continue
			}
			morning.addPotential(sid, d)
			afternoon.addPotential(sid, d)
		}
	}

	order := make([]string, 0, len(structures)+1)
	for _, s := range structures {
		order = append(order, s.ID)
	}
	order = append(order, UnassignedGroupID)

	report.Morning = morning.collect(order)
	report.Afternoon = afternoon.collect(order)
	return report
}

// resolveStructureIDs filters ids down to known structures, deduplicated in
// order. A doctor with no resolvable structure maps to the unassigned
// sentinel, mirroring the grouping fallback.
func resolveStructureIDs(ids []string, names map[string]string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if _, ok := names[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return []string{UnassignedGroupID}
	}
	return out
}

func joinStructureNames(ids []string, names map[string]string) string {
	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			resolved = append(resolved, name)
		}
	}
	if len(resolved) == 0 {
		return noStructureLabel
	}
	return strings.Join(resolved, ", ")
}

func sortConfirmed(visits []ConfirmedVisit) {
	c := collate.New(language.Italian, collate.IgnoreCase)
	sort.SliceStable(visits, func(i, j int) bool {
		a, b := visits[i].Doctor.LastName, visits[j].Doctor.LastName
		if a == "" || b == "" {
			return b == "" && a != ""
		}
		return c.CompareString(a, b) < 0
	})
}

type bucketSet struct {
	names   map[string]string
	buckets map[string]*ShiftBucket
}

func newBucketSet(names map[string]string) *bucketSet {
	return &bucketSet{names: names, buckets: map[string]*ShiftBucket{}}
}

func (b *bucketSet) bucket(sid string) *ShiftBucket {
	if existing, ok := b.buckets[sid]; ok {
		return existing
	}
	name := b.names[sid]
	if sid == UnassignedGroupID {
		name = UnassignedGroupName
	}
	created := &ShiftBucket{StructureID: sid, StructureName: name}
	b.buckets[sid] = created
	return created
}

func (b *bucketSet) addAvailable(sid string, d directory.Doctor) {
	bucket := b.bucket(sid)
	bucket.Available = append(bucket.Available, d)
}

func (b *bucketSet) addPotential(sid string, d directory.Doctor) {
	bucket := b.bucket(sid)
	for _, existing := range bucket.Potential {
		if existing.ID == d.ID {
			return
		}
	}
	bucket.Potential = append(bucket.Potential, d)
}

// collect returns the non-empty buckets in structure order, unassigned last,
// with both lists sorted by last name.
func (b *bucketSet) collect(order []string) []ShiftBucket {
	out := []ShiftBucket{}
	for _, sid := range order {
		bucket, ok := b.buckets[sid]
		if !ok || (len(bucket.Available) == 0 && len(bucket.Potential) == 0) {
			continue
		}
		sortDoctors(bucket.Available, SortByLastName, SortAsc)
		sortDoctors(bucket.Potential, SortByLastName, SortAsc)
		out = append(out, *bucket)
	}
	return out
}
