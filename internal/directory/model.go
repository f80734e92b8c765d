// Package directory holds the doctor and structure records the scheduling
// engine operates on, together with their storage backends.
package directory

import "strings"

// Weekdays lists the seven availability keys in Monday-first order. The keys
// are the legacy lowercase Italian names carried by imported records.
var Weekdays = []string{"lunedi", "martedi", "mercoledi", "giovedi", "venerdi", "sabato", "domenica"}

// Doctor is a field-visit target. Calendar fields are ISO "2006-01-02"
// strings; the empty string means the date is absent. Availability maps each
// weekday key to a free-text shift range such as "9-12 / 15-18".
type Doctor struct {
	ID              string            `json:"id"`
	OrgID           string            `json:"-"`
	FirstName       string            `json:"firstName"`
	LastName        string            `json:"lastName"`
	DateOfBirth     string            `json:"dateOfBirth"`
	StructureIDs    []string          `json:"structureIds"`
	Availability    map[string]string `json:"availability"`
	Notes           string            `json:"notes"`
	LastVisit       string            `json:"lastVisit"`
	AppointmentDate string            `json:"appointmentDate"`
}

// FullName returns the display name used for search matching.
func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

// Normalize fills the zero values legacy import payloads may omit so the rest
// of the system never sees nil maps or slices.
func (d *Doctor) Normalize() {
	if d.StructureIDs == nil {
		d.StructureIDs = []string{}
	}
	if d.Availability == nil {
		d.Availability = map[string]string{}
	}
	for _, day := range Weekdays {
		if _, ok := d.Availability[day]; !ok {
			d.Availability[day] = ""
		}
	}
}

// Validate checks the persistence invariants for a doctor record.
func (d *Doctor) Validate() error {
	if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
		return ErrMissingName
	}
	return nil
}

// Structure is a healthcare facility doctors may be affiliated with.
type Structure struct {
	ID      string `json:"id"`
	OrgID   string `json:"-"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Validate checks the persistence invariants for a structure record.
func (s *Structure) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrMissingStructureName
	}
	return nil
}

// DoctorPatch is a merge-style partial update. Nil fields are left untouched.
type DoctorPatch struct {
	LastVisit       *string
	AppointmentDate *string
	Notes           *string
}

// IsEmpty reports whether the patch would change nothing.
func (p DoctorPatch) IsEmpty() bool {
	return p.LastVisit == nil && p.AppointmentDate == nil && p.Notes == nil
}

// Archive is the import/export payload. Doctor records in older backups may
// omit notes, lastVisit and appointmentDate; Normalize restores them as "".
type Archive struct {
	Doctors    []Doctor    `json:"doctors"`
	Structures []Structure `json:"structures"`
}

// Normalize prepares an imported archive for storage.
func (a *Archive) Normalize() {
	if a.Doctors == nil {
		a.Doctors = []Doctor{}
	}
	if a.Structures == nil {
		a.Structures = []Structure{}
	}
	for i := range a.Doctors {
		a.Doctors[i].Normalize()
	}
}

// Validate rejects archives whose records break the persistence invariants.
func (a *Archive) Validate() error {
	for i := range a.Doctors {
		if err := a.Doctors[i].Validate(); err != nil {
			return err
		}
	}
	for i := range a.Structures {
		if err := a.Structures[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
