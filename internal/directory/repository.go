package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the interface for doctor and structure storage. All
// operations are scoped to an org.
type Repository interface {
	ListDoctors(ctx context.Context, orgID string) ([]Doctor, error)
	GetDoctor(ctx context.Context, orgID, id string) (*Doctor, error)
	CreateDoctor(ctx context.Context, orgID string, d *Doctor) (*Doctor, error)
	UpdateDoctor(ctx context.Context, orgID string, d *Doctor) error
	UpdateDoctorFields(ctx context.Context, orgID, id string, patch DoctorPatch) error
	DeleteDoctor(ctx context.Context, orgID, id string) error

	ListStructures(ctx context.Context, orgID string) ([]Structure, error)
	CreateStructure(ctx context.Context, orgID string, s *Structure) (*Structure, error)
	UpdateStructure(ctx context.Context, orgID string, s *Structure) error
	// DeleteStructure removes the structure and strips its id from every
	// doctor's structure list.
	DeleteStructure(ctx context.Context, orgID, id string) error

	// ReplaceAll swaps the entire org dataset, used by archive import.
	ReplaceAll(ctx context.Context, orgID string, a *Archive) error
}

// InMemoryRepository keeps all records in memory. Used in tests and when no
// DATABASE_URL is configured.
type InMemoryRepository struct {
	mu         sync.RWMutex
	doctors    []*Doctor
	structures []*Structure
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) ListDoctors(ctx context.Context, orgID string) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Doctor{}
	for _, d := range r.doctors {
		if d.OrgID == orgID {
			out = append(out, cloneDoctor(d))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) GetDoctor(ctx context.Context, orgID, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := r.findDoctor(orgID, id)
	if d == nil {
		return nil, ErrDoctorNotFound
	}
	copied := cloneDoctor(d)
	return &copied, nil
}

func (r *InMemoryRepository) CreateDoctor(ctx context.Context, orgID string, d *Doctor) (*Doctor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	stored := cloneDoctor(d)
	stored.ID = uuid.New().String()
	stored.OrgID = orgID
	stored.Normalize()

	r.mu.Lock()
	r.doctors = append(r.doctors, &stored)
	r.mu.Unlock()

	created := cloneDoctor(&stored)
	return &created, nil
}

func (r *InMemoryRepository) UpdateDoctor(ctx context.Context, orgID string, d *Doctor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.findDoctor(orgID, d.ID)
	if existing == nil {
		return ErrDoctorNotFound
	}
	updated := cloneDoctor(d)
	updated.OrgID = orgID
	updated.Normalize()
	*existing = updated
	return nil
}

func (r *InMemoryRepository) UpdateDoctorFields(ctx context.Context, orgID, id string, patch DoctorPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.findDoctor(orgID, id)
	if d == nil {
		return ErrDoctorNotFound
	}
	if patch.LastVisit != nil {
		d.LastVisit = *patch.LastVisit
	}
	if patch.AppointmentDate != nil {
		d.AppointmentDate = *patch.AppointmentDate
	}
	if patch.Notes != nil {
		d.Notes = *patch.Notes
	}
	return nil
}

func (r *InMemoryRepository) DeleteDoctor(ctx context.Context, orgID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.doctors {
		if d.OrgID == orgID && d.ID == id {
			r.doctors = append(r.doctors[:i], r.doctors[i+1:]...)
			return nil
		}
	}
	return ErrDoctorNotFound
}

func (r *InMemoryRepository) ListStructures(ctx context.Context, orgID string) ([]Structure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Structure{}
	for _, s := range r.structures {
		if s.OrgID == orgID {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) CreateStructure(ctx context.Context, orgID string, s *Structure) (*Structure, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	stored := *s
	stored.ID = uuid.New().String()
	stored.OrgID = orgID

	r.mu.Lock()
	r.structures = append(r.structures, &stored)
	r.mu.Unlock()

	created := stored
	return &created, nil
}

func (r *InMemoryRepository) UpdateStructure(ctx context.Context, orgID string, s *Structure) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.structures {
		if existing.OrgID == orgID && existing.ID == s.ID {
			existing.Name = s.Name
			existing.Address = s.Address
			return nil
		}
	}
	return ErrStructureNotFound
}

func (r *InMemoryRepository) DeleteStructure(ctx context.Context, orgID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, s := range r.structures {
		if s.OrgID == orgID && s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrStructureNotFound
	}
	r.structures = append(r.structures[:idx], r.structures[idx+1:]...)

	// Cascade: strip the id from every doctor in the org.
	for _, d := range r.doctors {
		if d.OrgID != orgID {
			continue
		}
		kept := d.StructureIDs[:0]
		for _, sid := range d.StructureIDs {
			if sid != id {
				kept = append(kept, sid)
			}
		}
		d.StructureIDs = kept
	}
	return nil
}

func (r *InMemoryRepository) ReplaceAll(ctx context.Context, orgID string, a *Archive) error {
	a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doctors := r.doctors[:0]
	for _, d := range r.doctors {
		if d.OrgID != orgID {
			doctors = append(doctors, d)
		}
	}
	r.doctors = doctors
	structures := r.structures[:0]
	for _, s := range r.structures {
		if s.OrgID != orgID {
			structures = append(structures, s)
		}
	}
	r.structures = structures

	for i := range a.Structures {
		stored := a.Structures[i]
		stored.OrgID = orgID
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}
		r.structures = append(r.structures, &stored)
	}
	for i := range a.Doctors {
		stored := cloneDoctor(&a.Doctors[i])
		stored.OrgID = orgID
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}
		r.doctors = append(r.doctors, &stored)
	}
	return nil
}

func (r *InMemoryRepository) findDoctor(orgID, id string) *Doctor {
	for _, d := range r.doctors {
		if d.OrgID == orgID && d.ID == id {
			return d
		}
	}
	return nil
}

func cloneDoctor(d *Doctor) Doctor {
	copied := *d
	copied.StructureIDs = append([]string(nil), d.StructureIDs...)
	if copied.StructureIDs == nil {
		copied.StructureIDs = []string{}
	}
	copied.Availability = make(map[string]string, len(d.Availability))
	for k, v := range d.Availability {
		copied.Availability[k] = v
	}
	return copied
}
