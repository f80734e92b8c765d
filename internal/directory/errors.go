package directory

import "errors"

var (
	// ErrMissingName is returned when a doctor has no first or last name.
	ErrMissingName = errors.New("first and last name are required")

	// ErrMissingStructureName is returned when a structure has no name.
	ErrMissingStructureName = errors.New("structure name is required")

	// ErrDoctorNotFound is returned when a doctor id does not resolve.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrStructureNotFound is returned when a structure id does not resolve.
	ErrStructureNotFound = errors.New("structure not found")
)
