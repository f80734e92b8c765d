package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the subset of pgxpool.Pool the repository needs, so tests can
// substitute a pgxmock pool.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores doctors and structures in the relational database.
type PostgresRepository struct {
	pool pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(pool pgxQuerier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const doctorColumns = `id, org_id, first_name, last_name, date_of_birth, structure_ids, availability, notes, last_visit, appointment_date`

func (r *PostgresRepository) ListDoctors(ctx context.Context, orgID string) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE org_id = $1
		ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("directory: list doctors: %w", err)
	}
	defer rows.Close()

	out := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetDoctor(ctx context.Context, orgID, id string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE org_id = $1 AND id = $2`, orgID, id)
	d, err := scanDoctor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (r *PostgresRepository) CreateDoctor(ctx context.Context, orgID string, d *Doctor) (*Doctor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	stored := cloneDoctor(d)
	stored.ID = uuid.New().String()
	stored.OrgID = orgID
	stored.Normalize()

	availability, err := json.Marshal(stored.Availability)
	if err != nil {
		return nil, fmt.Errorf("directory: marshal availability: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, org_id, first_name, last_name, date_of_birth, structure_ids, availability, notes, last_visit, appointment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		stored.ID, orgID, stored.FirstName, stored.LastName, stored.DateOfBirth,
		stored.StructureIDs, availability, stored.Notes, stored.LastVisit, stored.AppointmentDate,
	); err != nil {
		return nil, fmt.Errorf("directory: insert doctor: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) UpdateDoctor(ctx context.Context, orgID string, d *Doctor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	updated := cloneDoctor(d)
	updated.Normalize()

	availability, err := json.Marshal(updated.Availability)
	if err != nil {
		return fmt.Errorf("directory: marshal availability: %w", err)
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET first_name = $3, last_name = $4, date_of_birth = $5, structure_ids = $6,
		    availability = $7, notes = $8, last_visit = $9, appointment_date = $10,
		    updated_at = now()
		WHERE org_id = $1 AND id = $2`,
		orgID, updated.ID, updated.FirstName, updated.LastName, updated.DateOfBirth,
		updated.StructureIDs, availability, updated.Notes, updated.LastVisit, updated.AppointmentDate,
	)
	if err != nil {
		return fmt.Errorf("directory: update doctor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateDoctorFields(ctx context.Context, orgID, id string, patch DoctorPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	sets := []string{}
	args := []any{orgID, id}
	appendSet := func(column string, value string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.LastVisit != nil {
		appendSet("last_visit", *patch.LastVisit)
	}
	if patch.AppointmentDate != nil {
		appendSet("appointment_date", *patch.AppointmentDate)
	}
	if patch.Notes != nil {
		appendSet("notes", *patch.Notes)
	}
	sets = append(sets, "updated_at = now()")

	ct, err := r.pool.Exec(ctx,
		"UPDATE doctors SET "+strings.Join(sets, ", ")+" WHERE org_id = $1 AND id = $2",
		args...)
	if err != nil {
		return fmt.Errorf("directory: patch doctor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteDoctor(ctx context.Context, orgID, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("directory: delete doctor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListStructures(ctx context.Context, orgID string) ([]Structure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, name, address
		FROM structures
		WHERE org_id = $1
		ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("directory: list structures: %w", err)
	}
	defer rows.Close()

	out := []Structure{}
	for rows.Next() {
		var s Structure
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Name, &s.Address); err != nil {
			return nil, fmt.Errorf("directory: scan structure: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateStructure(ctx context.Context, orgID string, s *Structure) (*Structure, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	stored := *s
	stored.ID = uuid.New().String()
	stored.OrgID = orgID

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO structures (id, org_id, name, address)
		VALUES ($1, $2, $3, $4)`,
		stored.ID, orgID, stored.Name, stored.Address,
	); err != nil {
		return nil, fmt.Errorf("directory: insert structure: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) UpdateStructure(ctx context.Context, orgID string, s *Structure) error {
	if err := s.Validate(); err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE structures
		SET name = $3, address = $4, updated_at = now()
		WHERE org_id = $1 AND id = $2`,
		orgID, s.ID, s.Name, s.Address)
	if err != nil {
		return fmt.Errorf("directory: update structure: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStructureNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteStructure(ctx context.Context, orgID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("directory: begin delete structure: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Cascade first so no doctor keeps a dangling reference.
	if _, err := tx.Exec(ctx, `
		UPDATE doctors
		SET structure_ids = array_remove(structure_ids, $2), updated_at = now()
		WHERE org_id = $1 AND $2 = ANY(structure_ids)`, orgID, id); err != nil {
		return fmt.Errorf("directory: cascade structure delete: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM structures WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("directory: delete structure: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStructureNotFound
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) ReplaceAll(ctx context.Context, orgID string, a *Archive) error {
	a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("directory: begin import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM doctors WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("directory: clear doctors: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM structures WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("directory: clear structures: %w", err)
	}

	for i := range a.Structures {
		s := a.Structures[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO structures (id, org_id, name, address)
			VALUES ($1, $2, $3, $4)`,
			s.ID, orgID, s.Name, s.Address); err != nil {
			return fmt.Errorf("directory: import structure: %w", err)
		}
	}
	for i := range a.Doctors {
		d := a.Doctors[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		availability, err := json.Marshal(d.Availability)
		if err != nil {
			return fmt.Errorf("directory: marshal availability: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, org_id, first_name, last_name, date_of_birth, structure_ids, availability, notes, last_visit, appointment_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.ID, orgID, d.FirstName, d.LastName, d.DateOfBirth,
			d.StructureIDs, availability, d.Notes, d.LastVisit, d.AppointmentDate); err != nil {
			return fmt.Errorf("directory: import doctor: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var availability []byte
	if err := row.Scan(&d.ID, &d.OrgID, &d.FirstName, &d.LastName, &d.DateOfBirth,
		&d.StructureIDs, &availability, &d.Notes, &d.LastVisit, &d.AppointmentDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("directory: scan doctor: %w", err)
	}
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &d.Availability); err != nil {
			return nil, fmt.Errorf("directory: unmarshal availability: %w", err)
		}
	}
	d.Normalize()
	return &d, nil
}
