package directory

import (
	"context"
	"errors"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, newPostgresRepositoryWithQuerier(mock)
}

func doctorRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "org_id", "first_name", "last_name", "date_of_birth",
		"structure_ids", "availability", "notes", "last_visit", "appointment_date",
	})
}

func TestPostgresListDoctors(t *testing.T) {
	mock, repo := newMockRepo(t)

	rows := doctorRows().
		AddRow("d1", "org-1", "Anna", "Rossi", "1980-05-01",
			[]string{"s1"}, []byte(`{"martedi":"9-12"}`), "", "2026-01-10", "")
	mock.ExpectQuery("SELECT (.+) FROM doctors").WithArgs("org-1").WillReturnRows(rows)

	doctors, err := repo.ListDoctors(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != 1 {
		t.Fatalf("expected 1 doctor, got %d", len(doctors))
	}
	d := doctors[0]
	if d.ID != "d1" || d.LastName != "Rossi" {
		t.Errorf("unexpected doctor %+v", d)
	}
	if d.Availability["martedi"] != "9-12" {
		t.Errorf("expected availability preserved, got %q", d.Availability["martedi"])
	}
	if d.Availability["lunedi"] != "" {
		t.Errorf("expected normalized weekday keys")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetDoctorNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM doctors").WithArgs("org-1", "missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetDoctor(context.Background(), "org-1", "missing")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestPostgresCreateDoctor(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("INSERT INTO doctors").
		WithArgs(pgxmock.AnyArg(), "org-1", "Anna", "Rossi", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.CreateDoctor(context.Background(), "org-1", &Doctor{FirstName: "Anna", LastName: "Rossi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.OrgID != "org-1" {
		t.Errorf("expected org assigned, got %q", created.OrgID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateDoctorValidates(t *testing.T) {
	_, repo := newMockRepo(t)

	_, err := repo.CreateDoctor(context.Background(), "org-1", &Doctor{FirstName: "Anna"})
	if !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
}

func TestPostgresUpdateDoctorNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("UPDATE doctors").
		WithArgs("org-1", "d1", "Anna", "Rossi", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "", "", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateDoctor(context.Background(), "org-1", &Doctor{ID: "d1", FirstName: "Anna", LastName: "Rossi"})
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestPostgresUpdateDoctorFields(t *testing.T) {
	mock, repo := newMockRepo(t)

	visited := "2026-03-15"
	mock.ExpectExec("UPDATE doctors SET last_visit").
		WithArgs("org-1", "d1", visited).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateDoctorFields(context.Background(), "org-1", "d1", DoctorPatch{LastVisit: &visited})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateDoctorFieldsEmptyPatchIsNoop(t *testing.T) {
	mock, repo := newMockRepo(t)

	if err := repo.UpdateDoctorFields(context.Background(), "org-1", "d1", DoctorPatch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDeleteDoctor(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("DELETE FROM doctors").WithArgs("org-1", "d1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := repo.DeleteDoctor(context.Background(), "org-1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("DELETE FROM doctors").WithArgs("org-1", "gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	if err := repo.DeleteDoctor(context.Background(), "org-1", "gone"); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestPostgresListStructures(t *testing.T) {
	mock, repo := newMockRepo(t)

	rows := pgxmock.NewRows([]string{"id", "org_id", "name", "address"}).
		AddRow("s1", "org-1", "Clinica Aurora", "Via Roma 1").
		AddRow("s2", "org-1", "Poliambulatorio Verdi", "")
	mock.ExpectQuery("SELECT (.+) FROM structures").WithArgs("org-1").WillReturnRows(rows)

	structures, err := repo.ListStructures(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(structures) != 2 {
		t.Fatalf("expected 2 structures, got %d", len(structures))
	}
	if structures[0].Name != "Clinica Aurora" {
		t.Errorf("unexpected order: %+v", structures)
	}
}

func TestPostgresDeleteStructureCascades(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE doctors").WithArgs("org-1", "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec("DELETE FROM structures").WithArgs("org-1", "s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	if err := repo.DeleteStructure(context.Background(), "org-1", "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDeleteStructureNotFoundRollsBack(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE doctors").WithArgs("org-1", "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("DELETE FROM structures").WithArgs("org-1", "gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := repo.DeleteStructure(context.Background(), "org-1", "gone")
	if !errors.Is(err, ErrStructureNotFound) {
		t.Fatalf("expected ErrStructureNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresReplaceAll(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM doctors").WithArgs("org-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM structures").WithArgs("org-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO structures").
		WithArgs("s-import", "org-1", "Clinica Aurora", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO doctors").
		WithArgs("d-import", "org-1", "Sara", "Verdi", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), "org-1", &Archive{
		Doctors:    []Doctor{{ID: "d-import", FirstName: "Sara", LastName: "Verdi"}},
		Structures: []Structure{{ID: "s-import", Name: "Clinica Aurora"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
