package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func credentialRows(cred *Credential) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "role", "verified", "alias",
		"failed_attempts", "last_failed_at", "locked_until", "created_at", "updated_at",
	})
	var lastFailed, lockedUntil any
	if cred.LastFailedAt != nil {
		lastFailed = *cred.LastFailedAt
	}
	if cred.LockedUntil != nil {
		lockedUntil = *cred.LockedUntil
	}
	rows.AddRow(cred.ID, cred.Email, cred.PasswordHash, string(cred.Role), cred.Verified, cred.Alias,
		cred.FailedAttempts, lastFailed, lockedUntil, cred.CreatedAt, cred.UpdatedAt)
	return rows
}

func TestPGStoreFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	locked := time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)
	want := &Credential{
		ID:           "01JAB",
		Email:        "rider@waisgo.io",
		PasswordHash: "$2a$12$hash",
		Role:         RoleDriver,
		Verified:     true,
		CreatedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	want.LockedUntil = &locked

	mock.ExpectQuery(regexp.QuoteMeta(`select `+credentialColumns+` from credentials where email=$1`)).
		WithArgs("rider@waisgo.io").
		WillReturnRows(credentialRows(want))

	got, err := NewPGStore(db).FindByEmail(context.Background(), " Rider@waisgo.io ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.ID != want.ID || got.Role != want.Role || !got.Verified {
		t.Fatalf("credential mismatch: %+v", got)
	}
	if got.LockedUntil == nil || !got.LockedUntil.Equal(locked) {
		t.Fatalf("locked_until = %v, want %v", got.LockedUntil, locked)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`select `+credentialColumns+` from credentials where email=$1`)).
		WithArgs("nobody@waisgo.io").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPGStore(db).FindByEmail(context.Background(), "nobody@waisgo.io")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	failedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cred := &Credential{ID: "01JAB", PasswordHash: "$2a$12$hash"}
	cred.FailedAttempts = 3
	cred.LastFailedAt = &failedAt

	mock.ExpectExec(`update credentials`).
		WithArgs("01JAB", "$2a$12$hash", 3, failedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPGStore(db).Save(context.Background(), cred); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreSaveMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`update credentials`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPGStore(db).Save(context.Background(), &Credential{ID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGStoreCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`insert into credentials`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "credentials_email_key" (SQLSTATE 23505)`))

	cred := &Credential{ID: "01JAB", Email: "rider@waisgo.io", PasswordHash: "x", Role: RoleUser}
	if err := NewPGStore(db).Create(context.Background(), cred); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestPGAuditLogRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`insert into audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sink := NewPGAuditLog(db)
	ev := Event{Action: ActionLogin, IdentityID: "01JAB", Email: "rider@waisgo.io", Result: ResultSucceeded}
	if err := sink.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
