package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/waisgo/authcore/internal/ids"
)

var _ CredentialStore = (*PGStore)(nil)

// PGStore implements CredentialStore using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const credentialColumns = `id, email, password_hash, role, verified, alias, failed_attempts, last_failed_at, locked_until, created_at, updated_at`

func (s *PGStore) Find(ctx context.Context, id string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+credentialColumns+` from credentials where id=$1`, id)
	return scanCredential(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+credentialColumns+` from credentials where email=$1`, strings.ToLower(strings.TrimSpace(email)))
	return scanCredential(row)
}

func (s *PGStore) Create(ctx context.Context, cred *Credential) error {
	if cred.ID == "" {
		cred.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into credentials(id, email, password_hash, role, verified, alias) values($1,$2,$3,$4,$5,$6)`,
		cred.ID, cred.Email, cred.PasswordHash, string(cred.Role), cred.Verified, nullString(cred.Alias),
	)
	if err != nil && isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// Save persists the mutable login-path fields in a single update; concurrent
// logins for one identity may overwrite each other's counters (best-effort,
// see LockoutPolicy).
func (s *PGStore) Save(ctx context.Context, cred *Credential) error {
	res, err := s.db.ExecContext(ctx,
		`update credentials
		 set password_hash=$2, failed_attempts=$3, last_failed_at=$4, locked_until=$5, updated_at=now()
		 where id=$1`,
		cred.ID, cred.PasswordHash, cred.FailedAttempts, nullTime(cred.LastFailedAt), nullTime(cred.LockedUntil),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*Credential, error) {
	var (
		cred       Credential
		role       string
		alias      sql.NullString
		lastFailed sql.NullTime
		lockedTill sql.NullTime
	)
	err := row.Scan(&cred.ID, &cred.Email, &cred.PasswordHash, &role, &cred.Verified, &alias,
		&cred.FailedAttempts, &lastFailed, &lockedTill, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cred.Role = Role(role)
	if alias.Valid {
		cred.Alias = alias.String
	}
	if lastFailed.Valid {
		t := lastFailed.Time
		cred.LastFailedAt = &t
	}
	if lockedTill.Valid {
		t := lockedTill.Time
		cred.LockedUntil = &t
	}
	return &cred, nil
}

// PGAuditLog implements AuditSink against the append-only audit_log table.
type PGAuditLog struct {
	db  *sql.DB
	now func() time.Time
}

var _ AuditSink = (*PGAuditLog)(nil)

func NewPGAuditLog(db *sql.DB) *PGAuditLog {
	return &PGAuditLog{db: db, now: time.Now}
}

func (a *PGAuditLog) Record(ctx context.Context, ev Event) error {
	_, err := a.db.ExecContext(ctx,
		`insert into audit_log(id, occurred_at, action, identity_id, email, ip, user_agent, result)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		ids.New(), a.now().UTC(), ev.Action, nullString(ev.IdentityID), nullString(ev.Email),
		nullString(ev.IP), nullString(ev.UserAgent), ev.Result,
	)
	return err
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	// pgx surfaces SQLSTATE in the error text; 23505 = unique_violation.
	return err != nil && strings.Contains(err.Error(), "23505")
}
