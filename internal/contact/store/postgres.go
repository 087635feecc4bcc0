package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"agenda/internal/contact/models"
	"agenda/pkg/platform/sentinel"
)

// PostgreSQL error codes: unique index violation and malformed literal
// (a non-uuid id is "no such contact", not a server fault).
const (
	uniqueViolation = "23505"
	invalidTextRep  = "22P02"
)

// Postgres persists contacts in PostgreSQL. The unique index on telefono is
// the authoritative uniqueness guard; the store never pre-checks with a read.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the contacts table and its unique phone index.
// Idempotent; called at startup and by integration tests.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	nombre       text NOT NULL,
	telefono     text NOT NULL,
	pais         text NOT NULL,
	iso2         text NOT NULL,
	capital      text NOT NULL DEFAULT '',
	hora_capital text NOT NULL DEFAULT '',
	created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS contacts_telefono_key ON contacts (telefono);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure contacts schema: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (models.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, nombre, telefono, pais, iso2, capital, hora_capital
		 FROM contacts WHERE id = $1`, id)
	return scanContact(row)
}

func (s *Postgres) FindAll(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nombre, telefono, pais, iso2, capital, hora_capital FROM contacts`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Telefono, &c.Pais, &c.ISO2, &c.Capital, &c.HoraCapital); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

func (s *Postgres) Insert(ctx context.Context, c models.Contact) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO contacts (nombre, telefono, pais, iso2, capital, hora_capital)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		c.Nombre, c.Telefono, c.Pais, c.ISO2, c.Capital, c.HoraCapital,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", sentinel.ErrAlreadyUsed
		}
		return "", fmt.Errorf("insert contact: %w", err)
	}
	return id, nil
}

func (s *Postgres) DeleteByID(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		if hasPQCode(err, invalidTextRep) {
			return 0, nil
		}
		return 0, fmt.Errorf("delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete contact: %w", err)
	}
	return int(n), nil
}

// FindAndUpdate applies the partial update in one UPDATE ... RETURNING
// statement so readers never observe a half-applied change.
func (s *Postgres) FindAndUpdate(ctx context.Context, id string, upd models.Update) (models.Contact, error) {
	set := "nombre = COALESCE($2, nombre)"
	args := []any{id, nullString(upd.Nombre)}
	if upd.Phone != nil {
		set += `, telefono = $3, pais = $4, iso2 = $5, capital = $6, hora_capital = $7`
		args = append(args, upd.Phone.Telefono, upd.Phone.Pais, upd.Phone.ISO2, upd.Phone.Capital, upd.Phone.HoraCapital)
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`UPDATE contacts SET %s WHERE id = $1
		 RETURNING id, nombre, telefono, pais, iso2, capital, hora_capital`, set), args...)

	c, err := scanContact(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Contact{}, sentinel.ErrAlreadyUsed
		}
		return models.Contact{}, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.Nombre, &c.Telefono, &c.Pais, &c.ISO2, &c.Capital, &c.HoraCapital)
	if errors.Is(err, sql.ErrNoRows) || hasPQCode(err, invalidTextRep) {
		return models.Contact{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Contact{}, fmt.Errorf("scan contact: %w", err)
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	return hasPQCode(err, uniqueViolation)
}

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
