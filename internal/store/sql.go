package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-iftar/internal/service"
)

const schema = `CREATE TABLE IF NOT EXISTS locations (
	id              VARCHAR(36) PRIMARY KEY,
	name            VARCHAR(120) NOT NULL,
	area            VARCHAR(120),
	iftar_type      VARCHAR(64) NOT NULL,
	target_audience VARCHAR(64) NOT NULL,
	lat             DOUBLE PRECISION NOT NULL,
	lng             DOUBLE PRECISION NOT NULL,
	date            VARCHAR(10) NOT NULL,
	created_at      TIMESTAMP NOT NULL
)`

const dateIndex = `CREATE INDEX IF NOT EXISTS idx_locations_date ON locations (date)`

const columns = `id, name, area, iftar_type, target_audience, lat, lng, date, created_at`

// SQL is a service.Store over database/sql. The same queries run on
// DuckDB, PostgreSQL (pgx) and SQLite; only the placeholder style differs.
type SQL struct {
	db      *sql.DB
	dollar  bool
	now     func() time.Time
	timeout time.Duration
}

// NewSQL wraps db and creates the locations table if needed. driver is the
// database/sql driver name the connection was opened with.
func NewSQL(ctx context.Context, db *sql.DB, driver string) (*SQL, error) {
	s := &SQL{
		db:      db,
		dollar:  driver == "pgx",
		now:     time.Now,
		timeout: 10 * time.Second,
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	for _, stmt := range []string{schema, dateIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating locations schema: %w", err)
		}
	}
	return nil
}

// List returns matching locations, newest first.
func (s *SQL) List(ctx context.Context, f service.ListFilter) ([]service.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := listQuery(f)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var result []service.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, unavailable("list scan", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list rows", err)
	}
	return result, nil
}

// Get returns a location by ID.
func (s *SQL) Get(ctx context.Context, id string) (service.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+columns+` FROM locations WHERE id = ?`), id)
	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Location{}, service.ErrNotFound
	}
	if err != nil {
		return service.Location{}, unavailable("get", err)
	}
	return l, nil
}

// Create inserts a new location with a generated ID.
func (s *SQL) Create(ctx context.Context, fields service.LocationFields) (service.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	l := fromFields(uuid.NewString(), fields, s.now().UTC().Truncate(time.Microsecond))
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO locations (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		l.ID, l.Name, nullable(l.Area), l.IftarType, l.Audience, l.Lat, l.Lng, l.Date, l.CreatedAt)
	if err != nil {
		return service.Location{}, unavailable("create", err)
	}
	return l, nil
}

// Update overwrites every writable column and returns the affected rows.
func (s *SQL) Update(ctx context.Context, id string, fields service.LocationFields) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE locations
		SET name = ?, area = ?, iftar_type = ?, target_audience = ?, lat = ?, lng = ?, date = ?
		WHERE id = ?`),
		fields.Name, nullable(fields.Area), fields.IftarType, fields.Audience, fields.Lat, fields.Lng, fields.Date, id)
	if err != nil {
		return 0, unavailable("update", err)
	}
	return affected(res)
}

// Delete removes a location and returns the affected rows.
func (s *SQL) Delete(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM locations WHERE id = ?`), id)
	if err != nil {
		return 0, unavailable("delete", err)
	}
	return affected(res)
}

// Ping checks the connection.
func (s *SQL) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQL) Close() error {
	return s.db.Close()
}

func listQuery(f service.ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Date != nil {
		where = append(where, "date = ?")
		args = append(args, *f.Date)
	}
	if f.CreatedAfter != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.CreatedAfter.UTC())
	}
	if f.CreatedBefore != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.CreatedBefore.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT " + columns + " FROM locations")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC")
	return b.String(), args
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQL) rebind(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(sc scanner) (service.Location, error) {
	var (
		l    service.Location
		area sql.NullString
	)
	if err := sc.Scan(&l.ID, &l.Name, &area, &l.IftarType, &l.Audience, &l.Lat, &l.Lng, &l.Date, &l.CreatedAt); err != nil {
		return service.Location{}, err
	}
	l.Area = area.String
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("rows affected", err)
	}
	return n, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", service.ErrUnavailable, op, err)
}
