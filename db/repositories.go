package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"people/metrics"
)

// SearchLimit caps the number of people returned by Search.
const SearchLimit = 50

const nicknameConstraint = "people_nickname_key"

var (
	// ErrDuplicateKey reports that the nickname is already taken.
	ErrDuplicateKey = errors.New("nickname already exists")
	ErrNotFound     = errors.New("person not found")
)

// StorageError wraps any store failure other than ErrDuplicateKey and ErrNotFound.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("db.%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type Repository struct {
	conn    PgxIface
	metrics *metrics.Metrics
}

func NewRepository(conn PgxIface, m *metrics.Metrics) *Repository {
	return &Repository{conn: conn, metrics: m}
}

// Insert stores the person under a fresh id and returns it. The unique
// constraint on nickname decides concurrent inserts of the same nickname.
func (r *Repository) Insert(ctx context.Context, person Person) (id uuid.UUID, err error) {
	defer r.observe("insert", time.Now(), &err)

	sql := `insert into people (id, nickname, name, birth_date, stack, searchable) values ($1, $2, $3, $4, $5, $6)`

	id = uuid.New()

	_, err = r.conn.Exec(ctx, sql, id, person.Nickname, person.Name, person.BirthDate, person.Stack, person.searchable())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == nicknameConstraint {
			return uuid.Nil, fmt.Errorf("db.insert %q: %w", person.Nickname, ErrDuplicateKey)
		}

		return uuid.Nil, &StorageError{Op: "insert", Err: err}
	}

	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (_ *Person, err error) {
	defer r.observe("get_by_id", time.Now(), &err)

	sql := `select id, nickname, name, birth_date, stack from people where id = $1`

	var person Person
	err = r.conn.QueryRow(ctx, sql, id).Scan(
		&person.ID,
		&person.Nickname,
		&person.Name,
		&person.BirthDate,
		&person.Stack)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("db.get_by_id %s: %w", id, ErrNotFound)
		}

		return nil, &StorageError{Op: "get_by_id", Err: err}
	}

	return &person, nil
}

// Search returns up to SearchLimit people whose nickname, name or one of
// whose stack entries contains term, ignoring case. The searchable column
// only narrows candidates through the trigram index; the per-field predicate
// keeps matches from spanning two fields.
func (r *Repository) Search(ctx context.Context, term string) (_ []Person, err error) {
	defer r.observe("search", time.Now(), &err)

	sql := `select id, nickname, name, birth_date, stack from people ` +
		`where searchable ilike $1 and (nickname ilike $1 or name ilike $1 ` +
		`or exists (select 1 from unnest(stack) as s(tag) where s.tag ilike $1)) ` +
		`limit $2`

	rows, err := r.conn.Query(ctx, sql, containsPattern(term), SearchLimit)
	if err != nil {
		return nil, &StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	people := []Person{}
	for rows.Next() {
		var person Person

		if err := rows.Scan(
			&person.ID,
			&person.Nickname,
			&person.Name,
			&person.BirthDate,
			&person.Stack); err != nil {
			return nil, &StorageError{Op: "search", Err: err}
		}

		people = append(people, person)
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "search", Err: err}
	}

	return people, nil
}

func (r *Repository) Count(ctx context.Context) (count int64, err error) {
	defer r.observe("count", time.Now(), &err)

	sql := `select count(*) from people`

	if err = r.conn.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}

	return count, nil
}

func (r *Repository) observe(method string, start time.Time, err *error) {
	status := "ok"
	switch {
	case *err == nil:
	case errors.Is(*err, ErrNotFound):
		status = "not_found"
	case errors.Is(*err, ErrDuplicateKey):
		status = "duplicate"
	default:
		status = "error"
	}

	r.metrics.ObserveStore(method, status, time.Since(start))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns term into an ILIKE pattern matching it literally
// anywhere in the value.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
