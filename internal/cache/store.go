// Package cache persists the directory in an embedded SQLite database.
// All reads observe the current content; Watch* streams re-emit after every write.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tartampluch/go-addressbook/internal/config"
	"github.com/tartampluch/go-addressbook/internal/engine"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS departments (
	label    TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS people (
	id         TEXT PRIMARY KEY,
	avatar_url TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL DEFAULT '',
	user_tag   TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	position   TEXT NOT NULL DEFAULT '',
	birthday   TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	search_key TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_people_department ON people(department);
`

// An existing id is updated in place so the row keeps its rowid, i.e. its list position.
const upsertPerson = `
INSERT INTO people (id, avatar_url, first_name, last_name, user_tag, department, position, birthday, phone, search_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	avatar_url = excluded.avatar_url,
	first_name = excluded.first_name,
	last_name  = excluded.last_name,
	user_tag   = excluded.user_tag,
	department = excluded.department,
	position   = excluded.position,
	birthday   = excluded.birthday,
	phone      = excluded.phone,
	search_key = excluded.search_key`

const selectPeople = `SELECT id, avatar_url, first_name, last_name, user_tag, department, position, birthday, phone FROM people`

// searchSeparator keeps a query from matching across two fields.
const searchSeparator = "\x1f"

// Department is a row of the departments table.
type Department struct {
	Label engine.Department
	Name  string
}

// Store is the local cache. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	nextID  int
	waiters map[int]chan struct{}
}

// Open opens (or creates) the cache at path. config.InMemoryCachePath gives a private in-memory cache.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != config.InMemoryCachePath {
		if err := os.MkdirAll(filepath.Dir(path), config.DirPermUserRWX); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheOpen, err)
	}
	// One connection: an in-memory database lives and dies with its connection,
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, waiters: make(map[int]chan struct{})}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug(config.MsgCacheOpened,
		config.LogKeyComponent, config.CompCache,
		config.LogKeyPath, path)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSchema, err)
	}

	for i, d := range engine.Departments {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO departments (label, name, position) VALUES (?, ?, ?)`,
			string(d), engine.DepartmentNames[d], i)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrCacheSchema, err)
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// UpsertAll stores people in a single transaction.
func (s *Store) UpsertAll(ctx context.Context, people []engine.Person) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertPerson)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheWrite, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range people {
		if _, err := stmt.ExecContext(ctx, personArgs(p)...); err != nil {
			return fmt.Errorf("%s: %s: %w", config.ErrCacheWrite, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheWrite, err)
	}

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompCache,
		config.LogKeyCount, len(people))
	s.notify()
	return nil
}

// Upsert stores one person.
func (s *Store) Upsert(ctx context.Context, p engine.Person) error {
	if _, err := s.db.ExecContext(ctx, upsertPerson, personArgs(p)...); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheWrite, err)
	}
	s.notify()
	return nil
}

// Delete removes a person. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheWrite, err)
	}
	s.notify()
	return nil
}

func personArgs(p engine.Person) []any {
	key := strings.ToLower(strings.Join([]string{p.FirstName, p.LastName, p.UserTag}, searchSeparator))
	return []any{p.ID, p.AvatarURL, p.FirstName, p.LastName, p.UserTag, string(p.Department), p.Position, p.Birthday, p.Phone, key}
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// All returns every cached person in insertion order.
func (s *Store) All(ctx context.Context) ([]engine.Person, error) {
	return s.query(ctx, selectPeople+` ORDER BY rowid`)
}

// ByID returns the person with id. A missing id yields found == false and no error.
func (s *Store) ByID(ctx context.Context, id string) (engine.Person, bool, error) {
	people, err := s.query(ctx, selectPeople+` WHERE id = ?`, id)
	if err != nil || len(people) == 0 {
		return engine.Person{}, false, err
	}
	return people[0], true, nil
}

// Search returns people whose first name, last name or tag contains q, ignoring case.
// Trailing spaces are dropped; an empty query matches everyone.
func (s *Store) Search(ctx context.Context, q string) ([]engine.Person, error) {
	q = strings.ToLower(strings.TrimRight(q, " "))
	if q == "" {
		return s.All(ctx)
	}
	return s.query(ctx, selectPeople+` WHERE instr(search_key, ?) > 0 ORDER BY rowid`, q)
}

// IsPopulated reports whether at least one person is cached.
func (s *Store) IsPopulated(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
	}
	return n > 0, nil
}

// Departments returns the known departments in display order.
func (s *Store) Departments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, name FROM departments ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Department
	for rows.Next() {
		var d Department
		var label string
		if err := rows.Scan(&label, &d.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
		}
		d.Label = engine.Department(label)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]engine.Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
	}
	defer func() { _ = rows.Close() }()

	people := []engine.Person{}
	for rows.Next() {
		var p engine.Person
		var dept string
		if err := rows.Scan(&p.ID, &p.AvatarURL, &p.FirstName, &p.LastName, &p.UserTag, &dept, &p.Position, &p.Birthday, &p.Phone); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
		}
		p.Department = engine.Department(dept)
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheRead, err)
	}
	return people, nil
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// WatchAll streams All: once immediately, then after every write. It closes when ctx ends.
func (s *Store) WatchAll(ctx context.Context) <-chan []engine.Person {
	return watch(ctx, s, s.All)
}

// WatchSearch streams Search(q) like WatchAll.
func (s *Store) WatchSearch(ctx context.Context, q string) <-chan []engine.Person {
	return watch(ctx, s, func(ctx context.Context) ([]engine.Person, error) {
		return s.Search(ctx, q)
	})
}

// WatchByID streams the lookup of id like WatchAll.
func (s *Store) WatchByID(ctx context.Context, id string) <-chan engine.Lookup {
	return watch(ctx, s, func(ctx context.Context) (engine.Lookup, error) {
		p, found, err := s.ByID(ctx, id)
		return engine.Lookup{Person: p, Found: found}, err
	})
}

// watch runs read on subscription and after each write, sending results until ctx ends.
// A write landing while a result is pending coalesces into one extra read.
func watch[T any](ctx context.Context, s *Store, read func(context.Context) (T, error)) <-chan T {
	changed, unsubscribe := s.subscribe()
	out := make(chan T)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			v, err := read(ctx)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return
			case err != nil:
				slog.Warn(config.ErrCacheRead,
					config.LogKeyComponent, config.CompCache,
					config.LogKeyError, err)
			default:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *Store) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, config.ChannelBufferSize)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.waiters[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.waiters, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
