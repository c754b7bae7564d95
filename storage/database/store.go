package dbstore

import (
	"database/sql"
	"encoding/json"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
)

// slot is the fixed row key holding the serialized session State.
const slot = "session"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	slot       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store mirrors the session snapshot to a one-row-per-slot table.
type Store struct {
	db *sqlx.DB
}

var _ session.SnapshotStore = (*Store)(nil) // interface compliance check

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to the configured database, waits for it to be ready and
// ensures the snapshots table exists.
func Open(conf *core.Config) (*sqlx.DB, error) {
	sslMode := "require"
	if conf.Storage.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Storage.Database.Engine,
		User:     url.UserPassword(conf.Storage.Database.User, conf.Storage.Database.Password),
		Host:     conf.Storage.DatabaseAddress(),
		Path:     conf.Storage.Database.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Open(conf.Storage.Database.Engine, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		return nil, err
	}
	if _, err = db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "creating snapshots table")
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func (s *Store) Load() (session.State, bool, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM snapshots WHERE slot = $1", slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.State{}, false, nil
		}
		return session.State{}, false, errors.Wrap(err, "reading snapshot row")
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return session.State{}, false, errors.Wrap(err, "decoding snapshot row")
	}
	return state, true, nil
}

func (s *Store) Save(state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	_, err = s.db.Exec(
		`INSERT INTO snapshots (slot, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (slot) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		slot, data,
	)
	return errors.Wrap(err, "writing snapshot row")
}
