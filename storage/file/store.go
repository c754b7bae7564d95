package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/edulive/classpulse/core/session"
)

// Store mirrors the session snapshot to a JSON file: the durable local slot.
type Store struct {
	path string
}

var _ session.SnapshotStore = (*Store)(nil) // interface compliance check

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (session.State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.State{}, false, nil
		}
		return session.State{}, false, errors.Wrap(err, "reading snapshot file")
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return session.State{}, false, errors.Wrap(err, "decoding snapshot file")
	}
	return state, true, nil
}

// Save writes the whole snapshot to a temp file then renames it over the slot,
// so a crash mid-write never leaves a corrupt slot behind.
func (s *Store) Save(state session.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return errors.Wrap(err, "creating temp snapshot file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing snapshot file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing snapshot file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing snapshot file")
}
