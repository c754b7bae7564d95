package redisstore

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
)

// snapshotKey is the fixed slot holding the serialized session State.
const snapshotKey = "classpulse:session"

// Store mirrors the session snapshot to a single redis key.
type Store struct {
	client *redis.Client
	ctx    context.Context
}

var _ session.SnapshotStore = (*Store)(nil) // interface compliance check

func New(client *redis.Client) *Store {
	return &Store{
		client: client,
		ctx:    context.Background(),
	}
}

// Open connects and pings the configured redis server.
func Open(conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Storage.Redis.Addr,
		Password: conf.Storage.Redis.Password,
		DB:       conf.Storage.Redis.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (s *Store) Load() (session.State, bool, error) {
	data, err := s.client.Get(s.ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.State{}, false, nil
		}
		return session.State{}, false, errors.Wrap(err, "reading snapshot key")
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return session.State{}, false, errors.Wrap(err, "decoding snapshot key")
	}
	return state, true, nil
}

func (s *Store) Save(state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return errors.Wrap(s.client.Set(s.ctx, snapshotKey, data, 0).Err(), "writing snapshot key")
}
