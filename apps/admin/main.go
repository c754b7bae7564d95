package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
	logsvc "github.com/edulive/classpulse/services/logger"
	dbstore "github.com/edulive/classpulse/storage/database"
	filestore "github.com/edulive/classpulse/storage/file"
	redisstore "github.com/edulive/classpulse/storage/redis"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags),
		conf,
	)
	logger.Enable(false) // local tool; keep errors off rollbar

	store, cleanup, err := openStore(conf)
	if err != nil {
		log.Fatalf("opening storage: %v", err)
	}
	defer cleanup()

	cli := &commandLine{
		svc: session.NewService(store, logger),
		out: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil && !errors.Is(err, errHelp) {
		log.Fatalf("%v", err)
	}
}

func openStore(conf *core.Config) (session.SnapshotStore, func(), error) {
	noop := func() {}

	switch conf.Storage.Backend {
	case "file":
		return filestore.New(conf.Storage.FilePath), noop, nil

	case "redis":
		client, err := redisstore.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		return redisstore.New(client), func() { _ = client.Close() }, nil

	case "database":
		db, err := dbstore.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		return dbstore.New(db), func() { _ = db.Close() }, nil
	}
	return nil, noop, fmt.Errorf("storage backend %q has no durable slot to administer", conf.Storage.Backend)
}
