package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/edulive/classpulse/apps/api/echo"
	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
	emailsvc "github.com/edulive/classpulse/services/email"
	logsvc "github.com/edulive/classpulse/services/logger"
	dbstore "github.com/edulive/classpulse/storage/database"
	filestore "github.com/edulive/classpulse/storage/file"
	inmemstore "github.com/edulive/classpulse/storage/inmem"
	redisstore "github.com/edulive/classpulse/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	store, cleanup, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer cleanup()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	sessionSvc := session.NewService(store, logger)

	// =========================================================================
	// Start API Server

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		SessionSvc:     sessionSvc,
		EmailSvc:       mailSvc,
		Validate:       validate,
		Translator:     translator,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API server listening on %s", conf.Server.Address()))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("shutdown signal received: %v", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpStorage(conf *core.Config) (session.SnapshotStore, func(), error) {
	noop := func() {}

	switch conf.Storage.Backend {
	case "memory":
		return inmemstore.New(), noop, nil

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
	return nil, noop, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
