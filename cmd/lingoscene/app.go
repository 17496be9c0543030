package main

import (
	"log/slog"
	"os"

	"github.com/ljankila/lingoscene/internal/config"
	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/logging"
	"github.com/ljankila/lingoscene/internal/session"
	"github.com/ljankila/lingoscene/internal/store"
	"github.com/ljankila/lingoscene/internal/stream"
)

type application struct {
	logger  *slog.Logger
	cfg     config.Config
	broker  *stream.Broker
	manager *session.Manager
}

// newApplication wires the store backend, the reveal broker, and the
// scope manager from the environment configuration.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	handler := logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := slog.New(handler)

	var kv store.KV
	switch cfg.StoreBackend {
	case config.BackendFile:
		kv, err = store.NewFileKV(cfg.StorePath)
	case config.BackendSQLite:
		kv, err = store.NewSQLiteKV(cfg.StorePath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open store", slog.String("path", cfg.StorePath))
	}

	broker := stream.NewBroker()
	go broker.Run()

	manager, err := session.NewManager(store.New(kv, logger), broker, logger)
	if err != nil {
		broker.Stop()
		return nil, err
	}

	return &application{
		logger:  logger,
		cfg:     cfg,
		broker:  broker,
		manager: manager,
	}, nil
}

// close persists the current scope and settings and releases everything.
func (app *application) close() error {
	app.broker.Stop()
	return app.manager.Shutdown()
}
