package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/quoriumlabs/grainfsm/adminsvc"
	"github.com/quoriumlabs/grainfsm/compat"
	"github.com/quoriumlabs/grainfsm/eventlog"
	"github.com/quoriumlabs/grainfsm/eventlog/natsbus"
	"github.com/quoriumlabs/grainfsm/eventlog/pgeventstore"
	"github.com/quoriumlabs/grainfsm/eventlog/redisbus"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/grainfsm"
	"github.com/quoriumlabs/grainfsm/logging"
	"github.com/quoriumlabs/grainfsm/migrate"
	"github.com/quoriumlabs/grainfsm/registry"
	"github.com/quoriumlabs/grainfsm/registry/pgregistry"
)

var (
	demoOpen    = fsmtype.State("Open")
	demoShipped = fsmtype.State("Shipped")
	demoShip    = fsmtype.Trigger("Ship")
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Boot the admin gRPC surface over a configured registry/event-log backend",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to a TOML config file (registry_table/postgres/nats/redis sections); omitted means in-memory defaults",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Override the config file's listen_addr (host:port or unix:/path)",
		},
	},
	Action: runServe,
}

// runServe wires a Registry (optionally mirrored into Postgres), an
// eventlog.Log (optionally Postgres-backed and fanned out to NATS or
// Redis), registers one demo entity type against them, and serves the
// admin gRPC surface until the process receives a termination signal.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := logging.ForComponent("grainfsmctl.serve")

	cfg, err := loadServeConfig(cmd.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if listen := cmd.String("listen"); listen != "" {
		cfg.ListenAddr = listen
	}

	var regOpts []registry.Option
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	if cfg.Postgres != nil {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return cli.Exit(fmt.Sprintf("connecting registry mirror pool: %v", err), 1)
		}
		closers = append(closers, pool.Close)
		regOpts = append(regOpts, registry.WithMirror(pgregistry.New(pool, cfg.Postgres.RegistryTable)))
		logger.Info("registry mirrored into Postgres", "table", cfg.Postgres.RegistryTable)
	}

	reg := registry.New(logger, regOpts...)
	checker := compat.NewChecker(reg)
	migrator := migrate.NewController(reg, checker, nil, logger)
	sagas := adminsvc.NewSagaTracker()

	store, closeStore, err := buildEventStore(ctx, cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	publisher, closePublisher, err := buildStreamPublisher(cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	if err := registerDemoEntity(reg); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := exerciseDemoGrain(ctx, reg, checker, migrator, store, publisher, logger); err != nil {
		logger.Warn("demo grain transition failed", "error", err)
	}

	srv := adminsvc.New(reg, checker, sagas, logger)
	grpcServer, err := adminsvc.Start(logger, cfg.ListenAddr, srv)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down admin gRPC server")
	grpcServer.GracefulStop()
	return nil
}

// buildEventStore returns the configured EventStore and its shutdown
// func (nil if nothing needs closing).
func buildEventStore(ctx context.Context, cfg ServeConfig, logger *slog.Logger) (eventlog.EventStore, func(), error) {
	if cfg.Postgres == nil {
		return eventlog.NewMemoryStore(), nil, nil
	}

	store, err := pgeventstore.Open(ctx, pgeventstore.Config{
		DSN:         cfg.Postgres.DSN,
		SchemaName:  cfg.Postgres.SchemaName,
		EventsTable: cfg.Postgres.EventsTable,
		SnapsTable:  cfg.Postgres.SnapshotTable,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening pgeventstore: %w", err)
	}
	logger.Info("event log backed by Postgres", "events_table", cfg.Postgres.EventsTable)
	return store, store.Close, nil
}

// buildStreamPublisher returns the configured StreamPublisher (nil if
// neither NATS nor Redis is configured) and its shutdown func.
func buildStreamPublisher(cfg ServeConfig, logger *slog.Logger) (eventlog.StreamPublisher, func(), error) {
	switch {
	case cfg.NATS != nil:
		conn, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.NATS.URL, err)
		}
		logger.Info("events fanned out to NATS", "url", cfg.NATS.URL, "subject_prefix", cfg.NATS.SubjectPrefix)
		return natsbus.New(conn, cfg.NATS.SubjectPrefix), conn.Close, nil

	case cfg.Redis != nil:
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		logger.Info("events fanned out to Redis streams", "addr", cfg.Redis.Addr)
		return redisbus.New(client, cfg.Redis.MaxLen), func() { _ = client.Close() }, nil

	default:
		return nil, nil, nil
	}
}

// registerDemoEntity registers a minimal two-version "order" entity
// type so the newly booted admin surface has something to introspect
// immediately: `grainfsmctl admin versions -e order` works against a
// freshly started server with no other setup.
func registerDemoEntity(reg *registry.Registry) error {
	v1 := grainfsm.Configure(demoOpen)
	v1.Configure(demoOpen).Permit(demoShip, demoShipped)
	v1.Configure(demoShipped)
	if err := reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", v1.Build, registry.Metadata{Description: "demo order v1"}); err != nil {
		return fmt.Errorf("registering demo entity v1.0.0: %w", err)
	}

	v2 := grainfsm.Configure(demoOpen)
	v2.Configure(demoOpen).Permit(demoShip, demoShipped)
	v2.Configure(demoShipped)
	if err := reg.Register("order", fsmtype.New(1, 1, 0), "State", "Trigger", v2.Build, registry.Metadata{Description: "demo order v1.1"}); err != nil {
		return fmt.Errorf("registering demo entity v1.1.0: %w", err)
	}
	return nil
}

// exerciseDemoGrain activates the demo entity and fires one transition
// through the configured event log, so a freshly started server with a
// Postgres/NATS/Redis backend actually writes through it once rather
// than leaving those backends constructed-but-idle.
func exerciseDemoGrain(ctx context.Context, reg *registry.Registry, checker *compat.Checker, migrator *migrate.Controller, store eventlog.EventStore, publisher eventlog.StreamPublisher, logger *slog.Logger) error {
	var logOpts []eventlog.Option
	if publisher != nil {
		logOpts = append(logOpts, eventlog.WithStreamPublisher(publisher))
	}
	log := eventlog.New("demo-order-1", store, logOpts...)

	g, err := grainfsm.New("demo-order-1", "order", "State", "Trigger", grainfsm.Deps{
		Reg:      reg,
		Checker:  checker,
		Migrator: migrator,
		Log:      log,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("activating demo grain: %w", err)
	}
	return g.Fire(ctx, demoShip)
}
