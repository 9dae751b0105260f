package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/assets"
	"github.com/vexport/vexport/internal/config"
	"github.com/vexport/vexport/internal/contacts"
	"github.com/vexport/vexport/internal/db"
	"github.com/vexport/vexport/internal/handlers"
	"github.com/vexport/vexport/internal/logger"
	"github.com/vexport/vexport/internal/remotestore"
	"github.com/vexport/vexport/internal/server"
	"github.com/vexport/vexport/internal/siteconfig"
	"github.com/vexport/vexport/internal/staging"
	"github.com/vexport/vexport/internal/vehicles"
	"github.com/vexport/vexport/internal/visitors"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideStagingStore,
			provideRemoteStore,
			activity.NewService,
			vehicles.NewService,
			siteconfig.NewService,
			contacts.NewService,
			visitors.NewService,
			provideReconciler,
			provideSweeper,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewVehiclesHandler),
			provideServerHandler(provideMediaHandler),
			provideServerHandler(handlers.NewAdminHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(handlers.NewVisitorsHandler),
			provideServer,
		),
		fx.Invoke(
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return config.Config{}, fmt.Errorf("auth.jwt_secret is required")
	}
	if strings.TrimSpace(cfg.Admin.PasswordHash) == "" {
		return config.Config{}, fmt.Errorf("admin.password_hash is required")
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideStagingStore(log *slog.Logger, cfg config.Config) (*staging.Store, error) {
	return staging.NewStore(log, cfg.Uploads.Root)
}

func provideRemoteStore(log *slog.Logger, cfg config.Config) (remotestore.Store, error) {
	return remotestore.NewS3Store(log, cfg.Store)
}

func provideReconciler(log *slog.Logger, cfg config.Config, stagingStore *staging.Store, remote remotestore.Store,
	vehicleSvc *vehicles.Service, siteSvc *siteconfig.Service, activitySvc *activity.Service) *assets.Reconciler {
	return assets.NewReconciler(log, stagingStore, remote, vehicleSvc, siteSvc, activitySvc, assets.Options{
		ListLimit:          cfg.Store.ListLimit,
		DeleteRemoteImages: cfg.Cleanup.DeleteRemoteImages,
	})
}

func provideSweeper(log *slog.Logger, cfg config.Config, remote remotestore.Store,
	vehicleSvc *vehicles.Service, siteSvc *siteconfig.Service) *assets.Sweeper {
	return assets.NewSweeper(log, remote, vehicleSvc, siteSvc, assets.SweeperOptions{
		Schedule:      cfg.Sweep.Schedule,
		ListLimit:     cfg.Store.ListLimit,
		DeleteOrphans: cfg.Sweep.DeleteOrphans,
	})
}

func provideMediaHandler(log *slog.Logger, reconciler *assets.Reconciler, remote remotestore.Store) *handlers.MediaHandler {
	return handlers.NewMediaHandler(log, reconciler, remote)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	addr := params.Config.Server.Addr
	if value := os.Getenv("HTTP_ADDR"); value != "" {
		addr = value
	}
	return server.NewServer(params.Logger, addr, params.Config.Auth.JWTSecret, params.ServerHandlers)
}

func startSweeper(lc fx.Lifecycle, cfg config.Config, sweeper *assets.Sweeper) {
	if !cfg.Sweep.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return sweeper.Start() },
		OnStop:  func(ctx context.Context) error { sweeper.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
