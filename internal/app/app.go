package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"buildingops/internal/adapter/httpapi"
	"buildingops/internal/adapter/postgres"
	"buildingops/internal/adapter/scheduler"
	"buildingops/internal/config"
	"buildingops/internal/maintenance"
	"buildingops/internal/platform/logger"
	"buildingops/internal/platform/pg"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "buildingops",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application: migrations first, then the sweep scheduler and
// the HTTP API, until SIGINT/SIGTERM.
func (a *App) Run() error {
	defer logger.Close(a.log)
	a.log.Info("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := pg.DSNConfig{
		Host:            a.cfg.DB.Host,
		Port:            a.cfg.DB.Port,
		User:            a.cfg.DB.User,
		Password:        a.cfg.DB.Password,
		Database:        a.cfg.DB.Name,
		SSLMode:         a.cfg.DB.SSLMode,
		ApplicationName: "buildingops",
	}
	if err := pg.ValidateConfig(dbCfg); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	dsn := pg.BuildDSN(dbCfg)

	waitTimeout := time.Duration(a.cfg.DB.WaitTimeout) * time.Second
	if err := pg.WaitForDB(ctx, dsn, waitTimeout, a.log); err != nil {
		return err
	}

	if err := a.migrate(ctx, dsn); err != nil {
		return err
	}

	pool, err := pg.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	svc := maintenance.NewService(store, maintenance.Options{
		Logger:         a.log,
		UTCOffsetHours: a.cfg.Tenant.UTCOffsetHours,
	})

	sched := scheduler.New(ctx, scheduler.Config{Logger: a.log})
	sweeps := []struct {
		name string
		spec string
		fn   scheduler.JobFunc
	}{
		{name: "start-sweep", spec: a.cfg.Sweeps.Start, fn: svc.RunStartSweep},
		{name: "complete-sweep", spec: a.cfg.Sweeps.Complete, fn: svc.RunCompleteSweep},
		{name: "reminder-sweep", spec: a.cfg.Sweeps.Reminder, fn: svc.RunReminderSweep},
	}
	for _, sw := range sweeps {
		_, err := sched.AddJob(sw.spec, sw.fn, scheduler.JobOptions{
			Name:          sw.name,
			Timeout:       10 * time.Minute,
			OverlapPolicy: scheduler.SkipIfRunning,
		})
		if err != nil {
			return err
		}
	}
	sched.Start()

	router := httpapi.NewRouter(httpapi.Config{
		Service: svc,
		Health: func(ctx context.Context) error {
			return pg.HealthCheckPool(ctx, pool)
		},
		Logger: a.log,
		Env:    a.cfg.Env,
	})

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: router}
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("server", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.StopContext(shutdownCtx); err != nil {
		a.log.Warn("scheduler shutdown", "err", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// migrate applies the global migrations, then the tenant migrations to every
// building schema listed in the public building table.
func (a *App) migrate(ctx context.Context, dsn string) error {
	info, err := pg.ApplyMigrations(dsn, "file://"+a.cfg.DB.MigrationsGlobal)
	if err != nil {
		return err
	}
	a.log.Info("global migrations applied", "version", info.FinalVersion, "applied", info.Applied)

	pool, err := pg.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	buildings, err := store.Buildings(ctx)
	if err != nil {
		return err
	}

	for _, b := range buildings {
		info, err := pg.ApplyTenantMigrations(dsn, "file://"+a.cfg.DB.MigrationsTenant, b.Schema)
		if err != nil {
			return err
		}
		a.log.Info("tenant migrations applied",
			"building", b.Name, "schema", b.Schema,
			"version", info.FinalVersion, "applied", info.Applied)
	}
	return nil
}
