package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/bulletpool/internal/anim"
	"github.com/l1jgo/bulletpool/internal/collision"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/config"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	"github.com/l1jgo/bulletpool/internal/core/event"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"github.com/l1jgo/bulletpool/internal/data"
	"github.com/l1jgo/bulletpool/internal/persist"
	"github.com/l1jgo/bulletpool/internal/pool"
	"github.com/l1jgo/bulletpool/internal/scripting"
	"github.com/l1jgo/bulletpool/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/bulletpool.toml"
	if p := os.Getenv("BULLETPOOL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	runID := uuid.New()
	log = log.With(zap.String("run", runID.String()))

	// 3. Prototypes: pool ids follow the template file order
	templates, err := data.LoadProjectileTable(cfg.Data.Prototypes)
	if err != nil {
		return fmt.Errorf("load prototypes: %w", err)
	}
	protos, err := pool.FromTemplates(templates)
	if err != nil {
		return fmt.Errorf("prototype table: %w", err)
	}

	// 4. World, collision monitor, animator, pool manager
	world := ecs.NewWorld(protos.Len())
	stores := component.NewStores(world.Registry())
	monitor := collision.NewMonitor(log.Named("collision"))
	for _, tc := range cfg.Simulation.Targets {
		target := collision.NewCircle(0, tc.Radius)
		target.SetCenter(tc.X, tc.Y)
		target.SetEnable(true)
		monitor.AddTarget(target)
	}
	animator := anim.NewAnimator(stores.Transforms, log.Named("anim"))
	pools, err := pool.NewManager(world, stores, protos, monitor, animator, pool.Options{
		DebugGuards: cfg.Pool.DebugGuards,
		Log:         log.Named("pool"),
	})
	if err != nil {
		return err
	}
	defer pools.Close()
	preloadPools(pools, templates, cfg.Pool, log)

	// 5. Wave scripts
	bus := event.NewBus()
	spawner := system.NewSpawner(pools, stores, templates, animator, bus, log.Named("spawner"))
	scripts, err := scripting.NewEngine(cfg.Scripts.Dir, spawner, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer scripts.Close()
	if err := scripts.DoString(fmt.Sprintf("math.randomseed(%d)", cfg.Simulation.Seed)); err != nil {
		return fmt.Errorf("seed wave scripts: %w", err)
	}
	if err := scripts.Start(); err != nil {
		return fmt.Errorf("start wave scripts: %w", err)
	}

	// 6. Optional telemetry database
	var sink system.SnapshotSink
	var repo *persist.TelemetryRepo
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log.Named("db"))
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		repo = persist.NewTelemetryRepo(db)
		if err := repo.StartRun(ctx, runID, cfg.Simulation.TickRate, pools.PoolCount()); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		sink = repo
	}

	// 7. Systems
	runner := coresys.NewRunner()
	telemetry := system.NewTelemetrySystem(bus, pools, sink, runID, log.Named("telemetry"), cfg.Telemetry.IntervalTicks)
	waves := system.NewWaveSystem(scripts, log.Named("waves"))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(waves)
	runner.Register(system.NewAnimationSystem(animator))
	runner.Register(system.NewMovementSystem(stores, animator))
	runner.Register(system.NewLifetimeSystem(pools, stores, bus))
	runner.Register(system.NewCollisionSystem(monitor, pools, spawner, bus))
	runner.Register(telemetry)
	runner.Register(system.NewCleanupSystem(world, log.Named("cleanup")))

	// 8. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if cfg.Simulation.Duration > 0 {
		timer := time.NewTimer(cfg.Simulation.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	log.Info("simulation started",
		zap.Int("pools", pools.PoolCount()),
		zap.Int("targets", monitor.Targets()),
		zap.Duration("tick", cfg.Simulation.TickRate),
		zap.Duration("duration", cfg.Simulation.Duration),
		zap.Bool("telemetry_db", sink != nil),
	)

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case <-deadline:
			log.Info("simulation finished", zap.Uint64("ticks", runner.Ticks()))
			return shutdown(telemetry, repo, runID, waves, log)
		case sig := <-shutdownCh:
			log.Info("received shutdown signal", zap.String("signal", sig.String()), zap.Uint64("ticks", runner.Ticks()))
			return shutdown(telemetry, repo, runID, waves, log)
		}
	}
}

// preloadPools warms every pool: config overrides by name, then the
// template's own count, then the configured default.
func preloadPools(pools *pool.Manager, templates *data.ProjectileTable, cfg config.PoolConfig, log *zap.Logger) {
	for i, tmpl := range templates.All() {
		count := cfg.DefaultPreload
		if tmpl.Preload > 0 {
			count = tmpl.Preload
		}
		if n, ok := cfg.Preload[tmpl.Name]; ok {
			count = n
		}
		pools.Preload(ecs.PoolID(i), count)
	}
	for name := range cfg.Preload {
		if _, ok := pools.Lookup(name); !ok {
			log.Warn("preload override for unknown prototype", zap.String("prototype", name))
		}
	}
}

func shutdown(telemetry *system.TelemetrySystem, repo *persist.TelemetryRepo, runID uuid.UUID, waves *system.WaveSystem, log *zap.Logger) error {
	telemetry.Flush()
	if waves.Errors() > 0 {
		log.Warn("wave scripts reported errors", zap.Int("ticks", waves.Errors()))
	}
	if repo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.FinishRun(ctx, runID); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
