package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/service"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/database"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/events"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/journal"
	applogger "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/logger"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/mailer"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/metrics"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/redis"
)

// app holds everything one process opens. close releases it in reverse order.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	level    zap.AtomicLevel
	db       *gorm.DB
	repo     *repository.Repository
	svc      *service.Service
	rdb      *redis.Client
	registry *prometheus.Registry

	closers []func()
}

type bootOptions struct {
	migrate bool // apply pending migrations before anything else
	metrics bool // export runs to a Prometheus registry
}

// loadConfig reads configuration and builds the logger.
func loadConfig(path string) (*config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	logger, level, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	return cfg, logger, level, nil
}

// bootstrap wires storage, optional infrastructure and services.
// Storage is required; Redis, the journal and NATS degrade to disabled with a warning.
func bootstrap(configPath string, opts bootOptions) (*app, error) {
	cfg, logger, level, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, level: level}
	a.onClose(func() { _ = logger.Sync() })

	// ── storage ──
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.db = db
	a.onClose(func() { database.Close(db) })

	if opts.migrate {
		sqlDB, err := db.DB()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("sql.DB: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			a.close()
			return nil, err
		}
	}
	a.repo = repository.NewRepository(db)

	// ── run sinks ──
	sinks := []service.RunSink{service.NewRepositorySink(a.repo)}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Warn("run journal disabled", zap.String("path", cfg.Journal.Path), zap.Error(err))
		} else {
			sinks = append(sinks, service.NewJournalSink(j))
			a.onClose(func() { _ = j.Close() })
		}
	}

	if opts.metrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sinks = append(sinks, service.NewMetricsSink(metrics.NewRecorder(a.registry)))
	}

	if cfg.Events.NATSURL != "" {
		pub, err := events.NewPublisher(&cfg.Events, logger)
		if err != nil {
			logger.Warn("run events disabled", zap.Error(err))
		} else {
			sinks = append(sinks, service.NewEventSink(pub))
			a.onClose(pub.Close)
		}
	}

	// ── redis: lease and rate limiting ──
	var lease *service.LeaseGuard
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, running without lease and rate limiting", zap.Error(err))
		} else {
			a.rdb = rdb
			a.onClose(func() { _ = rdb.Close() })
			if cfg.Lease.Enabled {
				lease = service.NewLeaseGuard(rdb, cfg.Lease.TTL, logger)
			}
		}
	} else if cfg.Lease.Enabled {
		logger.Warn("lease.enabled is set but redis.addr is empty, lease disabled")
	}

	// ── mail ──
	m, err := mailer.New(&cfg.Mail, &cfg.Reminder, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("mailer: %w", err)
	}

	a.svc = service.NewService(cfg, a.repo, service.Deps{
		Mailer: m,
		Lease:  lease,
		Sinks:  sinks,
	}, logger)
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
