package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/api/handler"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/api/middleware"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/api/router"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/scheduler"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/jwt"
	applogger "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/logger"
)

// ServeCmd runs both pipelines on schedule and serves the admin API.
type ServeCmd struct {
	NoScheduler bool `help:"Serve the API only; pipelines run from external cron"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	a, err := bootstrap(cli.Config, bootOptions{migrate: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.close()

	cfg, logger := a.cfg, a.logger
	logger.Info("saoms starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Calendar.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── scheduler ──
	var sched *scheduler.Scheduler
	if !c.NoScheduler {
		sched, err = scheduler.New(cfg.Calendar.Location(), logger)
		if err != nil {
			return err
		}
		if err := sched.ScheduleEvery(model.PipelineReminders, cfg.Reminder.Interval, func(ctx context.Context) error {
			_, err := a.svc.Reminder.Run(ctx)
			return err
		}); err != nil {
			return err
		}
		if err := sched.ScheduleCron(model.PipelineCalendar, cfg.Calendar.Cron, func(ctx context.Context) error {
			_, err := a.svc.Calendar.Run(ctx)
			return err
		}); err != nil {
			return err
		}
		a.svc.Statistics.SetSchedule(sched)
		sched.Start(ctx)
	}

	// ── config reload: only the log level is applied live ──
	if err := config.Watch(cli.Config, func(next *config.Config) {
		if err := applogger.SetLevel(a.level, next.Log.Level); err != nil {
			logger.Warn("log level not applied", zap.String("level", next.Log.Level), zap.Error(err))
			return
		}
		logger.Info("configuration reloaded", zap.String("log_level", next.Log.Level))
	}, func(err error) {
		logger.Warn("configuration reload rejected", zap.Error(err))
	}); err != nil {
		logger.Warn("configuration watch disabled", zap.Error(err))
	}

	// ── HTTP ──
	var limiter middleware.RateLimiter
	if a.rdb != nil {
		limiter = a.rdb
	}
	h := handler.NewHandler(a.svc, a.repo)
	engine := router.Setup(cfg, h, jwt.NewManager(&cfg.Auth), limiter, a.registry, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", zap.Error(err))
	} else if ok {
		logger.Debug("systemd notified ready")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			stop()
			c.shutdown(srv, sched, logger)
			return err
		}
	}

	c.shutdown(srv, sched, logger)
	return nil
}

func (c *ServeCmd) shutdown(srv *http.Server, sched *scheduler.Scheduler, logger *zap.Logger) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			logger.Error("scheduler shutdown", zap.Error(err))
		}
	}
	logger.Info("saoms stopped")
}
