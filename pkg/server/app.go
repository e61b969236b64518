package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"PillarCast/internal/service/broadcast"
	"PillarCast/internal/service/telegram"
	"PillarCast/internal/usecase"
	"PillarCast/pkg/config"
	xhttp "PillarCast/pkg/http"
	pkgkafka "PillarCast/pkg/kafka"
	applogger "PillarCast/pkg/logger"
	"PillarCast/pkg/tracing"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	cycle       *usecase.IngestionCycle
	refresher   *usecase.BoundsRefresher
	sink        *usecase.PredictionSink
	hub         *broadcast.Hub
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	notifier    *telegram.Notifier
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	tracing     tracing.ShutdownFunc
	l           *applogger.Logger
}

// New creates a new App instance with all dependencies. consumer, kh and
// notifier are optional.
func New(
	cfg *config.Config,
	cycle *usecase.IngestionCycle,
	refresher *usecase.BoundsRefresher,
	sink *usecase.PredictionSink,
	hub *broadcast.Hub,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	notifier *telegram.Notifier,
	httpHandler xhttp.Handler,
	shutdownTracing tracing.ShutdownFunc,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:         cfg,
		cycle:       cycle,
		refresher:   refresher,
		sink:        sink,
		hub:         hub,
		consumer:    consumer,
		kh:          kh,
		notifier:    notifier,
		httpHandler: httpHandler,
		tracing:     shutdownTracing,
		l:           l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.sink.Prime(ctx); err != nil {
		return err
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRateLimit(a.cfg.Server.RateLimitRPS, a.cfg.Server.RateLimitBurst),
		xhttp.WithLogger(a.l),
	)

	var wg sync.WaitGroup
	// Fitted bounds must exist before the first cycle scores anything.
	if err := a.refresher.Refresh(ctx); err != nil {
		a.l.Warn("initial bounds refit failed", applogger.Error(err))
	}
	refit := usecase.NewScheduler("bounds_refit", a.cfg.Normalization.RefitInterval, a.refresher.Refresh, false, a.l)
	cycle := usecase.NewScheduler("ingestion_cycle", a.cfg.Cycle.Interval, func(ctx context.Context) error {
		_, err := a.cycle.Run(ctx)
		return err
	}, true, a.l)
	for _, s := range []*usecase.Scheduler{refit, cycle} {
		wg.Add(1)
		go func(s *usecase.Scheduler) {
			defer wg.Done()
			s.Start(ctx)
		}(s)
	}
	a.l.Info("schedulers started",
		applogger.Duration("cycle_interval", a.cfg.Cycle.Interval),
		applogger.Duration("refit_interval", a.cfg.Normalization.RefitInterval),
	)

	if a.notifier != nil {
		records, cancel := a.hub.Subscribe()
		defer cancel()
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.notifier.Run(ctx, records)
		}()
		a.l.Info("telegram notifier started")
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(ctx); err != nil {
			a.l.Error("kafka consumer error", applogger.Error(err))
		} else {
			a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	a.shutdown(&wg)
	return nil
}

// shutdown stops intake first, then waits for in-flight cycles before
// disconnecting subscribers.
func (a *App) shutdown(wg *sync.WaitGroup) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	wg.Wait()
	a.hub.Close()

	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			a.l.Warn("tracing shutdown error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}
