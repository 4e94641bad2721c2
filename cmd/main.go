package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reflow_emulator/internal/config"
	"reflow_emulator/internal/device"
	"reflow_emulator/internal/handlers"
	"reflow_emulator/internal/logger"
	"reflow_emulator/internal/metrics"
	"reflow_emulator/internal/repository"
	"reflow_emulator/internal/repository/db"
	"reflow_emulator/internal/server"
	"reflow_emulator/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	journalDB, err := db.InitDB(cfg.JournalPath)
	if err != nil {
		log.Fatalw("failed to init journal", "err", err)
	}
	defer closeDB(journalDB, log)

	variant, err := service.NewVariant(cfg.Variant, cfg.ControllerPort, cfg.PollPeriod)
	if err != nil {
		log.Fatalw("invalid protocol variant", "err", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// wire dependencies
	dev := device.New(cfg.TemperatureC,
		device.WithReservePolicy(cfg.ReservePolicy),
		device.WithReleasePolicy(cfg.ReleasePolicy),
	)
	repos := repository.NewRepository(journalDB)
	journal := service.NewJournalService(repos.EventRepo, cfg.JournalBuffer, log.Named("journal"))
	proc := service.NewProcessor(dev, variant, journal, log.Named("processor"), m)
	services := service.NewService(dev, variant, repos)

	conn, err := server.Listen(cfg.BindAddr)
	if err != nil {
		log.Fatalw("failed to bind device socket", "err", err)
	}
	transport := server.NewTransport(conn, proc, log.Named("transport"), m, readTimeout(cfg, variant))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journalCtx, stopJournal := context.WithCancel(context.Background())
	journalDone := make(chan struct{})
	go func() {
		journal.Run(journalCtx)
		close(journalDone)
	}()

	var srv *server.Server
	if cfg.HTTPPort != "" {
		srv = &server.Server{}
		apiHandler := handlers.NewHandler(services, log.Named("http"), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		runHTTPServer(srv, cfg.HTTPPort, apiHandler, log)
	}

	log.Infow("reflow emulator started",
		"bind", transport.LocalAddr(),
		"variant", variant.Name(),
		"temperature_c", cfg.TemperatureC,
		"reserve_policy", cfg.ReservePolicy,
		"release_policy", cfg.ReleasePolicy,
	)

	if err := transport.Run(ctx); err != nil {
		log.Errorw("transport failed", "err", err)
	}

	shutdown(srv, log)
	stopJournal()
	<-journalDone
	log.Infow("reflow emulator stopped")
}

// readTimeout keeps receives short enough for the variant's push cadence.
func readTimeout(cfg config.Config, variant service.Variant) time.Duration {
	d := cfg.ReadTimeout
	if iv := variant.Interval(); iv > 0 && iv < d {
		d = iv
	}
	return d
}

// runHTTPServer runs the monitor in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting http monitor", "err", err)
		}
	}()
}

func shutdown(srv *server.Server, log *logger.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("http monitor forced to shutdown", "err", err)
	}
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close journal", "err", err)
	}
}
