package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/analyzer"
	"github.com/utakatalp/ucl-solkoff/internal/api"
	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/config"
	"github.com/utakatalp/ucl-solkoff/internal/ingest"
	"github.com/utakatalp/ucl-solkoff/internal/knockout"
	"github.com/utakatalp/ucl-solkoff/internal/solkoff"
	"github.com/utakatalp/ucl-solkoff/internal/standings"
	"github.com/utakatalp/ucl-solkoff/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}
	log, err := cfg.Log.NewLogger()
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	clk := clock.System{}
	comp := cfg.Competition

	if cfg.SeedFile != "" {
		loader := ingest.NewLoader(st, clk, log, comp.ID)
		if _, err := loader.LoadFile(ctx, cfg.SeedFile); err != nil {
			log.Fatalf("seed %s: %v", cfg.SeedFile, err)
		}
	}

	calc := solkoff.NewCalculator(st, clk, log)
	an := analyzer.New(st, clk, log, comp.HistoricalYears)
	ko := knockout.NewService(st, an, clk, log, knockout.Options{
		CompetitionID: comp.ID,
		RecentWindow:  comp.KnockoutRecentWindow,
	})

	deps := api.Deps{
		DB:            st,
		Solkoff:       calc,
		Analyzer:      an,
		Knockout:      ko,
		CompetitionID: comp.ID,
		Log:           log,
	}
	if comp.StandingsSource == config.StandingsFromMatches {
		builder := standings.NewBuilder(st, clk, log)
		if _, err := builder.Rebuild(ctx, comp.ID); err != nil {
			log.Fatalf("rebuild standings: %v", err)
		}
		deps.Rebuilder = builder
	}

	if _, err := calc.CalculateAll(ctx); err != nil {
		log.Fatalf("initial solkoff pass: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(api.NewHandler(deps), cfg.CORS.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":        cfg.Server.Addr,
			"driver":      cfg.Database.Driver,
			"competition": comp.ID,
		}).Info("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
