// Package main is the entry point for the walkwise server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/walkwise/internal/api"
	"github.com/randytsao24/walkwise/internal/api/handlers"
	"github.com/randytsao24/walkwise/internal/cache"
	"github.com/randytsao24/walkwise/internal/config"
	"github.com/randytsao24/walkwise/internal/directions"
	"github.com/randytsao24/walkwise/internal/feed"
	"github.com/randytsao24/walkwise/internal/journal"
	"github.com/randytsao24/walkwise/internal/logging"
	"github.com/randytsao24/walkwise/internal/navigation"
	"github.com/randytsao24/walkwise/internal/route"
	"github.com/randytsao24/walkwise/internal/speech"
	"github.com/randytsao24/walkwise/internal/stream"
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration error: ", err)
	}

	lg, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Dir:    cfg.LogDir,
		Mirror: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatal("Logging setup failed: ", err)
	}
	defer lg.Close()

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped", "error", err)
		lg.Close()
		os.Exit(1)
	}
	lg.Info("server stopped")
}

func run(cfg *config.Config, lg *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := config.LoadProfile(cfg.ProfilePath, lg.Logger)
	if err != nil {
		return fmt.Errorf("loading navigation profile: %w", err)
	}
	profile.Watch()

	checks := map[string]handlers.Check{}

	// Directions: OSRM behind a memory cache and, when configured, Redis.
	var shared *cache.Redis
	if cfg.RedisURL != "" {
		client, err := cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			lg.Warn("redis unavailable, caching routes in memory only", "error", err)
		} else {
			defer client.Close()
			shared = cache.NewRedis(client, "walkwise:", cfg.CacheTTL)
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}
	provider := directions.NewCached(
		directions.NewOSRM(cfg.OSRMBaseURL, cfg.HTTPTimeout, lg.Logger),
		cache.New[*route.Route](cfg.CacheSize, cfg.CacheTTL),
		shared,
		lg.Logger,
	)

	// Journal: MongoDB when configured, otherwise the last events in memory.
	var history journal.Journal = journal.NewMemory(1000)
	if cfg.MongoURI != "" {
		db, err := journal.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			lg.Warn("mongodb unavailable, journaling in memory", "error", err)
		} else {
			defer db.Client().Disconnect(context.Background())
			m := journal.NewMongo(db)
			if err := m.EnsureIndexes(ctx); err != nil {
				lg.Warn("creating journal indexes", "error", err)
			}
			history = m
			checks["mongodb"] = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
		}
	}
	sink := journal.NewSink(history, 256, lg.Logger)

	hub := stream.NewHub(stream.Config{}, lg.Logger)
	window := speech.NewWindow(lg.Logger)
	speaker := speech.NewQueue(stream.Voice{Hub: hub}, window, lg.Logger)

	// Positions come from the connected device unless a GTFS-realtime
	// feed is configured.
	var source navigation.LocationSource = stream.NewRemoteLocation(hub)
	var poller *feed.Poller
	if cfg.GTFSFeedURL != "" {
		poller = feed.NewPoller(feed.Config{
			URL:       cfg.GTFSFeedURL,
			VehicleID: cfg.GTFSVehicleID,
			Interval:  cfg.GTFSPollInterval,
			Timeout:   cfg.HTTPTimeout,
		}, lg.Logger)
		source = poller
	}

	ctrl, err := navigation.New(navigation.Options{
		Directions: provider,
		Location:   source,
		Voice:      stream.NewRemoteRecognizer(hub),
		Speaker:    speaker,
		Settings:   speech.NewSettings(cfg.VoiceFeedback),
		Window:     window,
		Sink:       navigation.MultiSink{hub, sink},
		Policies:   profile.Policy,
		Logger:     lg.Logger,
	})
	if err != nil {
		return err
	}
	gauges := map[string]handlers.Gauge{
		"speech_pending":   func() any { return speaker.Pending() },
		"execution_window": func() any { return window.Holders() },
	}
	if poller != nil {
		poller.Bind(ctrl)
		gauges["feed_running"] = func() any { return poller.Running() }
	}

	router := api.NewRouter(cfg, api.Deps{
		Navigator: ctrl,
		History:   history,
		Stream:    hub,
		Checks:    checks,
		Gauges:    gauges,
		Defaults: handlers.Defaults{
			AutoStart:   cfg.AutoStart,
			TestingMode: cfg.TestingMode,
		},
	})

	// No WriteTimeout: route setup and the event stream are bounded by the
	// router's timeout handler and the websocket deadlines instead.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	fmt.Printf("🦯 walkwise server starting on port %s\n", cfg.Port)
	fmt.Printf("📍 Environment: %s\n", cfg.Env)
	fmt.Printf("🔗 http://localhost:%s\n", cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return speaker.Run(gctx) })
	g.Go(func() error { return sink.Run(gctx) })
	g.Go(func() error {
		lg.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
