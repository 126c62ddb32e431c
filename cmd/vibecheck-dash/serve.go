package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/config"
	httpapp "github.com/vibecheck/vibecheck-dash/internal/http"
	"github.com/vibecheck/vibecheck-dash/internal/http/handlers"
	"github.com/vibecheck/vibecheck-dash/internal/livesync"
	"github.com/vibecheck/vibecheck-dash/internal/logging"
	"github.com/vibecheck/vibecheck-dash/internal/metrics"
	"github.com/vibecheck/vibecheck-dash/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server and live sync engine.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.BootstrapFromEnv("vibecheck-dash serve", os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := api.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}

	assessments := store.NewAssessments()
	findings := store.NewFindings()
	assessments.OnChange(func() {
		metrics.KnownAssessments.Set(float64(assessments.Len()))
	})

	tracker := livesync.New(ctx, livesync.Options{
		Backend:            client,
		Assessments:        assessments,
		Findings:           findings,
		PollInterval:       cfg.StatusPollInterval,
		FindingsFetchLimit: cfg.FindingsFetchLimit,
		ListLimit:          cfg.AssessmentsLimit,
		Logger:             logger,
	})
	defer tracker.Untrack()

	refresher := livesync.NewRefresher(ctx, tracker, cfg.AutoRefreshInterval)
	defer refresher.Stop()

	// Initial list load. The backend may still be booting; the dashboard
	// starts empty and the refresh endpoint recovers.
	if list, err := client.ListAssessments(ctx, cfg.AssessmentsLimit); err != nil {
		logger.Warn("initial assessment list failed", "error", err)
	} else {
		assessments.ReplaceAll(list)
	}

	h := &handlers.Handlers{
		Cfg:         cfg,
		Client:      client,
		Assessments: assessments,
		Findings:    findings,
		Tracker:     tracker,
		Refresher:   refresher,
	}
	srv := httpapp.NewEchoServer(h)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	_, metricsErrCh := metrics.StartServer(ctx, cfg.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		err := srv.StartServer(httpServer)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// Whatever ends the watch, the HTTP server comes down with it.
		var metricsErr error
		select {
		case <-gctx.Done():
		case err, ok := <-metricsErrCh:
			if ok && err != nil {
				metricsErr = err
			} else {
				<-gctx.Done()
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return metricsErr
	})

	return g.Wait()
}
