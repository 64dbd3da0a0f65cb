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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpadapter "hireflow/internal/adapters/http"
	"hireflow/internal/domain"
	"hireflow/internal/services/accounts"
	"hireflow/internal/services/analytics"
	"hireflow/internal/services/campaigns"
	"hireflow/internal/services/messaging"
	"hireflow/internal/services/pipeline"
	"hireflow/internal/workers/eventsink"
)

var (
	autoMigrate  bool
	analyticsDev bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending Postgres migrations before serving")
	serveCmd.Flags().BoolVar(&analyticsDev, "analytics-dev", false, "log analytics and feedback instead of storing them")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if autoMigrate && st.db != nil {
		if err := st.db.Migrate(ctx, "up"); err != nil {
			return err
		}
	}

	catalogue := messaging.DefaultCatalogue()
	if cfg.EmailTemplatesFile != "" {
		if catalogue, err = messaging.LoadCatalogue(cfg.EmailTemplatesFile); err != nil {
			return fmt.Errorf("load email templates: %w", err)
		}
	}

	policy := domain.ParseStagePolicy(cfg.StagePolicy)
	pipe := pipeline.New(st.campaigns, policy, logger.Named("pipeline"))

	analyticsSvc := newAnalytics(st)
	sink := eventsink.Start(ctx, analyticsSvc, cfg.EventWorkers, cfg.EventQueueSize, logger.Named("eventsink"))
	analyticsSvc.AttachSink(sink)
	defer sink.Stop()

	srv := httpadapter.New(httpadapter.Services{
		Campaigns:   campaigns.New(st.campaigns, pipe, logger.Named("campaigns")),
		Pipeline:    pipe,
		Composer:    messaging.NewComposer(catalogue),
		Drafts:      messaging.NewDrafts(st.local),
		Enhance:     messaging.StaticEnhancer{Delay: cfg.EnhanceDelay, Suffix: messaging.IndividualSuffix},
		BulkEnhance: messaging.StaticEnhancer{Delay: cfg.EnhanceDelay, Suffix: messaging.BulkSuffix},
		Accounts:    accounts.New(st.users, cfg.GoogleClientID, logger.Named("accounts")),
		Analytics:   analyticsSvc,
		Store:       st.pinger,
	}, httpadapter.Info{
		Env:                cfg.Env,
		Backend:            cfg.StoreBackend,
		DatabaseConfigured: cfg.DatabaseURL != "",
		GoogleClientIDSet:  cfg.GoogleClientID != "",
		CompanyName:        cfg.CompanyName,
	}, logger.Named("http"))

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	// drain queued events before the context goes away
	sink.Stop()
	cancel()
	stats := sink.Stats()
	logger.Info("event sink stopped", zap.Int64("dropped", stats.Dropped), zap.Int64("failed", stats.Failed))
	return nil
}

// newAnalytics wires the analytics service. The repositories are passed as
// untyped nils in development mode so the service sees no store at all.
func newAnalytics(st *stores) *analytics.Service {
	log := logger.Named("analytics")
	if analyticsDev {
		return analytics.New(nil, nil, nil, log)
	}
	return analytics.New(st.events, st.feedback, st.local, log)
}
