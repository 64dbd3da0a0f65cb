package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hireflow/internal/adapters/local"
	pg "hireflow/internal/adapters/postgres"
	"hireflow/internal/config"
	"hireflow/internal/domain"
	"hireflow/internal/ports"
)

// stores is the set of repositories for the configured backend. The local
// store is always open: drafts and the analytics backup list live there
// whichever backend holds campaigns.
type stores struct {
	local *local.Store
	db    *pg.DB

	campaigns ports.CampaignStore
	users     ports.UserRepository
	events    ports.AnalyticsRepository
	feedback  ports.FeedbackRepository
	pinger    ports.Pinger
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	policy := domain.ParseStagePolicy(cfg.StagePolicy)
	ls, err := local.Open(cfg.LocalStorePath, log.Named("local"), local.WithStagePolicy(policy))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	s := &stores{local: ls}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			ls.Close()
			return nil, errors.New("STORE_BACKEND=postgres needs DATABASE_URL")
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL, policy)
		if err != nil {
			ls.Close()
			return nil, fmt.Errorf("db connect: %w", err)
		}
		s.db = db
		s.campaigns, s.users, s.events, s.feedback, s.pinger = db, db, db, db, db
	default:
		s.campaigns, s.users, s.events, s.feedback, s.pinger = ls, ls, ls, ls, ls
	}
	log.Info("stores ready", zap.String("backend", cfg.StoreBackend), zap.Stringer("stage_policy", policy))
	return s, nil
}

func (s *stores) Close() {
	if s.db != nil {
		s.db.Close()
	}
	s.local.Close()
}
