package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hireflow/internal/domain"
	"hireflow/internal/ports"
)

type Service struct {
	store  ports.CampaignStore
	policy domain.StagePolicy
	now    func() time.Time
	log    *zap.Logger
	locks  keyedMutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store ports.CampaignStore, policy domain.StagePolicy, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, policy: policy, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Policy() domain.StagePolicy { return s.policy }

// Lock holds the campaign's write lock until the returned func is called.
func (s *Service) Lock(campaignID string) (unlock func()) { return s.locks.Lock(campaignID) }

// With loads the campaign, hands a fresh Board to fn while holding the
// campaign's lock, and returns the board's campaign afterwards. Writes from
// other processes are not coordinated; the last write wins.
func (s *Service) With(ctx context.Context, campaignID string, fn func(b *Board) error) (*domain.Campaign, error) {
	unlock := s.locks.Lock(campaignID)
	defer unlock()

	c, err := s.store.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	b := NewBoard(s.store, c, s.policy, s.now)
	err = fn(b)
	for _, m := range b.history {
		if m.State == StateFailedRolledBack {
			s.log.Warn("campaign write rolled back",
				zap.String("campaign", campaignID), zap.String("kind", string(m.Kind)), zap.String("error", m.Err))
		}
	}
	if err != nil {
		return nil, err
	}
	return b.Campaign(), nil
}

// MoveCandidate requests and confirms a single move in one call. A move to
// the current stage changes nothing.
func (s *Service) MoveCandidate(ctx context.Context, campaignID, candidateID, toStage, reason string) (*domain.Campaign, error) {
	return s.With(ctx, campaignID, func(b *Board) error {
		p, err := b.RequestMove(candidateID, toStage)
		if err != nil || p == nil {
			return err
		}
		return b.ConfirmMove(ctx, reason)
	})
}

// BulkMove returns the number of distinct candidates moved.
func (s *Service) BulkMove(ctx context.Context, campaignID string, ids []string, toStage, reason string) (int, *domain.Campaign, error) {
	var n int
	c, err := s.With(ctx, campaignID, func(b *Board) error {
		b.EnterBulkMode()
		if err := b.Select(ids...); err != nil {
			return err
		}
		p, err := b.RequestBulkMove(toStage)
		if err != nil {
			return err
		}
		if err := b.ConfirmBulkMove(ctx, reason); err != nil {
			return err
		}
		n = len(p.CandidateIDs)
		return nil
	})
	return n, c, err
}

func (s *Service) BulkDelete(ctx context.Context, campaignID string, ids []string, confirmText string) (int, *domain.Campaign, error) {
	var n int
	c, err := s.With(ctx, campaignID, func(b *Board) error {
		if err := b.Select(ids...); err != nil {
			return err
		}
		var err error
		n, err = b.BulkDelete(ctx, confirmText)
		return err
	})
	return n, c, err
}

// BulkEmail sends to the ids in req.CandidateIDs when the mode targets the
// selection, otherwise to the recipients the mode describes.
func (s *Service) BulkEmail(ctx context.Context, campaignID string, req BulkEmailRequest) (int, *domain.Campaign, error) {
	var n int
	c, err := s.With(ctx, campaignID, func(b *Board) error {
		if req.Mode == ModeExisting || req.Mode == "" {
			if err := b.Select(req.CandidateIDs...); err != nil {
				return err
			}
		}
		var err error
		n, err = b.BulkEmail(ctx, req)
		return err
	})
	return n, c, err
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*refMutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
