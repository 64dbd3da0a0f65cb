package campaigns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hireflow/internal/domain"
	"hireflow/internal/ports"
	"hireflow/internal/services/importer"
	"hireflow/internal/services/messaging"
	"hireflow/internal/services/pipeline"
)

type Service struct {
	store    ports.CampaignStore
	pipeline *pipeline.Service
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store ports.CampaignStore, p *pipeline.Service, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, pipeline: p, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, userID string, form domain.CampaignForm) (*domain.Campaign, error) {
	c, err := domain.NewCampaign(form, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	saved, err := s.store.Save(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("save campaign: %w", err)
	}
	s.log.Info("campaign created", zap.String("campaign", saved.ID), zap.String("user", userID))
	return saved, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Campaign, error) {
	return s.store.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, patch domain.CampaignPatch) (*domain.Campaign, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, &domain.ValidationError{Problems: []string{"title is required"}}
	}
	if patch.Openings != nil && *patch.Openings < 1 {
		return nil, &domain.ValidationError{Problems: []string{"openings must be at least 1"}}
	}
	unlock := s.pipeline.Lock(id)
	defer unlock()
	if patch.Candidates != nil {
		// Candidates arriving from outside must point at real stages.
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		patch.Apply(next)
		if err := domain.Normalize(next); err != nil {
			return nil, err
		}
		if _, err := domain.CheckCandidateStages(next, domain.Strict); err != nil {
			return nil, err
		}
	}
	return s.store.Update(ctx, id, patch)
}

// Delete removes a campaign outright. It backs the admin reset only.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.pipeline.Lock(id)
	defer unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Warn("campaign deleted", zap.String("campaign", id))
	return nil
}

func newCandidate(name, email, phone, resumeURL, stage string, now time.Time) domain.Candidate {
	return domain.Candidate{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(name),
		Email:            strings.TrimSpace(email),
		Phone:            strings.TrimSpace(phone),
		ResumeURL:        strings.TrimSpace(resumeURL),
		CurrentStage:     stage,
		ThreadID:         "thread-" + uuid.NewString(),
		CommunicationLog: []domain.EmailMessage{},
		AddedDate:        now,
		LastUpdated:      now,
	}
}

// AddCandidate adds one manually entered candidate. An empty stage means the
// first stage; other stage names go through the configured stage policy.
func (s *Service) AddCandidate(ctx context.Context, campaignID string, form domain.CandidateForm) (*domain.Candidate, *domain.Campaign, error) {
	if err := form.Validate(); err != nil {
		return nil, nil, err
	}
	var added domain.Candidate
	c, err := s.pipeline.With(ctx, campaignID, func(b *pipeline.Board) error {
		return b.Apply(ctx, pipeline.KindAddCandidates, func(c *domain.Campaign) error {
			stage, err := s.resolveStage(c, form.Stage)
			if err != nil {
				return err
			}
			added = newCandidate(form.Name, form.Email, form.Phone, form.ResumeURL, stage, s.now().UTC())
			c.Candidates = append(c.Candidates, added)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return &added, c, nil
}

func (s *Service) resolveStage(c *domain.Campaign, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		first, ok := c.FirstStage()
		if !ok {
			return "", fmt.Errorf("campaign %s has no stages", c.ID)
		}
		return first.ID, nil
	}
	// Accept a stage id as well as its display name.
	if id, err := c.ResolveStageID(name); err == nil {
		return id, nil
	}
	return s.pipeline.Policy().Apply(c.ResolveStageName(name))
}

func (s *Service) UpdateNotes(ctx context.Context, campaignID, candidateID, notes string) (*domain.Campaign, error) {
	return s.pipeline.With(ctx, campaignID, func(b *pipeline.Board) error {
		return b.Apply(ctx, pipeline.KindUpdateNotes, func(c *domain.Campaign) error {
			i := c.CandidateIndex(candidateID)
			if i < 0 {
				return fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, candidateID)
			}
			c.Candidates[i].Notes = notes
			c.Candidates[i].LastUpdated = s.now().UTC()
			return nil
		})
	})
}

// SendMessage appends an outgoing message to the candidate's log. Nothing is
// delivered.
func (s *Service) SendMessage(ctx context.Context, campaignID, candidateID string, d messaging.Draft, aiGenerated bool) (*domain.EmailMessage, error) {
	subject, body := strings.TrimSpace(d.Subject), strings.TrimSpace(d.Body)
	if subject == "" || body == "" {
		return nil, messaging.ErrEmptyMessage
	}
	var msg domain.EmailMessage
	_, err := s.pipeline.With(ctx, campaignID, func(b *pipeline.Board) error {
		return b.Apply(ctx, pipeline.KindSendMessage, func(c *domain.Campaign) error {
			i := c.CandidateIndex(candidateID)
			if i < 0 {
				return fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, candidateID)
			}
			now := s.now().UTC()
			msg = messaging.Outgoing(subject, body, now)
			msg.TemplateID = d.TemplateID
			msg.IsAIGenerated = aiGenerated
			cand := &c.Candidates[i]
			cand.CommunicationLog = append(cand.CommunicationLog, msg)
			cand.LastUpdated = now
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Warnings []string         `json:"warnings"`
	Campaign *domain.Campaign `json:"campaign"`
}

// ImportCandidates converts the table and commits every valid row in one
// write. Skipped rows come back as warnings.
func (s *Service) ImportCandidates(ctx context.Context, campaignID string, t importer.Table, m importer.Mapping) (*ImportResult, error) {
	res := &ImportResult{}
	c, err := s.pipeline.With(ctx, campaignID, func(b *pipeline.Board) error {
		return b.Apply(ctx, pipeline.KindAddCandidates, func(c *domain.Campaign) error {
			conv, err := importer.Convert(t, m, c, s.pipeline.Policy())
			if err != nil {
				return err
			}
			now := s.now().UTC()
			for _, r := range conv.Records {
				c.Candidates = append(c.Candidates, newCandidate(r.Name, r.Email, r.Phone, r.ResumeURL, r.Stage, now))
			}
			res.Imported = len(conv.Records)
			res.Warnings = conv.Warnings
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(res.Warnings) > 0 {
		s.log.Info("import skipped rows", zap.String("campaign", campaignID), zap.Strings("warnings", res.Warnings))
	}
	res.Campaign = c
	return res, nil
}
