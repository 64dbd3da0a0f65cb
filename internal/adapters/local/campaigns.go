package local

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hireflow/internal/domain"
)

// entry keeps the raw blob of records that failed to parse so a later write
// does not silently drop them.
type entry struct {
	raw      json.RawMessage
	campaign *domain.Campaign
}

func (e entry) id() string {
	if e.campaign != nil {
		return e.campaign.ID
	}
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(e.raw, &head)
	return head.ID
}

func (s *Store) loadEntries(ctx context.Context) ([]entry, error) {
	var raws []json.RawMessage
	if err := s.readJSON(ctx, campaignsKey, &raws); err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(raws))
	for _, raw := range raws {
		c, repaired, err := domain.ParseCampaign(raw, s.policy)
		if err != nil {
			s.log.Warn("skipping malformed campaign record", zap.Error(err))
			out = append(out, entry{raw: raw})
			continue
		}
		for _, r := range repaired {
			s.log.Warn("candidate stage reset to first stage",
				zap.String("campaign", c.ID), zap.String("stage", r.Ref), zap.String("fallback", r.Fallback))
		}
		out = append(out, entry{raw: raw, campaign: c})
	}
	return out, nil
}

func (s *Store) writeEntries(ctx context.Context, entries []entry) error {
	raws := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if e.campaign == nil {
			raws = append(raws, e.raw)
			continue
		}
		data, err := json.Marshal(e.campaign)
		if err != nil {
			return fmt.Errorf("encode campaign %s: %w", e.campaign.ID, err)
		}
		raws = append(raws, data)
	}
	if err := s.writeJSON(ctx, campaignsKey, raws); err != nil {
		return err
	}
	return s.refreshCandidateCaches(ctx, entries)
}

// refreshCandidateCaches rewrites the per-user candidate caches from the campaign list.
func (s *Store) refreshCandidateCaches(ctx context.Context, entries []entry) error {
	byUser := map[string][]domain.Candidate{}
	for _, e := range entries {
		if e.campaign == nil || e.campaign.UserID == "" {
			continue
		}
		byUser[e.campaign.UserID] = append(byUser[e.campaign.UserID], e.campaign.Candidates...)
	}
	for userID, cands := range byUser {
		if err := s.writeJSON(ctx, candidatesCacheKey(userID), cands); err != nil {
			return err
		}
	}
	return nil
}

// CachedCandidates returns every candidate across a user's campaigns.
func (s *Store) CachedCandidates(ctx context.Context, userID string) ([]domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Candidate
	if err := s.readJSON(ctx, candidatesCacheKey(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the campaigns owned by userID, or all campaigns when userID is empty.
func (s *Store) List(ctx context.Context, userID string) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Campaign, 0, len(entries))
	for _, e := range entries {
		if e.campaign == nil {
			continue
		}
		if userID != "" && e.campaign.UserID != userID {
			continue
		}
		out = append(out, *e.campaign)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.campaign != nil && e.campaign.ID == id {
			return e.campaign, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) Save(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		taken[e.id()] = true
	}
	now := s.now().UTC()
	saved := c.Clone()
	saved.ID = uniqueID(newCampaignID(now.UnixMilli()), taken)
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if saved.Candidates == nil {
		saved.Candidates = []domain.Candidate{}
	}
	if err := domain.Normalize(saved); err != nil {
		return nil, err
	}
	s.log.Info("saving campaign", zap.String("id", saved.ID), zap.String("title", saved.Title))
	entries = append(entries, entry{campaign: saved})
	if err := s.writeEntries(ctx, entries); err != nil {
		return nil, err
	}
	return saved.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch domain.CampaignPatch) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.campaign == nil || e.campaign.ID != id {
			continue
		}
		updated := e.campaign.Clone()
		patch.Apply(updated)
		updated.UpdatedAt = s.now().UTC()
		if err := domain.Normalize(updated); err != nil {
			return nil, err
		}
		entries[i] = entry{campaign: updated}
		if err := s.writeEntries(ctx, entries); err != nil {
			return nil, err
		}
		return updated.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (s *Store) Replace(ctx context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := domain.Normalize(c); err != nil {
		return err
	}
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.campaign == nil || e.campaign.ID != c.ID {
			continue
		}
		replaced := c.Clone()
		replaced.UpdatedAt = s.now().UTC()
		entries[i] = entry{campaign: replaced}
		return s.writeEntries(ctx, entries)
	}
	return domain.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.id() != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return domain.ErrNotFound
	}
	return s.writeEntries(ctx, kept)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newCampaignID is "campaign-<unix millis>-<9 base36 chars>".
func newCampaignID(millis int64) string {
	var b strings.Builder
	b.WriteString("campaign-")
	b.WriteString(strconv.FormatInt(millis, 10))
	b.WriteByte('-')
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return b.String()
}

// uniqueID appends -1, -2, ... until id is not taken.
func uniqueID(id string, taken map[string]bool) string {
	final := id
	for n := 1; taken[final]; n++ {
		final = id + "-" + strconv.Itoa(n)
	}
	return final
}
