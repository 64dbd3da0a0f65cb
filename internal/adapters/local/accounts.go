package local

import (
	"context"
	"strings"

	"hireflow/internal/domain"
)

func (s *Store) UpsertUser(ctx context.Context, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := map[string]domain.User{}
	if err := s.readJSON(ctx, usersKey, &users); err != nil {
		return nil, err
	}
	key := strings.ToLower(u.Email)
	now := s.now().UTC()
	if prev, ok := users[key]; ok {
		// Conflict on email keeps identity and onboarding state.
		prev.Name = u.Name
		prev.Picture = u.Picture
		prev.VerifiedEmail = u.VerifiedEmail
		prev.UpdatedAt = now
		u = prev
	} else {
		u.CreatedAt = now
		u.UpdatedAt = now
	}
	users[key] = u
	if err := s.writeJSON(ctx, usersKey, users); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := map[string]domain.User{}
	if err := s.readJSON(ctx, usersKey, &users); err != nil {
		return nil, err
	}
	u, ok := users[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) SetOnboarding(ctx context.Context, email string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := map[string]domain.User{}
	if err := s.readJSON(ctx, usersKey, &users); err != nil {
		return err
	}
	key := strings.ToLower(email)
	u, ok := users[key]
	if !ok {
		return domain.ErrNotFound
	}
	u.OnboardingCompleted = completed
	u.UpdatedAt = s.now().UTC()
	users[key] = u
	return s.writeJSON(ctx, usersKey, users)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := map[string]domain.UserProfile{}
	if err := s.readJSON(ctx, profilesKey, &profiles); err != nil {
		return nil, err
	}
	p, ok := profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := map[string]domain.UserProfile{}
	if err := s.readJSON(ctx, profilesKey, &profiles); err != nil {
		return err
	}
	profiles[p.UserID] = p
	return s.writeJSON(ctx, profilesKey, profiles)
}

type draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *Store) SaveDraft(ctx context.Context, key, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts := map[string]draft{}
	if err := s.readJSON(ctx, draftsKey, &drafts); err != nil {
		return err
	}
	drafts[key] = draft{Subject: subject, Body: body}
	return s.writeJSON(ctx, draftsKey, drafts)
}

func (s *Store) LoadDraft(ctx context.Context, key string) (string, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts := map[string]draft{}
	if err := s.readJSON(ctx, draftsKey, &drafts); err != nil {
		return "", "", false, err
	}
	d, ok := drafts[key]
	return d.Subject, d.Body, ok, nil
}
