package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"hireflow/internal/domain"
	"hireflow/internal/ports"
)

type Service struct {
	users    ports.UserRepository
	clientID string
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(users ports.UserRepository, clientID string, log *zap.Logger, opts ...Option) *Service {
	s := &Service{users: users, clientID: clientID, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Identify decodes a bearer token into an identity.
func (s *Service) Identify(token string) (*Identity, error) {
	return DecodeIDToken(token, s.clientID, s.now())
}

type Session struct {
	User            *domain.User        `json:"user"`
	Profile         *domain.UserProfile `json:"profile,omitempty"`
	NeedsOnboarding bool                `json:"needsOnboarding"`
}

// SignIn upserts the user behind an ID token. An existing user keeps their
// id and onboarding state.
func (s *Service) SignIn(ctx context.Context, token string) (*Session, error) {
	id, err := s.Identify(token)
	if err != nil {
		return nil, err
	}
	userID := id.Subject
	if userID == "" {
		userID = uuid.NewString()
	}
	u, err := s.users.UpsertUser(ctx, domain.User{
		ID:            userID,
		Email:         id.Email,
		Name:          id.Name,
		Picture:       id.Picture,
		VerifiedEmail: id.EmailVerified,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user signed in", zap.String("user", u.ID), zap.Bool("onboarded", u.OnboardingCompleted))

	sess := &Session{User: u, NeedsOnboarding: !u.OnboardingCompleted}
	p, err := s.users.GetProfile(ctx, u.ID)
	switch {
	case err == nil:
		sess.Profile = p
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return sess, nil
}

// Profile returns the saved profile, or a prefilled draft when none exists.
func (s *Service) Profile(ctx context.Context, u *domain.User) (*domain.UserProfile, error) {
	p, err := s.users.GetProfile(ctx, u.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &domain.UserProfile{
		UserID:   u.ID,
		FullName: u.Name,
		Company:  CompanyFromEmail(u.Email),
	}, nil
}

func (s *Service) SaveProfile(ctx context.Context, userID string, p domain.UserProfile) (*domain.UserProfile, error) {
	p.UserID = userID
	p.FullName = strings.TrimSpace(p.FullName)
	p.Company = strings.TrimSpace(p.Company)
	if err := domain.Validate(p); err != nil {
		return nil, err
	}
	p.ProfileCompleted = true
	if err := s.users.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CompleteOnboarding saves the profile and marks the user onboarded.
func (s *Service) CompleteOnboarding(ctx context.Context, u *domain.User, p domain.UserProfile) (*domain.UserProfile, error) {
	saved, err := s.SaveProfile(ctx, u.ID, p)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetOnboarding(ctx, u.Email, true); err != nil {
		return nil, err
	}
	s.log.Info("onboarding completed", zap.String("user", u.ID))
	return saved, nil
}

// User looks up the stored user for an identity.
func (s *Service) User(ctx context.Context, id *Identity) (*domain.User, error) {
	return s.users.GetUserByEmail(ctx, id.Email)
}

var freeMailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "outlook.com": true, "hotmail.com": true,
	"yahoo.com": true, "icloud.com": true, "proton.me": true, "protonmail.com": true,
}

// CompanyFromEmail guesses a company name from the registrable part of an
// email domain: "jo@mail.acme.co.uk" gives "Acme". Free mail providers give "".
func CompanyFromEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	host := strings.ToLower(strings.TrimSpace(email[at+1:]))
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || freeMailDomains[registrable] {
		return ""
	}
	label, _, _ := strings.Cut(registrable, ".")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
