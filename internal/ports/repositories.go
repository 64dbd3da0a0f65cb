package ports

import (
	"context"
	"time"

	"hireflow/internal/domain"
)

// CampaignStore persists whole campaigns, candidates included. Both the
// Postgres and the local adapter satisfy it; callers never know which is active.
type CampaignStore interface {
	List(ctx context.Context, userID string) ([]domain.Campaign, error)
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	// Save creates a campaign, assigning its id and creation time.
	Save(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error)
	// Update merges a partial update into the stored record.
	Update(ctx context.Context, id string, patch domain.CampaignPatch) (*domain.Campaign, error)
	// Replace overwrites the stored record with c as a whole.
	Replace(ctx context.Context, c *domain.Campaign) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores identities and onboarding profiles.
type UserRepository interface {
	UpsertUser(ctx context.Context, u domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetOnboarding(ctx context.Context, email string, completed bool) error
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	SaveProfile(ctx context.Context, p domain.UserProfile) error
}

// AnalyticsRepository records events and serves the aggregated report.
type AnalyticsRepository interface {
	InsertEvent(ctx context.Context, e domain.AnalyticsEvent) (id int64, at time.Time, err error)
	Report(ctx context.Context, q domain.AnalyticsQuery) (*domain.AnalyticsReport, error)
}

type FeedbackRepository interface {
	InsertFeedback(ctx context.Context, f domain.Feedback) (id int64, at time.Time, err error)
}

// BackupLog is the local, last-resort list that failed remote writes land in.
type BackupLog interface {
	AppendEventBackup(ctx context.Context, e domain.AnalyticsEvent) error
	AppendFeedbackBackup(ctx context.Context, f domain.Feedback) error
	EventBackups(ctx context.Context) ([]domain.AnalyticsEvent, error)
}

// DraftStore keeps one unsent message draft per candidate.
type DraftStore interface {
	SaveDraft(ctx context.Context, key string, subject, body string) error
	LoadDraft(ctx context.Context, key string) (subject, body string, found bool, err error)
}

// Pinger reports store connectivity for diagnostics.
type Pinger interface {
	Ping(ctx context.Context) error
}
