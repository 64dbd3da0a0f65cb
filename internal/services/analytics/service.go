package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"hireflow/internal/domain"
	"hireflow/internal/ports"
	"hireflow/internal/workers/eventsink"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	// ErrBackedUp means the primary write failed and the record went to the
	// local backup list instead.
	ErrBackedUp = errors.New("stored in local backup only")
)

// Server-originated event types.
const (
	EventCampaignCreated    = "campaign_created"
	EventCandidatesImported = "candidates_imported"
	EventBulkAction         = "bulk_action_completed"
	EventUserSignedIn       = "user_signed_in"
)

// Receipt acknowledges a recorded event or feedback entry.
type Receipt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// Note is set when nothing was persisted, as in development mode.
	Note string `json:"note,omitempty"`
}

// Service records analytics and feedback. With nil repositories it runs in
// development mode and only logs.
type Service struct {
	events   ports.AnalyticsRepository
	feedback ports.FeedbackRepository
	backup   ports.BackupLog
	sink     *eventsink.Sink
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(events ports.AnalyticsRepository, feedback ports.FeedbackRepository, backup ports.BackupLog, log *zap.Logger, opts ...Option) *Service {
	s := &Service{events: events, feedback: feedback, backup: backup, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AttachSink routes Emit through a background sink.
func (s *Service) AttachSink(sink *eventsink.Sink) { s.sink = sink }

func (s *Service) DevMode() bool { return s.events == nil }

func devID(now time.Time) string {
	return "dev_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strconv.FormatInt(rand.Int63n(1<<40), 36)
}

// Record stores an event synchronously.
func (s *Service) Record(ctx context.Context, e domain.AnalyticsEvent) (*Receipt, error) {
	if strings.TrimSpace(e.EventType) == "" || e.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: eventType and timestamp are required", ErrMissingFields)
	}
	if s.DevMode() {
		s.log.Info("analytics event (dev mode)", zap.String("type", e.EventType), zap.Any("data", e.EventData))
		return &Receipt{ID: devID(s.now()), Timestamp: e.Timestamp, Note: "Development mode - event logged to console only"}, nil
	}
	id, at, err := s.events.InsertEvent(ctx, e)
	if err != nil {
		return nil, s.backupEvent(ctx, e, err)
	}
	return &Receipt{ID: "evt_" + strconv.FormatInt(id, 10), Timestamp: at}, nil
}

func (s *Service) backupEvent(ctx context.Context, e domain.AnalyticsEvent, cause error) error {
	if s.backup == nil {
		return cause
	}
	if err := s.backup.AppendEventBackup(ctx, e); err != nil {
		return errors.Join(cause, err)
	}
	s.log.Warn("analytics event kept in backup", zap.String("type", e.EventType), zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrBackedUp, cause)
}

// RecordFeedback stores a feedback entry synchronously.
func (s *Service) RecordFeedback(ctx context.Context, f domain.Feedback) (*Receipt, error) {
	if len(f.Responses) == 0 || f.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: responses and timestamp are required", ErrMissingFields)
	}
	if f.Source == "" {
		f.Source = "feedback_modal"
	}
	if s.feedback == nil {
		s.log.Info("feedback (dev mode)", zap.String("email", f.UserEmail), zap.Any("responses", f.Responses))
		return &Receipt{ID: devID(s.now()), Timestamp: f.Timestamp, Note: "Development mode - feedback logged to console only"}, nil
	}
	id, at, err := s.feedback.InsertFeedback(ctx, f)
	if err != nil {
		if s.backup == nil {
			return nil, err
		}
		if berr := s.backup.AppendFeedbackBackup(ctx, f); berr != nil {
			return nil, errors.Join(err, berr)
		}
		return nil, fmt.Errorf("%w: %w", ErrBackedUp, err)
	}
	return &Receipt{ID: "fb_" + strconv.FormatInt(id, 10), Timestamp: at}, nil
}

// Emit records a server-side event without waiting. Without a sink the event
// is written inline. Failures are logged and never reach the caller.
func (s *Service) Emit(ctx context.Context, eventType string, user *domain.User, data map[string]any) {
	e := domain.AnalyticsEvent{EventType: eventType, EventData: data, Timestamp: s.now().UTC()}
	if user != nil {
		e.UserID, e.UserEmail = user.ID, user.Email
	}
	job := eventsink.Job{Event: &e}
	if s.sink == nil {
		if err := eventsink.ProcessInline(ctx, s, job); err != nil {
			s.log.Warn("analytics emit failed", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	s.sink.Enqueue(job)
}

// Process implements eventsink.Processor. A backed-up record counts as handled.
func (s *Service) Process(ctx context.Context, job eventsink.Job) error {
	var err error
	switch {
	case job.Event != nil:
		_, err = s.Record(ctx, *job.Event)
	case job.Feedback != nil:
		_, err = s.RecordFeedback(ctx, *job.Feedback)
	}
	if errors.Is(err, ErrBackedUp) {
		return nil
	}
	return err
}

func (s *Service) Report(ctx context.Context, q domain.AnalyticsQuery) (*domain.AnalyticsReport, error) {
	if s.DevMode() {
		return nil, errors.New("analytics store not configured")
	}
	return s.events.Report(ctx, q)
}

// Backups lists events that only reached the local backup.
func (s *Service) Backups(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	if s.backup == nil {
		return nil, nil
	}
	return s.backup.EventBackups(ctx)
}
