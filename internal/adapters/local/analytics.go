package local

import (
	"cmp"
	"context"
	"slices"
	"time"

	"hireflow/internal/domain"
)

func (s *Store) InsertEvent(ctx context.Context, e domain.AnalyticsEvent) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.AnalyticsEvent
	if err := s.readJSON(ctx, eventsKey, &events); err != nil {
		return 0, time.Time{}, err
	}
	e.ID = int64(len(events)) + 1
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	events = append(events, e)
	if err := s.writeJSON(ctx, eventsKey, events); err != nil {
		return 0, time.Time{}, err
	}
	return e.ID, e.Timestamp, nil
}

func (s *Store) InsertFeedback(ctx context.Context, f domain.Feedback) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []domain.Feedback
	if err := s.readJSON(ctx, feedbackKey, &list); err != nil {
		return 0, time.Time{}, err
	}
	f.ID = int64(len(list)) + 1
	if f.Timestamp.IsZero() {
		f.Timestamp = s.now().UTC()
	}
	list = append(list, f)
	if err := s.writeJSON(ctx, feedbackKey, list); err != nil {
		return 0, time.Time{}, err
	}
	return f.ID, f.Timestamp, nil
}

// Report aggregates stored events in memory, mirroring the SQL report.
func (s *Store) Report(ctx context.Context, q domain.AnalyticsQuery) (*domain.AnalyticsReport, error) {
	s.mu.Lock()
	var events []domain.AnalyticsEvent
	err := s.readJSON(ctx, eventsKey, &events)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return Aggregate(events, q), nil
}

// Aggregate builds an analytics report from a plain event list.
func Aggregate(events []domain.AnalyticsEvent, q domain.AnalyticsQuery) *domain.AnalyticsReport {
	type acc struct {
		count    int64
		users    map[string]struct{}
		sessions map[string]struct{}
	}
	byType := map[string]*acc{}
	byCurrency := map[string]int64{}
	var matched []domain.AnalyticsEvent
	for _, e := range events {
		if !q.Match(e) {
			continue
		}
		matched = append(matched, e)
		a := byType[e.EventType]
		if a == nil {
			a = &acc{users: map[string]struct{}{}, sessions: map[string]struct{}{}}
			byType[e.EventType] = a
		}
		a.count++
		if e.UserID != "" {
			a.users[e.UserID] = struct{}{}
		}
		if e.SessionID != "" {
			a.sessions[e.SessionID] = struct{}{}
		}
		if e.EventType == domain.EventPricingViewed && e.Currency != "" {
			byCurrency[e.Currency]++
		}
	}

	funnel := make([]domain.FunnelRow, 0, len(byType))
	for t, a := range byType {
		funnel = append(funnel, domain.FunnelRow{
			EventType:      t,
			Count:          a.count,
			UniqueUsers:    int64(len(a.users)),
			UniqueSessions: int64(len(a.sessions)),
		})
	}
	slices.SortFunc(funnel, func(a, b domain.FunnelRow) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.EventType, b.EventType)
	})

	currencies := make([]domain.CurrencyRow, 0, len(byCurrency))
	for cur, n := range byCurrency {
		currencies = append(currencies, domain.CurrencyRow{Currency: cur, Count: n})
	}
	slices.SortFunc(currencies, func(a, b domain.CurrencyRow) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Currency, b.Currency)
	})

	slices.SortStableFunc(matched, func(a, b domain.AnalyticsEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(matched) > domain.RecentEventsLimit {
		matched = matched[:domain.RecentEventsLimit]
	}
	if matched == nil {
		matched = []domain.AnalyticsEvent{}
	}

	return &domain.AnalyticsReport{
		ConversionFunnel: funnel,
		CurrencyStats:    currencies,
		RecentEvents:     matched,
		Summary:          domain.Summarize(funnel, currencies),
	}
}

func (s *Store) AppendEventBackup(ctx context.Context, e domain.AnalyticsEvent) error {
	return appendJSON(ctx, s, eventsBackupKey, e)
}

func (s *Store) AppendFeedbackBackup(ctx context.Context, f domain.Feedback) error {
	return appendJSON(ctx, s, feedbackBackupKey, f)
}

func (s *Store) EventBackups(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.AnalyticsEvent
	if err := s.readJSON(ctx, eventsBackupKey, &events); err != nil {
		return nil, err
	}
	return events, nil
}
