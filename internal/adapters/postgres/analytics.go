package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"hireflow/internal/domain"
)

func (db *DB) InsertEvent(ctx context.Context, e domain.AnalyticsEvent) (int64, time.Time, error) {
	data, err := json.Marshal(e.EventData)
	if err != nil {
		return 0, time.Time{}, err
	}
	if e.EventData == nil {
		data = []byte("{}")
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = db.now().UTC()
	}
	var id int64
	var at time.Time
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO analytics_events (event_type, event_data, user_id, user_email, timestamp,
		                              ip_address, user_agent, currency, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, timestamp
	`, e.EventType, data, nullable(e.UserID), nullable(e.UserEmail), ts,
		nullable(e.IPAddress), nullable(e.UserAgent), nullable(e.Currency), nullable(e.SessionID)).Scan(&id, &at)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("insert event: %w", err)
	}
	return id, at, nil
}

func (db *DB) InsertFeedback(ctx context.Context, f domain.Feedback) (int64, time.Time, error) {
	responses, err := json.Marshal(f.Responses)
	if err != nil {
		return 0, time.Time{}, err
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = db.now().UTC()
	}
	var id int64
	var at time.Time
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO user_feedback (user_name, user_email, responses, source, timestamp, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp
	`, nullable(f.UserName), nullable(f.UserEmail), responses, nullable(f.Source), ts,
		nullable(f.IPAddress), nullable(f.UserAgent)).Scan(&id, &at)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("insert feedback: %w", err)
	}
	return id, at, nil
}

// analyticsFilter turns a query into a WHERE clause with positional
// parameters. The returned clause is empty when no filter is set.
func analyticsFilter(q domain.AnalyticsQuery) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.StartDate != nil {
		add("timestamp >= $%d", *q.StartDate)
	}
	if q.EndDate != nil {
		add("timestamp <= $%d", *q.EndDate)
	}
	if q.EventType != "" {
		add("event_type = $%d", q.EventType)
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if q.Currency != "" {
		add("currency = $%d", q.Currency)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// withCondition appends one more condition to a clause built by analyticsFilter.
func withCondition(where string, args []any, cond string, v any) (string, []any) {
	args = append(append([]any(nil), args...), v)
	cond = fmt.Sprintf(cond, len(args))
	if where == "" {
		return " WHERE " + cond, args
	}
	return where + " AND " + cond, args
}

// Report runs the funnel, currency and recent-events queries concurrently.
func (db *DB) Report(ctx context.Context, q domain.AnalyticsQuery) (*domain.AnalyticsReport, error) {
	where, args := analyticsFilter(q)
	var funnel []domain.FunnelRow
	var currencies []domain.CurrencyRow
	var recent []domain.AnalyticsEvent

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := db.Pool.Query(ctx, `
			SELECT event_type, COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT session_id)
			FROM analytics_events`+where+`
			GROUP BY event_type
			ORDER BY COUNT(*) DESC, event_type`, args...)
		if err != nil {
			return fmt.Errorf("funnel: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r domain.FunnelRow
			if err := rows.Scan(&r.EventType, &r.Count, &r.UniqueUsers, &r.UniqueSessions); err != nil {
				return err
			}
			funnel = append(funnel, r)
		}
		return rows.Err()
	})
	g.Go(func() error {
		w, a := withCondition(where, args, "event_type = $%d", domain.EventPricingViewed)
		rows, err := db.Pool.Query(ctx, `
			SELECT currency, COUNT(*)
			FROM analytics_events`+w+` AND currency IS NOT NULL
			GROUP BY currency
			ORDER BY COUNT(*) DESC, currency`, a...)
		if err != nil {
			return fmt.Errorf("currency stats: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r domain.CurrencyRow
			if err := rows.Scan(&r.Currency, &r.Count); err != nil {
				return err
			}
			currencies = append(currencies, r)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := db.Pool.Query(ctx, `
			SELECT id, event_type, event_data, COALESCE(user_id, ''), COALESCE(user_email, ''), timestamp,
			       COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(currency, ''), COALESCE(session_id, '')
			FROM analytics_events`+where+`
			ORDER BY timestamp DESC
			LIMIT `+fmt.Sprint(domain.RecentEventsLimit), args...)
		if err != nil {
			return fmt.Errorf("recent events: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var e domain.AnalyticsEvent
			var data []byte
			if err := rows.Scan(&e.ID, &e.EventType, &data, &e.UserID, &e.UserEmail, &e.Timestamp,
				&e.IPAddress, &e.UserAgent, &e.Currency, &e.SessionID); err != nil {
				return err
			}
			if err := json.Unmarshal(data, &e.EventData); err != nil {
				return fmt.Errorf("event %d data: %w", e.ID, err)
			}
			recent = append(recent, e)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if funnel == nil {
		funnel = []domain.FunnelRow{}
	}
	if currencies == nil {
		currencies = []domain.CurrencyRow{}
	}
	if recent == nil {
		recent = []domain.AnalyticsEvent{}
	}
	return &domain.AnalyticsReport{
		ConversionFunnel: funnel,
		CurrencyStats:    currencies,
		RecentEvents:     recent,
		Summary:          domain.Summarize(funnel, currencies),
	}, nil
}
