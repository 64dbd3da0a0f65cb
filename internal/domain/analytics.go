package domain

import "time"

// AnalyticsQuery filters the aggregated report. Zero values mean "no filter".
type AnalyticsQuery struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	EventType string     `json:"eventType,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Currency  string     `json:"currency,omitempty"`
}

// Match applies the query to a single event, for stores that aggregate in memory.
func (q AnalyticsQuery) Match(e AnalyticsEvent) bool {
	if q.StartDate != nil && e.Timestamp.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && e.Timestamp.After(*q.EndDate) {
		return false
	}
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	if q.Currency != "" && e.Currency != q.Currency {
		return false
	}
	return true
}

type FunnelRow struct {
	EventType      string `json:"event_type"`
	Count          int64  `json:"count"`
	UniqueUsers    int64  `json:"unique_users"`
	UniqueSessions int64  `json:"unique_sessions"`
}

type CurrencyRow struct {
	Currency string `json:"currency"`
	Count    int64  `json:"count"`
}

type AnalyticsSummary struct {
	TotalEvents int64  `json:"totalEvents"`
	UniqueUsers int64  `json:"uniqueUsers"`
	TopEvent    string `json:"topEvent"`
	TopCurrency string `json:"topCurrency"`
}

type AnalyticsReport struct {
	ConversionFunnel []FunnelRow      `json:"conversionFunnel"`
	CurrencyStats    []CurrencyRow    `json:"currencyStats"`
	RecentEvents     []AnalyticsEvent `json:"recentEvents"`
	Summary          AnalyticsSummary `json:"summary"`
}

// RecentEventsLimit caps the recent events section of a report.
const RecentEventsLimit = 50

// Summarize derives the summary block from funnel and currency rows.
func Summarize(funnel []FunnelRow, currencies []CurrencyRow) AnalyticsSummary {
	s := AnalyticsSummary{TopEvent: "none", TopCurrency: "USD"}
	for _, row := range funnel {
		s.TotalEvents += row.Count
		if row.UniqueUsers > s.UniqueUsers {
			s.UniqueUsers = row.UniqueUsers
		}
	}
	if len(funnel) > 0 {
		s.TopEvent = funnel[0].EventType
	}
	if len(currencies) > 0 {
		s.TopCurrency = currencies[0].Currency
	}
	return s
}
