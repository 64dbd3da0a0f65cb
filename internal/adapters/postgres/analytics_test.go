package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hireflow/internal/domain"
)

func TestAnalyticsFilter(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	tests := []struct {
		name      string
		q         domain.AnalyticsQuery
		wantWhere string
		wantArgs  []any
	}{
		{name: "empty", q: domain.AnalyticsQuery{}},
		{
			name:      "date range",
			q:         domain.AnalyticsQuery{StartDate: &start, EndDate: &end},
			wantWhere: " WHERE timestamp >= $1 AND timestamp <= $2",
			wantArgs:  []any{start, end},
		},
		{
			name:      "all filters",
			q:         domain.AnalyticsQuery{StartDate: &start, EventType: "buy_now_clicked", UserID: "u1", Currency: "EUR"},
			wantWhere: " WHERE timestamp >= $1 AND event_type = $2 AND user_id = $3 AND currency = $4",
			wantArgs:  []any{start, "buy_now_clicked", "u1", "EUR"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := analyticsFilter(tt.q)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestWithCondition(t *testing.T) {
	where, args := withCondition("", nil, "event_type = $%d", domain.EventPricingViewed)
	assert.Equal(t, " WHERE event_type = $1", where)
	assert.Equal(t, []any{domain.EventPricingViewed}, args)

	base := []any{"u1"}
	where, args = withCondition(" WHERE user_id = $1", base, "event_type = $%d", domain.EventPricingViewed)
	assert.Equal(t, " WHERE user_id = $1 AND event_type = $2", where)
	assert.Equal(t, []any{"u1", domain.EventPricingViewed}, args)
	assert.Len(t, base, 1, "caller's args must not be modified")
}
