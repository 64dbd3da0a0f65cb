package eventsink

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"hireflow/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) Process(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.Event != nil {
		r.seen = append(r.seen, job.Event.EventType)
	}
	if job.Feedback != nil {
		r.seen = append(r.seen, "feedback:"+job.Feedback.Source)
	}
	return nil
}

func TestSinkDrainsOnStop(t *testing.T) {
	rec := &recorder{}
	s := Start(context.Background(), rec, 3, 64, zap.NewNop())
	for i := 0; i < 20; i++ {
		require.True(t, s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: domain.EventDashboardViewed}}))
	}
	require.True(t, s.Enqueue(Job{Feedback: &domain.Feedback{Source: "modal"}}))
	s.Stop()

	assert.Len(t, rec.seen, 21)
	assert.Contains(t, rec.seen, "feedback:modal")
	assert.Equal(t, Stats{}, s.Stats())
}

func TestSinkDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	blocking := ProcessorFunc(func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	})
	s := Start(context.Background(), blocking, 1, 1, zap.NewNop())

	require.True(t, s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: "a"}}))
	<-started // worker holds the first job
	require.True(t, s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: "b"}}))
	assert.False(t, s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: "c"}}))
	assert.Equal(t, int64(1), s.Stats().Dropped)

	close(release)
	s.Stop()
	assert.False(t, s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: "d"}}), "stopped sink refuses jobs")
	assert.Equal(t, int64(2), s.Stats().Dropped)
	s.Stop()
}

func TestSinkCountsFailures(t *testing.T) {
	failing := ProcessorFunc(func(context.Context, Job) error { return errors.New("db down") })
	s := Start(context.Background(), failing, 2, 4, zap.NewNop())
	s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: "a"}})
	s.Enqueue(Job{Event: &domain.AnalyticsEvent{EventType: "b"}})
	s.Stop()
	assert.Equal(t, int64(2), s.Stats().Failed)
}

func TestProcessInline(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, ProcessInline(context.Background(), rec, Job{Event: &domain.AnalyticsEvent{EventType: "x"}}))
	assert.Equal(t, []string{"x"}, rec.seen)
}
