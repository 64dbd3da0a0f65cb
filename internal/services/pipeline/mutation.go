package pipeline

import (
	"context"
	"time"

	"hireflow/internal/domain"
)

type MutationKind string

const (
	KindStageChange     MutationKind = "stage-change"
	KindBulkStageChange MutationKind = "bulk-stage-change"
	KindBulkDelete      MutationKind = "bulk-delete"
	KindBulkEmail       MutationKind = "bulk-email"
	KindAddCandidates   MutationKind = "add-candidates"
	KindUpdateNotes     MutationKind = "update-notes"
	KindSendMessage     MutationKind = "send-message"
)

type MutationState string

const (
	StatePending          MutationState = "pending"
	StateCommitted        MutationState = "committed"
	StateFailedRolledBack MutationState = "failed-rolled-back"
)

// Mutation records one attempted write of the board's campaign.
type Mutation struct {
	Kind  MutationKind  `json:"kind"`
	State MutationState `json:"state"`
	At    time.Time     `json:"at"`
	Err   string        `json:"error,omitempty"`
}

// Apply runs fn against the in-memory campaign and persists the result as one
// write. If fn or the write fails the campaign is restored to its state before
// the call.
func (b *Board) Apply(ctx context.Context, kind MutationKind, fn func(c *domain.Campaign) error) error {
	snapshot := b.campaign.Clone()
	b.history = append(b.history, Mutation{Kind: kind, State: StatePending, At: b.now().UTC()})
	m := &b.history[len(b.history)-1]

	err := fn(b.campaign)
	if err == nil {
		err = b.store.Replace(ctx, b.campaign)
	}
	if err != nil {
		b.campaign = snapshot
		m.State = StateFailedRolledBack
		m.Err = err.Error()
		return err
	}
	m.State = StateCommitted
	return nil
}
