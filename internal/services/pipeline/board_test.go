package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/domain"
	"hireflow/internal/services/messaging"
)

type fakeStore struct {
	fail   error
	writes int
	last   *domain.Campaign
}

func (f *fakeStore) Replace(_ context.Context, c *domain.Campaign) error {
	if f.fail != nil {
		return f.fail
	}
	f.writes++
	f.last = c.Clone()
	return nil
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func clock() time.Time { return fixedNow }

func testCampaign(t *testing.T, cands ...domain.Candidate) *domain.Campaign {
	t.Helper()
	c, err := domain.NewCampaign(domain.CampaignForm{
		Title: "Compiler Engineer", Department: "Engineering", Location: "Remote", Openings: 1,
	}, "u1", fixedNow.Add(-time.Hour))
	require.NoError(t, err)
	c.ID = "campaign-1"
	for _, cand := range cands {
		if cand.CommunicationLog == nil {
			cand.CommunicationLog = []domain.EmailMessage{}
		}
		c.Candidates = append(c.Candidates, cand)
	}
	return c
}

func cand(id, name, stage string) domain.Candidate {
	return domain.Candidate{ID: id, Name: name, Email: id + "@example.com", CurrentStage: stage}
}

func newBoard(t *testing.T, store *fakeStore, cands ...domain.Candidate) *Board {
	t.Helper()
	return NewBoard(store, testCampaign(t, cands...), domain.FallbackToFirst, clock)
}

func TestStageChangeScenario(t *testing.T) {
	store := &fakeStore{}
	b := newBoard(t, store, domain.Candidate{ID: "grace", Name: "Grace Hopper", Email: "grace@example.com", CurrentStage: "sourced"})

	p, err := b.RequestMove("grace", "screening")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, PendingChange{CandidateID: "grace", FromStage: "sourced", ToStage: "screening"}, *p)

	require.NoError(t, b.ConfirmMove(context.Background(), "Strong resume match, proceeding."))

	got := b.Campaign().Candidates[0]
	assert.Equal(t, "screening", got.CurrentStage)
	assert.Equal(t, fixedNow, got.LastUpdated)
	require.Len(t, got.CommunicationLog, 1)
	msg := got.CommunicationLog[0]
	assert.Equal(t, domain.Outgoing, msg.Direction)
	assert.Equal(t, "Stage Change Notification", msg.Subject)
	assert.Equal(t, "Stage changed from Sourced to Screening. Reason: Strong resume match, proceeding.", msg.Body)
	assert.Equal(t, 1, store.writes)
	assert.Nil(t, b.Pending())
	assert.Equal(t, StateCommitted, b.History()[0].State)
}

func TestRequestMoveSameStageIsNoop(t *testing.T) {
	store := &fakeStore{}
	b := newBoard(t, store, cand("a", "Alan", "interview"))

	p, err := b.RequestMove("a", "interview")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, b.Pending())
	assert.ErrorIs(t, b.ConfirmMove(context.Background(), "a long enough reason"), ErrNoPendingChange)
	assert.Zero(t, store.writes)
	assert.Empty(t, b.History())
}

func TestRequestMoveUnknownCandidate(t *testing.T) {
	b := newBoard(t, &fakeStore{})
	_, err := b.RequestMove("ghost", "hired")
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func TestRequestMoveUnknownStage(t *testing.T) {
	t.Run("fallback to first stage", func(t *testing.T) {
		b := newBoard(t, &fakeStore{}, cand("a", "Alan", "interview"))
		p, err := b.RequestMove("a", "offer")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "sourced", p.ToStage)
	})
	t.Run("strict", func(t *testing.T) {
		b := NewBoard(&fakeStore{}, testCampaign(t, cand("a", "Alan", "interview")), domain.Strict, clock)
		_, err := b.RequestMove("a", "offer")
		var unknown *domain.UnknownStageError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "offer", unknown.Ref)
		assert.Equal(t, "sourced", unknown.Fallback)
		assert.Nil(t, b.Pending())
	})
}

func TestConfirmMoveReasonLength(t *testing.T) {
	tests := []struct {
		reason string
		ok     bool
	}{
		{"", false},
		{"too short", false},
		{"   123456789   ", false},
		{"1234567890", true},
		{"  exactly10!  ", true},
		{"ÄÖÜäöüßéèê", true},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			store := &fakeStore{}
			b := newBoard(t, store, cand("a", "Alan", "sourced"))
			_, err := b.RequestMove("a", "hired")
			require.NoError(t, err)

			err = b.ConfirmMove(context.Background(), tt.reason)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, "hired", b.Campaign().Candidates[0].CurrentStage)
				return
			}
			assert.ErrorIs(t, err, ErrReasonTooShort)
			assert.NotNil(t, b.Pending(), "pending change survives a rejected reason")
			assert.Equal(t, "sourced", b.Campaign().Candidates[0].CurrentStage)
			assert.Zero(t, store.writes)
		})
	}
}

func TestCancelMove(t *testing.T) {
	store := &fakeStore{}
	b := newBoard(t, store, cand("a", "Alan", "sourced"))
	before := b.Campaign()
	_, err := b.RequestMove("a", "hired")
	require.NoError(t, err)
	b.CancelMove()
	assert.Nil(t, b.Pending())
	assert.Empty(t, cmp.Diff(before, b.Campaign()))
	assert.Zero(t, store.writes)
}

func TestConfirmMoveRollsBackOnWriteFailure(t *testing.T) {
	boom := errors.New("store unreachable")
	store := &fakeStore{fail: boom}
	b := newBoard(t, store, cand("a", "Alan", "sourced"))
	before := b.Campaign()

	_, err := b.RequestMove("a", "hired")
	require.NoError(t, err)
	err = b.ConfirmMove(context.Background(), "Offer accepted by phone")
	require.ErrorIs(t, err, boom)

	assert.Empty(t, cmp.Diff(before, b.Campaign()))
	require.Len(t, b.History(), 1)
	assert.Equal(t, StateFailedRolledBack, b.History()[0].State)
	assert.Equal(t, "store unreachable", b.History()[0].Err)
	assert.NotNil(t, b.Pending(), "pending change kept for retry")

	store.fail = nil
	require.NoError(t, b.ConfirmMove(context.Background(), "Offer accepted by phone"))
	assert.Equal(t, "hired", b.Campaign().Candidates[0].CurrentStage)
}

func TestSelection(t *testing.T) {
	b := newBoard(t, &fakeStore{},
		cand("a", "Alan Turing", "sourced"),
		cand("b", "Barbara Liskov", "sourced"),
		cand("c", "Claude Shannon", "screening"),
		cand("d", "Donald Knuth", "sourced"),
	)

	require.NoError(t, b.Select("c"))
	b.SelectAllInStage("sourced", "", true)
	assert.Equal(t, []string{"a", "b", "c", "d"}, b.Selected())

	b.SelectAllInStage("sourced", "liskov", false)
	assert.Equal(t, []string{"a", "c", "d"}, b.Selected())

	b.SelectAllInStage("sourced", "", false)
	assert.Equal(t, []string{"c"}, b.Selected(), "other columns keep their selection")

	require.NoError(t, b.Toggle("a"))
	require.NoError(t, b.Toggle("c"))
	assert.Equal(t, []string{"a"}, b.Selected())

	assert.ErrorIs(t, b.Select("a", "ghost"), domain.ErrCandidateNotFound)
	assert.Equal(t, []string{"a"}, b.Selected())

	b.EnterBulkMode()
	assert.True(t, b.BulkMode())
	b.ExitBulkMode()
	assert.False(t, b.BulkMode())
	assert.Empty(t, b.Selected())
}

func TestMatches(t *testing.T) {
	c := testCampaign(t)
	x := domain.Candidate{Name: "Ada", Email: "ada@engines.io", Phone: "+44 20", Notes: "Loves looms", CurrentStage: "interview"}
	for _, q := range []string{"", "ADA", "engines", "+44", "looms", "interv"} {
		assert.True(t, Matches(c, x, q), q)
	}
	assert.False(t, Matches(c, x, "babbage"))
}

func TestBulkMoveScenario(t *testing.T) {
	store := &fakeStore{}
	b := newBoard(t, store,
		cand("a", "Alan", "sourced"),
		cand("b", "Barbara", "screening"),
		cand("c", "Claude", "screening"),
		cand("d", "Donald", "sourced"),
	)
	b.EnterBulkMode()
	require.NoError(t, b.Select("a", "b", "c"))

	p, err := b.RequestBulkMove("hired")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, p.CandidateIDs)

	require.NoError(t, b.ConfirmBulkMove(context.Background(), "Final selections approved"))
	assert.Equal(t, 1, store.writes)

	got := b.Campaign()
	for _, cand := range got.Candidates[:3] {
		assert.Equal(t, "hired", cand.CurrentStage)
		assert.Equal(t, fixedNow, cand.LastUpdated)
		require.Len(t, cand.CommunicationLog, 1)
		assert.Equal(t, "Bulk Stage Change", cand.CommunicationLog[0].Subject)
		assert.Equal(t, "Moved to Hired via bulk action. Reason: Final selections approved", cand.CommunicationLog[0].Body)
	}
	assert.Equal(t, "sourced", got.Candidates[3].CurrentStage)
	assert.Empty(t, got.Candidates[3].CommunicationLog)
	assert.Empty(t, b.Selected())
	assert.False(t, b.BulkMode())

	persisted := store.last
	assert.Equal(t, persisted.Candidates[0].LastUpdated, persisted.Candidates[2].LastUpdated)
}

func TestBulkMoveValidation(t *testing.T) {
	b := newBoard(t, &fakeStore{}, cand("a", "Alan", "sourced"))

	_, err := b.RequestBulkMove("hired")
	assert.ErrorIs(t, err, ErrEmptySelection)

	require.NoError(t, b.Select("a"))
	_, err = b.RequestBulkMove("offer")
	var unknown *domain.UnknownStageError
	assert.ErrorAs(t, err, &unknown)

	assert.ErrorIs(t, b.ConfirmBulkMove(context.Background(), "long enough reason"), ErrNoPendingChange)

	_, err = b.RequestBulkMove("hired")
	require.NoError(t, err)
	assert.ErrorIs(t, b.ConfirmBulkMove(context.Background(), "short"), ErrReasonTooShort)
	assert.Equal(t, []string{"a"}, b.Selected())
}

func TestBulkDelete(t *testing.T) {
	for _, text := range []string{"confirm", "CONFIRM", "  Confirm "} {
		t.Run(text, func(t *testing.T) {
			store := &fakeStore{}
			b := newBoard(t, store, cand("a", "Alan", "sourced"), cand("b", "Barbara", "hired"), cand("c", "Claude", "sourced"))
			require.NoError(t, b.Select("a", "b"))

			n, err := b.BulkDelete(context.Background(), text)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			require.Len(t, b.Campaign().Candidates, 1)
			assert.Equal(t, "c", b.Campaign().Candidates[0].ID)
			assert.Empty(t, b.Selected())
			assert.Equal(t, 1, store.writes)
		})
	}
}

func TestBulkDeleteRequiresConfirmation(t *testing.T) {
	for _, text := range []string{"", "confirmed", "yes", "conf irm"} {
		t.Run(text, func(t *testing.T) {
			store := &fakeStore{}
			b := newBoard(t, store, cand("a", "Alan", "sourced"))
			require.NoError(t, b.Select("a"))

			_, err := b.BulkDelete(context.Background(), text)
			assert.ErrorIs(t, err, ErrConfirmationMismatch)
			assert.Len(t, b.Campaign().Candidates, 1)
			assert.Zero(t, store.writes)
		})
	}

	b := newBoard(t, &fakeStore{}, cand("a", "Alan", "sourced"))
	_, err := b.BulkDelete(context.Background(), "confirm")
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestBulkEmail(t *testing.T) {
	from := messaging.Sender{Name: "Sam", Company: "Acme"}
	newTestBoard := func(store *fakeStore) *Board {
		return newBoard(t, store,
			cand("a", "Alan", "sourced"),
			cand("b", "Barbara", "interview"),
			cand("c", "Claude", "interview"),
		)
	}

	t.Run("selection", func(t *testing.T) {
		store := &fakeStore{}
		b := newTestBoard(store)
		require.NoError(t, b.Select("a", "c"))
		n, err := b.BulkEmail(context.Background(), BulkEmailRequest{
			Mode:       ModeExisting,
			Subject:    "{{campaign.title}} update",
			Body:       "Hi {{candidate.name}}, {{user.name}} from {{company.name}}",
			TemplateID: "status-update",
			From:       from,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, store.writes)
		assert.Empty(t, b.Selected())

		got := b.Campaign().Candidates
		require.Len(t, got[0].CommunicationLog, 1)
		assert.Equal(t, "Compiler Engineer update", got[0].CommunicationLog[0].Subject)
		assert.Equal(t, "Hi Alan, Sam from Acme", got[0].CommunicationLog[0].Body)
		assert.Equal(t, "status-update", got[0].CommunicationLog[0].TemplateID)
		assert.Equal(t, "Hi Claude, Sam from Acme", got[2].CommunicationLog[0].Body)
		assert.Equal(t, got[0].CommunicationLog[0].Timestamp, got[2].CommunicationLog[0].Timestamp)
		assert.Empty(t, got[1].CommunicationLog)
	})

	t.Run("stage filter", func(t *testing.T) {
		b := newTestBoard(&fakeStore{})
		n, err := b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeStage, StageID: "interview", Subject: "s", Body: "b"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeStage, StageID: AllStages, Subject: "s", Body: "b"})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("custom", func(t *testing.T) {
		b := newTestBoard(&fakeStore{})
		n, err := b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeCustom, CandidateIDs: []string{"b"}, Subject: "s", Body: "b"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeCustom, CandidateIDs: []string{"ghost"}, Subject: "s", Body: "b"})
		assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
	})

	t.Run("custom repeats collapse", func(t *testing.T) {
		b := newTestBoard(&fakeStore{})
		n, err := b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeCustom, CandidateIDs: []string{"a", "a", "c", "a"}, Subject: "s", Body: "b"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		got := b.Campaign().Candidates
		assert.Len(t, got[0].CommunicationLog, 1)
		assert.Len(t, got[2].CommunicationLog, 1)
	})

	t.Run("validation", func(t *testing.T) {
		store := &fakeStore{}
		b := newTestBoard(store)
		_, err := b.BulkEmail(context.Background(), BulkEmailRequest{Subject: "s", Body: "b"})
		assert.ErrorIs(t, err, ErrEmptySelection)
		_, err = b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeStage, Subject: " ", Body: "b"})
		assert.ErrorIs(t, err, messaging.ErrEmptyMessage)
		_, err = b.BulkEmail(context.Background(), BulkEmailRequest{Mode: ModeStage, StageID: "hired", Subject: "s", Body: "b"})
		assert.ErrorIs(t, err, ErrEmptySelection)
		assert.Zero(t, store.writes)
	})
}

func TestApplyRollsBackOnCallbackError(t *testing.T) {
	store := &fakeStore{}
	b := newBoard(t, store, cand("a", "Alan", "sourced"))
	before := b.Campaign()
	boom := errors.New("half way")

	err := b.Apply(context.Background(), KindUpdateNotes, func(c *domain.Campaign) error {
		c.Candidates[0].Notes = "changed"
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, cmp.Diff(before, b.Campaign()))
	assert.Zero(t, store.writes)
}
