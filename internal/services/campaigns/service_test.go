package campaigns

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hireflow/internal/adapters/local"
	"hireflow/internal/domain"
	"hireflow/internal/services/importer"
	"hireflow/internal/services/messaging"
	"hireflow/internal/services/pipeline"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newService(t *testing.T, policy domain.StagePolicy) *Service {
	t.Helper()
	store, err := local.Open(filepath.Join(t.TempDir(), "hireflow.db"), zap.NewNop(), local.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	p := pipeline.New(store, policy, zap.NewNop(), pipeline.WithClock(clock))
	return New(store, p, zap.NewNop(), WithClock(clock))
}

func create(t *testing.T, s *Service) *domain.Campaign {
	t.Helper()
	c, err := s.Create(context.Background(), "u1", domain.CampaignForm{
		Title: "Backend Engineer", Department: "Engineering", Location: "Remote", Openings: 2,
		Skills: []string{"go", " ", "sql "},
	})
	require.NoError(t, err)
	return c
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)

	c := create(t, s)
	assert.True(t, strings.HasPrefix(c.ID, "campaign-"))
	assert.Equal(t, []string{"go", "sql"}, c.Skills)
	assert.Len(t, c.Stages, 5)
	assert.Equal(t, fixedNow, c.CreatedAt)

	_, err := s.Create(ctx, "u1", domain.CampaignForm{Title: "No dept"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problems, "department is required")

	mine, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestAddCandidate(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)
	c := create(t, s)

	grace, updated, err := s.AddCandidate(ctx, c.ID, domain.CandidateForm{Name: "Grace Hopper", Email: "grace@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "sourced", grace.CurrentStage)
	assert.NotEmpty(t, grace.ID)
	assert.True(t, strings.HasPrefix(grace.ThreadID, "thread-"))
	assert.Len(t, updated.Candidates, 1)

	alan, _, err := s.AddCandidate(ctx, c.ID, domain.CandidateForm{Name: "Alan", Email: "alan@example.com", Stage: "interview"})
	require.NoError(t, err)
	assert.Equal(t, "interview", alan.CurrentStage)

	odd, _, err := s.AddCandidate(ctx, c.ID, domain.CandidateForm{Name: "Odd", Email: "odd@example.com", Stage: "Offer"})
	require.NoError(t, err)
	assert.Equal(t, "sourced", odd.CurrentStage)

	_, _, err = s.AddCandidate(ctx, c.ID, domain.CandidateForm{Name: "Bad", Email: "bad-email"})
	require.ErrorAs(t, err, new(*domain.ValidationError))
}

func TestAddCandidateStrictUnknownStage(t *testing.T) {
	s := newService(t, domain.Strict)
	c := create(t, s)
	_, _, err := s.AddCandidate(context.Background(), c.ID, domain.CandidateForm{Name: "Odd", Email: "odd@example.com", Stage: "Offer"})
	require.ErrorAs(t, err, new(*domain.UnknownStageError))

	got, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)
	c := create(t, s)

	title := "Senior Backend Engineer"
	updated, err := s.Update(ctx, c.ID, domain.CampaignPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Remote", updated.Location)

	blank := " "
	_, err = s.Update(ctx, c.ID, domain.CampaignPatch{Title: &blank})
	require.ErrorAs(t, err, new(*domain.ValidationError))

	_, err = s.Update(ctx, "missing", domain.CampaignPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dangling := []domain.Candidate{{ID: "x", Name: "X", Email: "x@example.com", CurrentStage: "offer"}}
	_, err = s.Update(ctx, c.ID, domain.CampaignPatch{Candidates: &dangling})
	require.ErrorAs(t, err, new(*domain.UnknownStageError))

	valid := []domain.Candidate{{ID: "x", Name: "X", Email: "x@example.com", CurrentStage: "hired"}}
	updated, err = s.Update(ctx, c.ID, domain.CampaignPatch{Candidates: &valid})
	require.NoError(t, err)
	require.Len(t, updated.Candidates, 1)
	assert.Equal(t, "hired", updated.Candidates[0].CurrentStage)
}

func TestNotesAndMessages(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)
	c := create(t, s)
	cand, _, err := s.AddCandidate(ctx, c.ID, domain.CandidateForm{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	updated, err := s.UpdateNotes(ctx, c.ID, cand.ID, "Great portfolio")
	require.NoError(t, err)
	assert.Equal(t, "Great portfolio", updated.Candidates[0].Notes)

	msg, err := s.SendMessage(ctx, c.ID, cand.ID, messaging.Draft{Subject: "Hi", Body: "Hello Ada", TemplateID: "screening-initial"}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.Outgoing, msg.Direction)
	assert.True(t, msg.IsAIGenerated)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Candidates[0].CommunicationLog, 1)
	assert.Equal(t, "screening-initial", got.Candidates[0].CommunicationLog[0].TemplateID)

	_, err = s.SendMessage(ctx, c.ID, cand.ID, messaging.Draft{Subject: "Hi"}, false)
	assert.ErrorIs(t, err, messaging.ErrEmptyMessage)
	_, err = s.UpdateNotes(ctx, c.ID, "ghost", "x")
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func TestImportCandidates(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)
	c := create(t, s)

	table, err := importer.Parse(strings.NewReader("Name,Email,Stage\nAda,ada@example.com,Interview\nBob,,\nCy,cy@example.com,Unknown\n"))
	require.NoError(t, err)
	res, err := s.ImportCandidates(ctx, c.ID, table, importer.SuggestMapping(table.Headers))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"Row 3: Missing email"}, res.Warnings)
	require.Len(t, res.Campaign.Candidates, 2)
	assert.Equal(t, "interview", res.Campaign.Candidates[0].CurrentStage)
	assert.Equal(t, "sourced", res.Campaign.Candidates[1].CurrentStage)
	assert.Equal(t, res.Campaign.Candidates[0].AddedDate, res.Campaign.Candidates[1].AddedDate)
}

func TestImportNothingValidWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)
	c := create(t, s)

	table := importer.Table{Headers: []string{"Name", "Email"}, Rows: [][]string{{"", "x@example.com"}}}
	_, err := s.ImportCandidates(ctx, c.ID, table, importer.SuggestMapping(table.Headers))
	var nv *importer.NoValidRowsError
	require.True(t, errors.As(err, &nv))

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t, domain.FallbackToFirst)
	c := create(t, s)
	require.NoError(t, s.Delete(ctx, c.ID))
	_, err := s.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, c.ID), domain.ErrNotFound)
}
