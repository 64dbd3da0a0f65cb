package messaging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/domain"
)

func TestRender(t *testing.T) {
	v := Vars{CandidateName: "Ada Lovelace", CampaignTitle: "Analyst", CompanyName: "Engines Ltd", UserName: "Charles"}

	assert.Equal(t, "Hi Ada Lovelace", Render("Hi {{candidate.name}}", v))
	assert.Equal(t, "Ada Lovelace / Ada Lovelace", Render("{{candidate.name}} / {{candidate.name}}", v))
	assert.Equal(t, "Analyst at Engines Ltd from Charles", Render("{{campaign.title}} at {{company.name}} from {{user.name}}", v))
	assert.Equal(t, "keep {{candidate.age}}", Render("keep {{candidate.age}}", v))
}

func TestRenderDoesNotRescanValues(t *testing.T) {
	v := Vars{CandidateName: "{{user.name}}", UserName: "x"}
	assert.Equal(t, "{{user.name}}", Render("{{candidate.name}}", v))
}

func TestDefaultCatalogue(t *testing.T) {
	c := DefaultCatalogue()
	assert.Len(t, c.List(Bulk), 3)
	assert.Len(t, c.List(Individual), 4)

	for _, id := range []string{"status-update", "interview-batch", "position-filled"} {
		tmpl, ok := c.Get(id)
		require.True(t, ok, id)
		assert.Equal(t, Bulk, tmpl.Kind)
		assert.Contains(t, tmpl.Body, "{{candidate.name}}")
	}

	forInterview := c.ForStage("interview")
	require.NotEmpty(t, forInterview)
	assert.Equal(t, "interview-invitation", forInterview[0].ID)
	assert.Len(t, forInterview, 4)
}

func TestLoadCatalogueOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: status-update
  name: Short update
  kind: bulk
  subject: "News about {{campaign.title}}"
  body: "Hello {{candidate.name}}"
- id: welcome
  name: Welcome
  kind: individual
  subject: "Welcome"
  body: "Hi"
`), 0o600))

	c, err := LoadCatalogue(path)
	require.NoError(t, err)

	got, ok := c.Get("status-update")
	require.True(t, ok)
	assert.Equal(t, "Short update", got.Name)
	assert.Len(t, c.List(Bulk), 3)

	_, ok = c.Get("welcome")
	assert.True(t, ok)
	assert.Len(t, c.List(Individual), 5)
}

func TestLoadCatalogueRejectsBadKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: x\n  kind: sms\n"), 0o600))
	_, err := LoadCatalogue(path)
	assert.Error(t, err)
}

func TestCompose(t *testing.T) {
	composer := NewComposer(DefaultCatalogue())
	cand := domain.Candidate{Name: "Grace Hopper", Email: "grace@example.com"}
	campaign := &domain.Campaign{Title: "Compiler Engineer"}
	from := Sender{Name: "Sam", Title: "Recruiter", Company: "Navy"}

	d, err := composer.Compose(ComposeRequest{TemplateID: "offer-congratulations"}, cand, campaign, from)
	require.NoError(t, err)
	assert.Equal(t, "Job Offer - Grace Hopper | Compiler Engineer", d.Subject)
	assert.True(t, strings.HasPrefix(d.Body, "Dear Grace Hopper,"))
	assert.True(t, strings.HasSuffix(d.Body, "Sam\nRecruiter\nNavy"))
	assert.NotContains(t, d.Body, "{{")

	d, err = composer.Compose(ComposeRequest{Subject: " Hi ", Body: " Hello {{candidate.email}} "}, cand, campaign, from)
	require.NoError(t, err)
	assert.Equal(t, Draft{Subject: "Hi", Body: "Hello grace@example.com"}, d)

	_, err = composer.Compose(ComposeRequest{TemplateID: "nope"}, cand, campaign, from)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = composer.Compose(ComposeRequest{Subject: "x", Body: "  "}, cand, campaign, from)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestStaticEnhancer(t *testing.T) {
	e := StaticEnhancer{Suffix: BulkSuffix}
	out, err := e.Enhance(context.Background(), "Body")
	require.NoError(t, err)
	assert.Equal(t, "Body"+BulkSuffix, out)

	out, err = e.Enhance(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "  ", out)
}

func TestStaticEnhancerHonoursContext(t *testing.T) {
	e := StaticEnhancer{Delay: time.Hour, Suffix: IndividualSuffix}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Enhance(ctx, "Body")
	assert.ErrorIs(t, err, context.Canceled)
}

type memDrafts map[string][2]string

func (m memDrafts) SaveDraft(_ context.Context, key, subject, body string) error {
	m[key] = [2]string{subject, body}
	return nil
}

func (m memDrafts) LoadDraft(_ context.Context, key string) (string, string, bool, error) {
	d, ok := m[key]
	return d[0], d[1], ok, nil
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	store := memDrafts{}
	d := NewDrafts(store)

	require.NoError(t, d.Save(ctx, "c1", "k1", Draft{Subject: "  ", Body: ""}))
	assert.Empty(t, store)

	require.NoError(t, d.Save(ctx, "c1", "k1", Draft{Subject: " Follow up ", Body: "text"}))
	got, ok, err := d.Load(ctx, "c1", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Draft{Subject: "Follow up", Body: "text"}, got)

	_, ok, err = d.Load(ctx, "c1", "other")
	require.NoError(t, err)
	assert.False(t, ok)
}
