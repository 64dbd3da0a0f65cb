package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hireflow/internal/domain"
	"hireflow/internal/ports"
)

var (
	ErrEmptyMessage    = errors.New("subject and body are required")
	ErrUnknownTemplate = errors.New("unknown template")
)

// Draft is a composed, not yet sent message.
type Draft struct {
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"templateId,omitempty"`
}

// ComposeRequest picks a template or carries a free-form draft. When both are
// set the template wins.
type ComposeRequest struct {
	TemplateID string `json:"templateId,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`
}

type Composer struct {
	catalogue *Catalogue
}

func NewComposer(c *Catalogue) *Composer {
	return &Composer{catalogue: c}
}

func (c *Composer) Catalogue() *Catalogue { return c.catalogue }

// Compose renders a message for one candidate.
func (c *Composer) Compose(req ComposeRequest, cand domain.Candidate, campaign *domain.Campaign, from Sender) (Draft, error) {
	subject, body := req.Subject, req.Body
	if req.TemplateID != "" {
		t, ok := c.catalogue.Get(req.TemplateID)
		if !ok {
			return Draft{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, req.TemplateID)
		}
		subject, body = t.Subject, t.Body
	}
	vars := VarsFor(cand, campaign, from)
	d := Draft{
		Subject:    strings.TrimSpace(Render(subject, vars)),
		Body:       strings.TrimSpace(Render(body, vars)),
		TemplateID: req.TemplateID,
	}
	if d.Subject == "" || d.Body == "" {
		return Draft{}, ErrEmptyMessage
	}
	return d, nil
}

// Outgoing builds a log entry for a message sent at the given time.
func Outgoing(subject, body string, at time.Time) domain.EmailMessage {
	return domain.EmailMessage{
		ID:        uuid.NewString(),
		Direction: domain.Outgoing,
		Subject:   subject,
		Body:      body,
		Timestamp: at,
	}
}

// Enhancer rewrites message text. Implementations must honour ctx.
type Enhancer interface {
	Enhance(ctx context.Context, text string) (string, error)
}

const (
	IndividualSuffix = "\n\n[AI Enhancement: Added personalized touches and improved tone]"
	BulkSuffix       = "\n\n[AI Enhancement: Personalized for bulk communication with professional tone]"
)

// StaticEnhancer waits Delay and appends Suffix. It stands in for a real model.
type StaticEnhancer struct {
	Delay  time.Duration
	Suffix string
}

func (e StaticEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if e.Delay > 0 {
		t := time.NewTimer(e.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return text + e.Suffix, nil
}

// Drafts saves and restores one unsent message per candidate.
type Drafts struct {
	store ports.DraftStore
}

func NewDrafts(store ports.DraftStore) *Drafts {
	return &Drafts{store: store}
}

func draftKey(campaignID, candidateID string) string {
	return campaignID + "/" + candidateID
}

// Save ignores drafts that are empty after trimming.
func (d *Drafts) Save(ctx context.Context, campaignID, candidateID string, draft Draft) error {
	subject, body := strings.TrimSpace(draft.Subject), strings.TrimSpace(draft.Body)
	if subject == "" && body == "" {
		return nil
	}
	return d.store.SaveDraft(ctx, draftKey(campaignID, candidateID), subject, body)
}

func (d *Drafts) Load(ctx context.Context, campaignID, candidateID string) (Draft, bool, error) {
	subject, body, ok, err := d.store.LoadDraft(ctx, draftKey(campaignID, candidateID))
	if err != nil || !ok {
		return Draft{}, false, err
	}
	return Draft{Subject: subject, Body: body}, true, nil
}
