package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"hireflow/internal/domain"
	"hireflow/internal/services/messaging"
)

// MinReasonLength is the shortest accepted justification for a stage change,
// counted in characters after trimming.
const MinReasonLength = 10

var (
	ErrNoPendingChange      = errors.New("no pending stage change")
	ErrReasonTooShort       = fmt.Errorf("reason must be at least %d characters", MinReasonLength)
	ErrEmptySelection       = errors.New("no candidates selected")
	ErrConfirmationMismatch = errors.New(`confirmation text must be "confirm"`)
)

const (
	stageChangeSubject = "Stage Change Notification"
	bulkChangeSubject  = "Bulk Stage Change"
)

// Persister writes a whole campaign back to storage.
type Persister interface {
	Replace(ctx context.Context, c *domain.Campaign) error
}

// PendingChange is a single stage move waiting for a reason.
type PendingChange struct {
	CandidateID string `json:"candidateId"`
	FromStage   string `json:"fromStage"`
	ToStage     string `json:"toStage"`
}

// PendingBulkChange is a bulk stage move waiting for a reason.
type PendingBulkChange struct {
	CandidateIDs []string `json:"candidateIds"`
	ToStage      string   `json:"toStage"`
}

// BulkEmailMode selects the recipients of a bulk email.
type BulkEmailMode string

const (
	// ModeExisting targets the current selection.
	ModeExisting BulkEmailMode = "existing"
	// ModeStage targets every candidate in StageID, or everyone for "all".
	ModeStage BulkEmailMode = "stage"
	// ModeCustom targets CandidateIDs.
	ModeCustom BulkEmailMode = "custom"
)

// AllStages is the ModeStage filter value matching every candidate.
const AllStages = "all"

type BulkEmailRequest struct {
	Mode         BulkEmailMode    `json:"mode"`
	StageID      string           `json:"stageId,omitempty"`
	CandidateIDs []string         `json:"candidateIds,omitempty"`
	Subject      string           `json:"subject"`
	Body         string           `json:"body"`
	TemplateID   string           `json:"templateId,omitempty"`
	From         messaging.Sender `json:"from"`
}

// Board is one campaign's pipeline plus the selection and confirmation state
// around it. A Board is not safe for concurrent use; Service hands out one per
// locked campaign.
type Board struct {
	store    Persister
	campaign *domain.Campaign
	policy   domain.StagePolicy
	now      func() time.Time

	selected    map[string]struct{}
	bulkMode    bool
	pending     *PendingChange
	pendingBulk *PendingBulkChange
	history     []Mutation
}

func NewBoard(store Persister, c *domain.Campaign, policy domain.StagePolicy, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{
		store:    store,
		campaign: c,
		policy:   policy,
		now:      now,
		selected: map[string]struct{}{},
	}
}

// Campaign returns a copy of the current in-memory campaign.
func (b *Board) Campaign() *domain.Campaign { return b.campaign.Clone() }

func (b *Board) History() []Mutation { return slices.Clone(b.history) }

func (b *Board) candidate(id string) (*domain.Candidate, error) {
	i := b.campaign.CandidateIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, id)
	}
	return &b.campaign.Candidates[i], nil
}

// RequestMove stages a single move. Moving a candidate to the stage it is
// already in is a no-op and returns a nil change.
func (b *Board) RequestMove(candidateID, toStage string) (*PendingChange, error) {
	cand, err := b.candidate(candidateID)
	if err != nil {
		return nil, err
	}
	target, err := b.policy.Apply(b.campaign.ResolveStageID(toStage))
	if err != nil {
		return nil, err
	}
	if target == cand.CurrentStage {
		b.pending = nil
		return nil, nil
	}
	b.pending = &PendingChange{CandidateID: candidateID, FromStage: cand.CurrentStage, ToStage: target}
	p := *b.pending
	return &p, nil
}

func (b *Board) Pending() *PendingChange {
	if b.pending == nil {
		return nil
	}
	p := *b.pending
	return &p
}

func (b *Board) CancelMove() { b.pending = nil }

func checkReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < MinReasonLength {
		return "", ErrReasonTooShort
	}
	return reason, nil
}

// ConfirmMove commits the pending move with a reason. A short reason keeps the
// pending change so the caller can try again.
func (b *Board) ConfirmMove(ctx context.Context, reason string) error {
	if b.pending == nil {
		return ErrNoPendingChange
	}
	reason, err := checkReason(reason)
	if err != nil {
		return err
	}
	change := *b.pending
	err = b.Apply(ctx, KindStageChange, func(c *domain.Campaign) error {
		i := c.CandidateIndex(change.CandidateID)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, change.CandidateID)
		}
		now := b.now().UTC()
		body := fmt.Sprintf("Stage changed from %s to %s. Reason: %s",
			c.StageName(change.FromStage), c.StageName(change.ToStage), reason)
		cand := &c.Candidates[i]
		cand.CurrentStage = change.ToStage
		cand.LastUpdated = now
		cand.CommunicationLog = append(cand.CommunicationLog, messaging.Outgoing(stageChangeSubject, body, now))
		return nil
	})
	if err != nil {
		return err
	}
	b.pending = nil
	return nil
}

// Select adds candidates to the selection. Unknown ids fail the whole call.
func (b *Board) Select(ids ...string) error {
	for _, id := range ids {
		if _, err := b.candidate(id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		b.selected[id] = struct{}{}
	}
	return nil
}

func (b *Board) Deselect(ids ...string) {
	for _, id := range ids {
		delete(b.selected, id)
	}
}

func (b *Board) Toggle(id string) error {
	if _, ok := b.selected[id]; ok {
		delete(b.selected, id)
		return nil
	}
	return b.Select(id)
}

// SelectAllInStage sets the selection state of the candidates shown in one
// stage column under the search query. Other columns are untouched.
func (b *Board) SelectAllInStage(stageID, query string, selected bool) {
	for _, cand := range b.Visible(stageID, query) {
		if selected {
			b.selected[cand.ID] = struct{}{}
		} else {
			delete(b.selected, cand.ID)
		}
	}
}

// Visible lists the candidates of a stage column that match the search query.
func (b *Board) Visible(stageID, query string) []domain.Candidate {
	var out []domain.Candidate
	for _, cand := range b.campaign.Candidates {
		if cand.CurrentStage == stageID && Matches(b.campaign, cand, query) {
			out = append(out, cand)
		}
	}
	return out
}

// Matches reports whether a candidate matches a free-text search over name,
// email, phone, notes and stage name.
func Matches(c *domain.Campaign, cand domain.Candidate, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{cand.Name, cand.Email, cand.Phone, cand.Notes, c.StageName(cand.CurrentStage)} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Selected returns the selected ids in campaign order.
func (b *Board) Selected() []string {
	out := make([]string, 0, len(b.selected))
	for _, cand := range b.campaign.Candidates {
		if _, ok := b.selected[cand.ID]; ok {
			out = append(out, cand.ID)
		}
	}
	return out
}

func (b *Board) IsSelected(id string) bool {
	_, ok := b.selected[id]
	return ok
}

func (b *Board) BulkMode() bool { return b.bulkMode }

func (b *Board) EnterBulkMode() { b.bulkMode = true }

// ExitBulkMode always clears the selection.
func (b *Board) ExitBulkMode() {
	b.bulkMode = false
	b.clearSelection()
}

func (b *Board) clearSelection() {
	clear(b.selected)
	b.pendingBulk = nil
}

// RequestBulkMove needs a known target stage whatever the stage policy; only
// single moves fall back to the first stage.
func (b *Board) RequestBulkMove(toStage string) (*PendingBulkChange, error) {
	ids := b.Selected()
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	target, err := b.campaign.ResolveStageID(toStage)
	if err != nil {
		return nil, err
	}
	b.pendingBulk = &PendingBulkChange{CandidateIDs: ids, ToStage: target}
	return &PendingBulkChange{CandidateIDs: slices.Clone(ids), ToStage: target}, nil
}

func (b *Board) CancelBulkMove() { b.pendingBulk = nil }

// ConfirmBulkMove moves every candidate of the pending bulk change with one
// timestamp and one message text, in a single write.
func (b *Board) ConfirmBulkMove(ctx context.Context, reason string) error {
	if b.pendingBulk == nil {
		return ErrNoPendingChange
	}
	reason, err := checkReason(reason)
	if err != nil {
		return err
	}
	change := *b.pendingBulk
	err = b.Apply(ctx, KindBulkStageChange, func(c *domain.Campaign) error {
		now := b.now().UTC()
		body := fmt.Sprintf("Moved to %s via bulk action. Reason: %s", c.StageName(change.ToStage), reason)
		for _, id := range change.CandidateIDs {
			i := c.CandidateIndex(id)
			if i < 0 {
				return fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, id)
			}
			cand := &c.Candidates[i]
			cand.CurrentStage = change.ToStage
			cand.LastUpdated = now
			cand.CommunicationLog = append(cand.CommunicationLog, messaging.Outgoing(bulkChangeSubject, body, now))
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.ExitBulkMode()
	return nil
}

// BulkDelete removes every selected candidate. confirmText must read
// "confirm", ignoring case and surrounding space.
func (b *Board) BulkDelete(ctx context.Context, confirmText string) (int, error) {
	ids := b.Selected()
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}
	if strings.ToLower(strings.TrimSpace(confirmText)) != "confirm" {
		return 0, ErrConfirmationMismatch
	}
	err := b.Apply(ctx, KindBulkDelete, func(c *domain.Campaign) error {
		c.Candidates = slices.DeleteFunc(c.Candidates, func(cand domain.Candidate) bool {
			return b.IsSelected(cand.ID)
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	b.clearSelection()
	return len(ids), nil
}

func (b *Board) bulkEmailTargets(req BulkEmailRequest) ([]string, error) {
	switch req.Mode {
	case ModeExisting, "":
		return b.Selected(), nil
	case ModeStage:
		var ids []string
		for _, cand := range b.campaign.Candidates {
			if req.StageID == AllStages || req.StageID == "" || cand.CurrentStage == req.StageID {
				ids = append(ids, cand.ID)
			}
		}
		return ids, nil
	case ModeCustom:
		// A recipient listed twice still gets one message.
		seen := make(map[string]struct{}, len(req.CandidateIDs))
		ids := make([]string, 0, len(req.CandidateIDs))
		for _, id := range req.CandidateIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			if _, err := b.candidate(id); err != nil {
				return nil, err
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unknown recipient mode %q", req.Mode)
	}
}

// BulkEmail renders the subject and body for every recipient and appends the
// messages with one shared timestamp, then persists once. It returns the
// number of recipients.
func (b *Board) BulkEmail(ctx context.Context, req BulkEmailRequest) (int, error) {
	subject, body := strings.TrimSpace(req.Subject), strings.TrimSpace(req.Body)
	if subject == "" || body == "" {
		return 0, messaging.ErrEmptyMessage
	}
	ids, err := b.bulkEmailTargets(req)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}
	err = b.Apply(ctx, KindBulkEmail, func(c *domain.Campaign) error {
		now := b.now().UTC()
		for _, id := range ids {
			i := c.CandidateIndex(id)
			if i < 0 {
				return fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, id)
			}
			cand := &c.Candidates[i]
			vars := messaging.VarsFor(*cand, c, req.From)
			msg := messaging.Outgoing(messaging.Render(subject, vars), messaging.Render(body, vars), now)
			msg.TemplateID = req.TemplateID
			cand.CommunicationLog = append(cand.CommunicationLog, msg)
			cand.LastUpdated = now
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	b.clearSelection()
	return len(ids), nil
}
