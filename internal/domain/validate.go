package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CampaignForm is the create-campaign input.
type CampaignForm struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	Department      string   `json:"department" validate:"required"`
	Location        string   `json:"location" validate:"required"`
	EmploymentType  string   `json:"employmentType"`
	ExperienceLevel string   `json:"experienceLevel"`
	SalaryRange     string   `json:"salaryRange"`
	Requirements    string   `json:"requirements"`
	Skills          []string `json:"skills"`
	Openings        int      `json:"openings" validate:"gte=1"`
	Stages          []Stage  `json:"stages,omitempty"`
}

// CandidateForm is the manual add-candidate input. Stage is a display name.
type CandidateForm struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone"`
	ResumeURL string `json:"resumeUrl"`
	Stage     string `json:"stage"`
}

// Validate runs struct-tag validation and flattens the result.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			ve.add("%s is required", lowerFirst(fe.Field()))
		case "gte":
			ve.add("%s must be at least %s", lowerFirst(fe.Field()), fe.Param())
		default:
			ve.add("%s is invalid", lowerFirst(fe.Field()))
		}
	}
	return ve
}

func (f CandidateForm) Validate() error {
	if err := Validate(f); err != nil {
		return err
	}
	if !PlausibleEmail(f.Email) {
		return &ValidationError{Problems: []string{fmt.Sprintf("invalid email format (%s)", f.Email)}}
	}
	return nil
}

// PlausibleEmail is the loose check used across the product: an '@' and a '.'.
func PlausibleEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// NewCampaign builds a campaign from a validated form. The store assigns the id.
func NewCampaign(form CampaignForm, userID string, now time.Time) (*Campaign, error) {
	if form.Openings == 0 {
		form.Openings = 1
	}
	if err := Validate(form); err != nil {
		return nil, err
	}
	stages := form.Stages
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	skills := make([]string, 0, len(form.Skills))
	for _, s := range form.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	c := &Campaign{
		UserID:          userID,
		Title:           strings.TrimSpace(form.Title),
		Description:     form.Description,
		Department:      form.Department,
		Location:        form.Location,
		EmploymentType:  form.EmploymentType,
		ExperienceLevel: form.ExperienceLevel,
		SalaryRange:     form.SalaryRange,
		Requirements:    form.Requirements,
		Skills:          skills,
		Openings:        form.Openings,
		Stages:          stages,
		Candidates:      []Candidate{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := validateStages(c.Stages); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidateCampaign checks the structural invariants of a campaign. It does not
// look at candidate stage references; see CheckCandidateStages.
func ValidateCampaign(c *Campaign) error {
	ve := &ValidationError{}
	if c == nil {
		ve.add("campaign is missing")
		return ve
	}
	if strings.TrimSpace(c.ID) == "" {
		ve.add("id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		ve.add("title is required")
	}
	if err := validateStages(c.Stages); err != nil {
		var sv *ValidationError
		if errors.As(err, &sv) {
			ve.Problems = append(ve.Problems, sv.Problems...)
		}
	}
	seen := make(map[string]bool, len(c.Candidates))
	for i, cand := range c.Candidates {
		switch {
		case cand.ID == "":
			ve.add("candidates[%d]: id is required", i)
		case seen[cand.ID]:
			ve.add("candidates[%d]: duplicate id %q", i, cand.ID)
		}
		seen[cand.ID] = true
		if strings.TrimSpace(cand.Name) == "" {
			ve.add("candidates[%d]: name is required", i)
		}
		if strings.TrimSpace(cand.Email) == "" {
			ve.add("candidates[%d]: email is required", i)
		}
	}
	return ve.orNil()
}

func validateStages(stages []Stage) error {
	ve := &ValidationError{}
	if len(stages) == 0 {
		ve.add("at least one stage is required")
	}
	ids := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			ve.add("stages[%d]: id is required", i)
		} else if ids[s.ID] {
			ve.add("stages[%d]: duplicate id %q", i, s.ID)
		}
		ids[s.ID] = true
		if i > 0 && s.Order <= stages[i-1].Order {
			ve.add("stages[%d]: order must be strictly increasing", i)
		}
	}
	return ve.orNil()
}

// CheckCandidateStages resolves every candidate's stage reference. Under
// FallbackToFirst the dangling references are repaired in place and returned
// so the caller can log them; under Strict the first one is returned as error.
func CheckCandidateStages(c *Campaign, policy StagePolicy) ([]*UnknownStageError, error) {
	var repaired []*UnknownStageError
	for i := range c.Candidates {
		id, err := c.ResolveStageID(c.Candidates[i].CurrentStage)
		if err == nil {
			continue
		}
		fixed, perr := policy.Apply(id, err)
		if perr != nil {
			return repaired, fmt.Errorf("candidate %s: %w", c.Candidates[i].ID, perr)
		}
		var unknown *UnknownStageError
		errors.As(err, &unknown)
		repaired = append(repaired, unknown)
		c.Candidates[i].CurrentStage = fixed
	}
	return repaired, nil
}

// ParseCampaign decodes and validates a campaign crossing a storage or
// transport boundary.
func ParseCampaign(data []byte, policy StagePolicy) (*Campaign, []*UnknownStageError, error) {
	var c Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, nil, fmt.Errorf("decode campaign: %w", err)
	}
	if err := Normalize(&c); err != nil {
		return nil, nil, err
	}
	repaired, err := CheckCandidateStages(&c, policy)
	if err != nil {
		return nil, repaired, err
	}
	return &c, repaired, nil
}

// Normalize fills nil slices and validates structure.
func Normalize(c *Campaign) error {
	if c.Candidates == nil {
		c.Candidates = []Candidate{}
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	for i := range c.Candidates {
		if c.Candidates[i].CommunicationLog == nil {
			c.Candidates[i].CommunicationLog = []EmailMessage{}
		}
	}
	return ValidateCampaign(c)
}

// Clone deep-copies a campaign so a snapshot survives later mutation.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.Skills = append(make([]string, 0, len(c.Skills)), c.Skills...)
	out.Stages = append(make([]Stage, 0, len(c.Stages)), c.Stages...)
	out.Candidates = make([]Candidate, len(c.Candidates))
	for i, cand := range c.Candidates {
		cand.CommunicationLog = append(make([]EmailMessage, 0, len(cand.CommunicationLog)), cand.CommunicationLog...)
		out.Candidates[i] = cand
	}
	return &out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
