package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultStages returns a fresh copy of the pipeline every new campaign starts with.
func DefaultStages() []Stage {
	return []Stage{
		{ID: "sourced", Name: "Sourced", Instructions: "Initial candidate sourcing", Order: 1, Color: "blue"},
		{ID: "screening", Name: "Screening", Instructions: "Phone/video screening call", Order: 2, Color: "yellow"},
		{ID: "interview", Name: "Interview", Instructions: "Technical interview", Order: 3, Color: "purple"},
		{ID: "hired", Name: "Hired", Instructions: "Successfully hired", Order: 4, Color: "green"},
		{ID: "rejected", Name: "Rejected", Instructions: "Not selected", Order: 5, Color: "red"},
	}
}

// UnknownStageError reports a stage reference that matches nothing in the campaign.
type UnknownStageError struct {
	Ref      string
	Fallback string // first-defined stage id, empty when the campaign has no stages
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Ref)
}

// StagePolicy decides what happens to an unresolvable stage reference.
type StagePolicy int

const (
	// FallbackToFirst silently assigns the first-defined stage.
	FallbackToFirst StagePolicy = iota
	// Strict surfaces *UnknownStageError to the caller.
	Strict
)

func ParseStagePolicy(s string) StagePolicy {
	if strings.EqualFold(strings.TrimSpace(s), "strict") {
		return Strict
	}
	return FallbackToFirst
}

func (p StagePolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "fallback"
}

// Apply turns a resolution result into a stage id according to the policy.
func (p StagePolicy) Apply(id string, err error) (string, error) {
	if err == nil {
		return id, nil
	}
	var unknown *UnknownStageError
	if p == FallbackToFirst && errors.As(err, &unknown) && unknown.Fallback != "" {
		return unknown.Fallback, nil
	}
	return "", err
}

// FirstStage is the stage with the lowest order.
func (c *Campaign) FirstStage() (Stage, bool) {
	if len(c.Stages) == 0 {
		return Stage{}, false
	}
	first := c.Stages[0]
	for _, s := range c.Stages[1:] {
		if s.Order < first.Order {
			first = s
		}
	}
	return first, true
}

func (c *Campaign) StageByID(id string) (Stage, bool) {
	for _, s := range c.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// StageName falls back to the raw id when the stage is unknown.
func (c *Campaign) StageName(id string) string {
	if s, ok := c.StageByID(id); ok {
		return s.Name
	}
	return id
}

// ResolveStageID checks that id names a stage of the campaign.
func (c *Campaign) ResolveStageID(id string) (string, error) {
	if _, ok := c.StageByID(id); ok {
		return id, nil
	}
	return "", c.unknownStage(id)
}

// ResolveStageName matches a stage by display name, case-insensitively.
func (c *Campaign) ResolveStageName(name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, s := range c.Stages {
		if strings.EqualFold(s.Name, name) {
			return s.ID, nil
		}
	}
	return "", c.unknownStage(name)
}

func (c *Campaign) unknownStage(ref string) *UnknownStageError {
	e := &UnknownStageError{Ref: ref}
	if first, ok := c.FirstStage(); ok {
		e.Fallback = first.ID
	}
	return e
}

func (c *Campaign) CandidateIndex(id string) int {
	for i := range c.Candidates {
		if c.Candidates[i].ID == id {
			return i
		}
	}
	return -1
}
