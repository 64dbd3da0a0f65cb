package domain

// CampaignPatch is a partial campaign update. Nil fields are left untouched.
// Stages are immutable after creation and deliberately absent.
type CampaignPatch struct {
	Title           *string      `json:"title,omitempty"`
	Description     *string      `json:"description,omitempty"`
	Department      *string      `json:"department,omitempty"`
	Location        *string      `json:"location,omitempty"`
	EmploymentType  *string      `json:"employmentType,omitempty"`
	ExperienceLevel *string      `json:"experienceLevel,omitempty"`
	SalaryRange     *string      `json:"salaryRange,omitempty"`
	Requirements    *string      `json:"requirements,omitempty"`
	Skills          *[]string    `json:"skills,omitempty"`
	Openings        *int         `json:"openings,omitempty"`
	Candidates      *[]Candidate `json:"candidates,omitempty"`
}

// Apply merges the patch into c.
func (p CampaignPatch) Apply(c *Campaign) {
	setString(&c.Title, p.Title)
	setString(&c.Description, p.Description)
	setString(&c.Department, p.Department)
	setString(&c.Location, p.Location)
	setString(&c.EmploymentType, p.EmploymentType)
	setString(&c.ExperienceLevel, p.ExperienceLevel)
	setString(&c.SalaryRange, p.SalaryRange)
	setString(&c.Requirements, p.Requirements)
	if p.Skills != nil {
		c.Skills = append([]string{}, (*p.Skills)...)
	}
	if p.Openings != nil {
		c.Openings = *p.Openings
	}
	if p.Candidates != nil {
		c.Candidates = append([]Candidate{}, (*p.Candidates)...)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
