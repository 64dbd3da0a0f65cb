package messaging

import (
	"strings"

	"hireflow/internal/domain"
)

// Sender is the recruiter a message goes out on behalf of.
type Sender struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// Vars holds the substitution values for one recipient.
type Vars struct {
	CandidateName  string
	CandidateEmail string
	CampaignTitle  string
	CompanyName    string
	UserName       string
	UserTitle      string
}

func VarsFor(cand domain.Candidate, campaign *domain.Campaign, from Sender) Vars {
	v := Vars{
		CandidateName:  cand.Name,
		CandidateEmail: cand.Email,
		CompanyName:    from.Company,
		UserName:       from.Name,
		UserTitle:      from.Title,
	}
	if campaign != nil {
		v.CampaignTitle = campaign.Title
	}
	return v
}

// Render replaces every known {{token}} in text. Unknown tokens stay as written
// and substituted values are not rescanned.
func Render(text string, v Vars) string {
	return strings.NewReplacer(
		"{{candidate.name}}", v.CandidateName,
		"{{candidate.email}}", v.CandidateEmail,
		"{{campaign.title}}", v.CampaignTitle,
		"{{company.name}}", v.CompanyName,
		"{{user.name}}", v.UserName,
		"{{user.title}}", v.UserTitle,
	).Replace(text)
}
