package domain

import "time"

// Core domain models. HTTP request/response shapes live in the http adapter
// and the stores map these to their own rows or blobs.

type Campaign struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Department      string      `json:"department"`
	Location        string      `json:"location"`
	EmploymentType  string      `json:"employmentType,omitempty"`
	ExperienceLevel string      `json:"experienceLevel,omitempty"`
	SalaryRange     string      `json:"salaryRange,omitempty"`
	Requirements    string      `json:"requirements,omitempty"`
	Skills          []string    `json:"skills"`
	Openings        int         `json:"openings"`
	Stages          []Stage     `json:"stages"`
	Candidates      []Candidate `json:"candidates"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type Stage struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Order        int    `json:"order"`
	Color        string `json:"color"`
	Instructions string `json:"instructions"`
}

type Candidate struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	ResumeURL        string         `json:"resumeUrl,omitempty"`
	CurrentStage     string         `json:"currentStage"`
	ThreadID         string         `json:"threadId"`
	CommunicationLog []EmailMessage `json:"communicationLog"`
	LastUpdated      time.Time      `json:"lastUpdated"`
	AddedDate        time.Time      `json:"addedDate"`
	Notes            string         `json:"notes,omitempty"`
}

type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

type EmailMessage struct {
	ID            string    `json:"id"`
	Direction     Direction `json:"direction"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Timestamp     time.Time `json:"timestamp"`
	IsAIGenerated bool      `json:"isAiGenerated,omitempty"`
	TemplateID    string    `json:"templateId,omitempty"`
}

type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	Picture             string    `json:"picture,omitempty"`
	VerifiedEmail       bool      `json:"verifiedEmail"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type UserProfile struct {
	UserID           string `json:"userId"`
	FullName         string `json:"fullName" validate:"required"`
	JobTitle         string `json:"jobTitle" validate:"required"`
	Company          string `json:"company" validate:"required"`
	CompanySize      string `json:"companySize" validate:"required"`
	Industry         string `json:"industry" validate:"required"`
	Phone            string `json:"phone"`
	ProfileCompleted bool   `json:"profileCompleted"`
}

// AnalyticsEvent is a fire-and-forget usage record. EventData is free-form.
type AnalyticsEvent struct {
	ID        int64          `json:"id,omitempty"`
	EventType string         `json:"eventType"`
	EventData map[string]any `json:"eventData"`
	UserID    string         `json:"userId,omitempty"`
	UserEmail string         `json:"userEmail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

type Feedback struct {
	ID        int64          `json:"id,omitempty"`
	UserName  string         `json:"userName,omitempty"`
	UserEmail string         `json:"userEmail,omitempty"`
	Responses map[string]any `json:"responses"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
}

// Well-known analytics event types emitted by the dashboard.
const (
	EventUpgradeClicked    = "upgrade_button_clicked"
	EventPricingViewed     = "pricing_page_viewed"
	EventBuyNowClicked     = "buy_now_clicked"
	EventFeedbackSubmitted = "feedback_submitted"
	EventDashboardViewed   = "dashboard_viewed"
	EventCurrencyChanged   = "currency_changed"
	EventPricingCalculated = "pricing_calculated"
)
