package models

import (
	"encoding/json"
	"time"
)

// EmailType represents the kind of outreach email the engine can generate
type EmailType string

const (
	EmailTypeBirthday         EmailType = "BIRTHDAY"
	EmailTypeCardRenewal      EmailType = "CARD_RENEWAL"
	EmailTypeSegmentMilestone EmailType = "SEGMENT_MILESTONE"
)

// IsValid checks if the email type is one of the supported variants
func (t EmailType) IsValid() bool {
	switch t {
	case EmailTypeBirthday, EmailTypeCardRenewal, EmailTypeSegmentMilestone:
		return true
	}
	return false
}

// Label returns the human-readable label for the email type
func (t EmailType) Label() string {
	switch t {
	case EmailTypeBirthday:
		return "Birthday greeting"
	case EmailTypeCardRenewal:
		return "Card renewal reminder"
	case EmailTypeSegmentMilestone:
		return "Milestone celebration"
	default:
		return string(t)
	}
}

// EmailStatus represents the lifecycle status of a generated email
type EmailStatus string

const (
	EmailStatusDraft   EmailStatus = "DRAFT"
	EmailStatusSent    EmailStatus = "SENT"
	EmailStatusDeleted EmailStatus = "DELETED"
)

// IsValid checks if the status is one of the known lifecycle states
func (s EmailStatus) IsValid() bool {
	switch s {
	case EmailStatusDraft, EmailStatusSent, EmailStatusDeleted:
		return true
	}
	return false
}

// DraftTTL is how long a generated draft stays valid before cleanup
const DraftTTL = 7 * 24 * time.Hour

// GeneratedEmail represents a generated outreach email draft
type GeneratedEmail struct {
	ID          int64           `json:"id"`
	RMID        int64           `json:"rm_id"`
	CustomerID  int64           `json:"customer_id"`
	EmailType   EmailType       `json:"email_type"`
	Subject     string          `json:"subject"`
	Body        string          `json:"body"`
	Message     string          `json:"message"`
	Status      EmailStatus     `json:"status"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Resolved relations (for detail views)
	Customer            *Customer            `json:"customer,omitempty"`
	RelationshipManager *RelationshipManager `json:"relationship_manager,omitempty"`
}

// NewGeneratedEmail creates a new draft with a fresh 7-day expiry.
// Status and expiry are always set here, never taken from the caller.
func NewGeneratedEmail(rmID, customerID int64, emailType EmailType, subject, body, message string, metadata json.RawMessage) *GeneratedEmail {
	now := time.Now().UTC()
	return &GeneratedEmail{
		RMID:        rmID,
		CustomerID:  customerID,
		EmailType:   emailType,
		Subject:     subject,
		Body:        body,
		Message:     message,
		Status:      EmailStatusDraft,
		Metadata:    metadata,
		GeneratedAt: now,
		ExpiresAt:   now.Add(DraftTTL),
		UpdatedAt:   now,
	}
}

// IsDraft checks if the email is still a draft
func (e *GeneratedEmail) IsDraft() bool {
	return e.Status == EmailStatusDraft
}

// IsExpired checks if the email's expiry has passed
func (e *GeneratedEmail) IsExpired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// ResetForRegeneration replaces the generated content and restarts the
// draft lifecycle: status back to DRAFT, expiry pushed 7 days out from now.
// Metadata is left untouched; regeneration re-describes the same facts.
func (e *GeneratedEmail) ResetForRegeneration(subject, body, message string, now time.Time) {
	e.Subject = subject
	e.Body = body
	e.Message = message
	e.Status = EmailStatusDraft
	e.ExpiresAt = now.Add(DraftTTL)
	e.UpdatedAt = now
}

// BirthdayMetadata captures the facts behind a BIRTHDAY email
type BirthdayMetadata struct {
	BirthdayDate string `json:"birthday_date"`
	Age          int    `json:"age"`
}

// RenewingCard describes one card due for renewal within the threshold
type RenewingCard struct {
	CardProductName  string `json:"card_product_name"`
	CardType         string `json:"card_type"`
	CardNetwork      string `json:"card_network"`
	RenewalDate      string `json:"renewal_date"`
	DaysUntilRenewal int    `json:"days_until_renewal"`
}

// CardRenewalMetadata captures the facts behind a CARD_RENEWAL email
type CardRenewalMetadata struct {
	RenewingCards []RenewingCard `json:"renewing_cards"`
	TotalCards    int            `json:"total_cards"`
}

// Milestone kinds recorded in MilestoneMetadata
const (
	MilestoneAccountAnniversary = "account_anniversary"
	MilestoneSegmentAchievement = "segment_achievement"
)

// MilestoneMetadata captures the facts behind a SEGMENT_MILESTONE email
type MilestoneMetadata struct {
	MilestoneType string `json:"milestone_type"`
	Years         int    `json:"years,omitempty"`
	CustomerSince string `json:"customer_since,omitempty"`
	Segment       string `json:"segment,omitempty"`
	AchievedDate  string `json:"achieved_date,omitempty"`
}

// RegenerateEmailRequest is the request payload for regeneration endpoints
type RegenerateEmailRequest struct {
	Model        string `json:"model"`
	CustomPrompt string `json:"custom_prompt"`
}

// UpdateEmailStatusRequest is the request payload for the status endpoint
type UpdateEmailStatusRequest struct {
	Status EmailStatus `json:"status" binding:"required"`
}

// Validate validates the status update request. DRAFT is not a settable
// target; drafts only come back through regeneration.
func (r *UpdateEmailStatusRequest) Validate() error {
	if r.Status != EmailStatusSent && r.Status != EmailStatusDeleted {
		return &ValidationError{Field: "status", Message: "status must be SENT or DELETED"}
	}
	return nil
}
