package models

import (
	"strings"
	"time"
)

// DefaultEmailSignature is used when an RM has no custom signature template.
// {{Name}} and {{Title}} are substituted with the RM's details.
const DefaultEmailSignature = "Best regards,\n{{Name}}\n{{Title}}"

// RelationshipManager represents an RM who owns customer relationships
// and sends the generated outreach emails
type RelationshipManager struct {
	ID             int64     `json:"id"`
	EmployeeID     int64     `json:"employee_id"`
	Name           string    `json:"name"`
	Title          string    `json:"title"`
	Level          string    `json:"level"`
	IsActive       bool      `json:"is_active"`
	CustomPrompt   *string   `json:"custom_prompt"`
	EmailSignature *string   `json:"email_signature"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Signature resolves the RM's signature template (custom or default) and
// substitutes the name and title placeholders
func (rm *RelationshipManager) Signature() string {
	template := DefaultEmailSignature
	if rm.EmailSignature != nil && *rm.EmailSignature != "" {
		template = *rm.EmailSignature
	}

	signature := strings.ReplaceAll(template, "{{Name}}", rm.Name)
	signature = strings.ReplaceAll(signature, "{{Title}}", rm.Title)
	return signature
}
