package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
	"github.com/tuanngo/rmreach/pkg/logger"
)

// contentGenerator is the generation dependency of the lifecycle service.
// Tests substitute a stub.
type contentGenerator interface {
	Generate(ctx context.Context, customerID, rmID int64, emailType models.EmailType, metadata json.RawMessage, model, customPrompt string) (subject, body, message string, err error)
}

// GeneratedEmailService manages the draft lifecycle of generated emails
type GeneratedEmailService struct {
	emailRepo    *repositories.GeneratedEmailRepository
	customerRepo *repositories.CustomerRepository
	rmRepo       *repositories.RelationshipManagerRepository
	generator    contentGenerator
	taskSync     *TaskSyncService
}

// NewGeneratedEmailService creates a new GeneratedEmailService
func NewGeneratedEmailService(
	emailRepo *repositories.GeneratedEmailRepository,
	customerRepo *repositories.CustomerRepository,
	rmRepo *repositories.RelationshipManagerRepository,
	generator contentGenerator,
	taskSync *TaskSyncService,
) *GeneratedEmailService {
	return &GeneratedEmailService{
		emailRepo:    emailRepo,
		customerRepo: customerRepo,
		rmRepo:       rmRepo,
		generator:    generator,
		taskSync:     taskSync,
	}
}

// Create stores a freshly generated email. The draft status and 7-day
// expiry are set by the constructor, never by the caller.
func (s *GeneratedEmailService) Create(rmID, customerID int64, emailType models.EmailType, subject, body, message string, metadata json.RawMessage) (*models.GeneratedEmail, error) {
	email := models.NewGeneratedEmail(rmID, customerID, emailType, subject, body, message, metadata)
	if err := s.emailRepo.Create(email); err != nil {
		return nil, err
	}
	return email, nil
}

// ListByRM retrieves a relationship manager's emails, newest first
func (s *GeneratedEmailService) ListByRM(rmID int64, filter repositories.EmailFilter) ([]*models.GeneratedEmail, error) {
	return s.emailRepo.ListByRM(rmID, filter)
}

// GetByID retrieves one email with its customer and relationship manager
// resolved for the detail view
func (s *GeneratedEmailService) GetByID(id int64) (*models.GeneratedEmail, error) {
	email, err := s.getEmail(id)
	if err != nil {
		return nil, err
	}

	if customer, err := s.customerRepo.GetByID(email.CustomerID); err == nil {
		email.Customer = customer
	}
	if rm, err := s.rmRepo.GetByID(email.RMID); err == nil {
		email.RelationshipManager = rm
	}

	return email, nil
}

// Regenerate re-runs content generation for an existing email using its
// stored type and metadata, then restarts the draft lifecycle. The email
// always comes back as a DRAFT with a fresh expiry, whatever its previous
// status.
func (s *GeneratedEmailService) Regenerate(ctx context.Context, id int64, model, customPrompt string) (*models.GeneratedEmail, error) {
	email, err := s.getEmail(id)
	if err != nil {
		return nil, err
	}

	subject, body, message, err := s.generator.Generate(ctx, email.CustomerID, email.RMID, email.EmailType, email.Metadata, model, customPrompt)
	if err != nil {
		return nil, err
	}

	email.ResetForRegeneration(subject, body, message, time.Now().UTC())
	if err := s.emailRepo.Update(email); err != nil {
		return nil, err
	}

	return email, nil
}

// RegenerateError records one failed item of a batch regeneration
type RegenerateError struct {
	EmailID int64  `json:"email_id"`
	Message string `json:"message"`
}

// RegenerateBatchResult summarises a batch regeneration
type RegenerateBatchResult struct {
	Regenerated int                      `json:"regenerated"`
	Failed      int                      `json:"failed"`
	Errors      []RegenerateError        `json:"errors,omitempty"`
	Emails      []*models.GeneratedEmail `json:"emails"`
}

// RegenerateByRM regenerates a relationship manager's matching emails one
// by one. A failed item is recorded and the batch moves on. An unfiltered
// batch covers all of the RM's emails; since regeneration unconditionally
// resets to DRAFT, that includes pulling SENT ones back.
func (s *GeneratedEmailService) RegenerateByRM(ctx context.Context, rmID int64, filter repositories.EmailFilter, model, customPrompt string) (*RegenerateBatchResult, error) {
	if _, err := s.rmRepo.GetByID(rmID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("relationship manager %d: %w", rmID, ErrNotFound)
		}
		return nil, err
	}

	emails, err := s.emailRepo.ListByRM(rmID, filter)
	if err != nil {
		return nil, err
	}

	result := &RegenerateBatchResult{}
	for _, email := range emails {
		regenerated, err := s.Regenerate(ctx, email.ID, model, customPrompt)
		if err != nil {
			logger.WithError(err).WithField("email_id", email.ID).Warn("Batch regeneration item failed")
			result.Failed++
			result.Errors = append(result.Errors, RegenerateError{EmailID: email.ID, Message: err.Error()})
			continue
		}
		result.Regenerated++
		result.Emails = append(result.Emails, regenerated)
	}

	return result, nil
}

// UpdateStatus moves an email to SENT or DELETED. The first transition to
// SENT triggers the task sync; sync failures are logged, never surfaced.
func (s *GeneratedEmailService) UpdateStatus(id int64, status models.EmailStatus) (*models.GeneratedEmail, error) {
	email, err := s.getEmail(id)
	if err != nil {
		return nil, err
	}

	previous := email.Status
	email.Status = status
	email.UpdatedAt = time.Now().UTC()

	if err := s.emailRepo.Update(email); err != nil {
		return nil, err
	}

	if status == models.EmailStatusSent && previous != models.EmailStatusSent {
		if err := s.taskSync.SyncForSentEmail(email); err != nil {
			logger.WithError(err).WithField("email_id", email.ID).Error("Task sync for sent email failed")
		}
	}

	return email, nil
}

// Delete removes an email permanently
func (s *GeneratedEmailService) Delete(id int64) error {
	if _, err := s.getEmail(id); err != nil {
		return err
	}
	return s.emailRepo.Delete(id)
}

// CleanupExpired removes drafts whose expiry has passed and returns the
// number deleted. Sent emails are kept indefinitely.
func (s *GeneratedEmailService) CleanupExpired(now time.Time) (int64, error) {
	return s.emailRepo.DeleteExpiredDrafts(now.UTC())
}

// CreateTaskForEmail manually (re)syncs the follow-up task for an email
// that has already been sent
func (s *GeneratedEmailService) CreateTaskForEmail(id int64) (*models.GeneratedEmail, error) {
	email, err := s.getEmail(id)
	if err != nil {
		return nil, err
	}

	if email.Status != models.EmailStatusSent {
		return nil, &models.ValidationError{Field: "status", Message: "email must be SENT before a task can be created"}
	}

	if err := s.taskSync.SyncForSentEmail(email); err != nil {
		return nil, err
	}

	return email, nil
}

func (s *GeneratedEmailService) getEmail(id int64) (*models.GeneratedEmail, error) {
	email, err := s.emailRepo.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("email %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return email, nil
}
