package services

import (
	"fmt"
	"time"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
)

// TaskFollowUpWindow is how far out the follow-up task for a sent email is due
const TaskFollowUpWindow = 7 * 24 * time.Hour

// TaskSyncService keeps the RM task tracker in step with sent emails
type TaskSyncService struct {
	taskRepo *repositories.RMTaskRepository
}

// NewTaskSyncService creates a new TaskSyncService
func NewTaskSyncService(taskRepo *repositories.RMTaskRepository) *TaskSyncService {
	return &TaskSyncService{
		taskRepo: taskRepo,
	}
}

// TaskIDForEmail builds the deterministic external task identifier for an
// email, so repeat syncs land on the same task
func TaskIDForEmail(email *models.GeneratedEmail) string {
	return fmt.Sprintf("EMAIL-%s-%d", email.EmailType, email.ID)
}

// SyncForSentEmail upserts the follow-up task for a sent email: same
// external id always maps to the same task, so marking an email SENT twice
// updates rather than duplicates.
func (s *TaskSyncService) SyncForSentEmail(email *models.GeneratedEmail) error {
	taskID := TaskIDForEmail(email)
	now := time.Now().UTC()
	dueDate := now.Add(TaskFollowUpWindow)
	details := fmt.Sprintf("%s email sent to customer. Subject: %s", email.EmailType.Label(), email.Subject)

	existing, err := s.taskRepo.GetByTaskID(taskID)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.Status = models.TaskStatusCompleted
		existing.DueDate = dueDate
		existing.TaskDetails = details
		existing.UpdatedAt = now
		return s.taskRepo.Update(existing)
	}

	task := models.NewRMTask(taskID, email.RMID, email.CustomerID, models.TaskTypeEmail, models.TaskStatusCompleted, details, dueDate)
	return s.taskRepo.Create(task)
}
