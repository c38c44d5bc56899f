package models

import (
	"time"
)

// TaskType represents the kind of follow-up task tracked for an RM
type TaskType string

const (
	TaskTypeCall            TaskType = "CALL"
	TaskTypeEmail           TaskType = "EMAIL"
	TaskTypeMeeting         TaskType = "MEETING"
	TaskTypeFollowUp        TaskType = "FOLLOW_UP"
	TaskTypeSendInfoPackage TaskType = "SEND_INFO_PACKAGE"
)

// TaskStatus represents the completion state of a task
type TaskStatus string

const (
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
)

// RMTask represents a follow-up task in the task tracker. TaskID is the
// external identifier, deterministic for email follow-ups
// (EMAIL-{emailType}-{emailId}).
type RMTask struct {
	ID          int64      `json:"id"`
	TaskID      string     `json:"task_id"`
	RMID        int64      `json:"rm_id"`
	CustomerID  int64      `json:"customer_id"`
	TaskType    TaskType   `json:"task_type"`
	Status      TaskStatus `json:"status"`
	TaskDetails string     `json:"task_details"`
	DueDate     time.Time  `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewRMTask creates a new task with timestamps set
func NewRMTask(taskID string, rmID, customerID int64, taskType TaskType, status TaskStatus, details string, dueDate time.Time) *RMTask {
	now := time.Now().UTC()
	return &RMTask{
		TaskID:      taskID,
		RMID:        rmID,
		CustomerID:  customerID,
		TaskType:    taskType,
		Status:      status,
		TaskDetails: details,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
