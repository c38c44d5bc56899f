package repositories

import (
	"database/sql"
	"sync"

	"github.com/tuanngo/rmreach/internal/models"
)

// RMTaskRepository handles database operations for relationship manager tasks
type RMTaskRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewRMTaskRepository creates a new RMTaskRepository
func NewRMTaskRepository(db *sql.DB) *RMTaskRepository {
	return &RMTaskRepository{db: db}
}

const taskColumns = `id, task_id, rm_id, customer_id, task_type, status, due_date, task_details, created_at, updated_at`

// GetByTaskID retrieves a task by its external task identifier.
// Returns nil without error when no task exists.
func (r *RMTaskRepository) GetByTaskID(taskID string) (*models.RMTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + taskColumns + ` FROM rm_tasks WHERE task_id = ?`

	task, err := r.scanTask(r.db.QueryRow(query, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// Create inserts a new task
func (r *RMTaskRepository) Create(task *models.RMTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO rm_tasks (task_id, rm_id, customer_id, task_type, status, due_date, task_details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.TaskID,
		task.RMID,
		task.CustomerID,
		task.TaskType,
		task.Status,
		task.DueDate,
		task.TaskDetails,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	task.ID = id

	return nil
}

// Update persists changes to an existing task
func (r *RMTaskRepository) Update(task *models.RMTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE rm_tasks
		SET status = ?, due_date = ?, task_details = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		task.Status,
		task.DueDate,
		task.TaskDetails,
		task.UpdatedAt,
		task.ID,
	)
	return err
}

func (r *RMTaskRepository) scanTask(row scanner) (*models.RMTask, error) {
	task := &models.RMTask{}
	err := row.Scan(
		&task.ID,
		&task.TaskID,
		&task.RMID,
		&task.CustomerID,
		&task.TaskType,
		&task.Status,
		&task.DueDate,
		&task.TaskDetails,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}
