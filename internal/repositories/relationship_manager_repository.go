package repositories

import (
	"database/sql"
	"sync"

	"github.com/tuanngo/rmreach/internal/models"
)

// RelationshipManagerRepository handles database operations for relationship managers
type RelationshipManagerRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewRelationshipManagerRepository creates a new RelationshipManagerRepository
func NewRelationshipManagerRepository(db *sql.DB) *RelationshipManagerRepository {
	return &RelationshipManagerRepository{db: db}
}

// GetByID retrieves a relationship manager by ID
func (r *RelationshipManagerRepository) GetByID(id int64) (*models.RelationshipManager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, employee_id, name, title, level, is_active, custom_prompt, email_signature, created_at, updated_at
		FROM relationship_managers WHERE id = ?
	`

	rm := &models.RelationshipManager{}
	err := r.db.QueryRow(query, id).Scan(
		&rm.ID,
		&rm.EmployeeID,
		&rm.Name,
		&rm.Title,
		&rm.Level,
		&rm.IsActive,
		&rm.CustomPrompt,
		&rm.EmailSignature,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return rm, nil
}
