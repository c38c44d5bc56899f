package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/tuanngo/rmreach/internal/models"
)

// GeneratedEmailRepository handles database operations for generated emails
type GeneratedEmailRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewGeneratedEmailRepository creates a new GeneratedEmailRepository
func NewGeneratedEmailRepository(db *sql.DB) *GeneratedEmailRepository {
	return &GeneratedEmailRepository{db: db}
}

// EmailFilter narrows ListByRM results. Nil fields are ignored.
type EmailFilter struct {
	Status     *models.EmailStatus
	CustomerID *int64
	EmailType  *models.EmailType
}

// Create inserts a new generated email
func (r *GeneratedEmailRepository) Create(email *models.GeneratedEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO generated_emails (rm_id, customer_id, email_type, subject, body, message, status, metadata, generated_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		email.RMID,
		email.CustomerID,
		email.EmailType,
		email.Subject,
		email.Body,
		email.Message,
		email.Status,
		string(email.Metadata),
		email.GeneratedAt,
		email.ExpiresAt,
		email.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	email.ID = id

	return nil
}

const emailColumns = `id, rm_id, customer_id, email_type, subject, body, message, status, metadata, generated_at, expires_at, updated_at`

// GetByID retrieves a generated email by ID
func (r *GeneratedEmailRepository) GetByID(id int64) (*models.GeneratedEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + emailColumns + ` FROM generated_emails WHERE id = ?`

	return r.scanEmail(r.db.QueryRow(query, id))
}

// ListByRM retrieves emails for a relationship manager, newest first
func (r *GeneratedEmailRepository) ListByRM(rmID int64, filter EmailFilter) ([]*models.GeneratedEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + emailColumns + ` FROM generated_emails WHERE rm_id = ?`
	args := []interface{}{rmID}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.CustomerID != nil {
		query += ` AND customer_id = ?`
		args = append(args, *filter.CustomerID)
	}
	if filter.EmailType != nil {
		query += ` AND email_type = ?`
		args = append(args, *filter.EmailType)
	}
	query += ` ORDER BY generated_at DESC, id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []*models.GeneratedEmail{}
	for rows.Next() {
		email, err := r.scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}

	return emails, rows.Err()
}

// Update persists changes to an existing email
func (r *GeneratedEmailRepository) Update(email *models.GeneratedEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE generated_emails
		SET subject = ?, body = ?, message = ?, status = ?, metadata = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		email.Subject,
		email.Body,
		email.Message,
		email.Status,
		string(email.Metadata),
		email.ExpiresAt,
		email.UpdatedAt,
		email.ID,
	)
	return err
}

// Delete removes a generated email
func (r *GeneratedEmailRepository) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`DELETE FROM generated_emails WHERE id = ?`, id)
	return err
}

// DeleteExpiredDrafts removes drafts whose expiry has passed and returns
// how many were deleted. Sent and deleted emails are never touched.
func (r *GeneratedEmailRepository) DeleteExpiredDrafts(now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.Exec(
		`DELETE FROM generated_emails WHERE status = ? AND expires_at < ?`,
		models.EmailStatusDraft, now,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *GeneratedEmailRepository) scanEmail(row scanner) (*models.GeneratedEmail, error) {
	email := &models.GeneratedEmail{}
	var metadata string
	err := row.Scan(
		&email.ID,
		&email.RMID,
		&email.CustomerID,
		&email.EmailType,
		&email.Subject,
		&email.Body,
		&email.Message,
		&email.Status,
		&metadata,
		&email.GeneratedAt,
		&email.ExpiresAt,
		&email.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	email.Metadata = []byte(metadata)
	return email, nil
}
