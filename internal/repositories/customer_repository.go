package repositories

import (
	"database/sql"
	"sync"

	"github.com/tuanngo/rmreach/internal/models"
)

// CustomerRepository handles database operations for customers
type CustomerRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, customer_code, name, email, phone, dob, gender, job_title, segment, behavior_description, is_active, rm_id, created_at, updated_at`

// GetByID retrieves a customer by ID, including held cards
func (r *CustomerRepository) GetByID(id int64) (*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`

	customer, err := r.scanCustomer(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadCards(customer); err != nil {
		return nil, err
	}

	return customer, nil
}

// GetActiveCustomers retrieves all active customers, optionally scoped to
// one relationship manager, including held cards
func (r *CustomerRepository) GetActiveCustomers(rmID *int64) ([]*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + customerColumns + ` FROM customers WHERE is_active = 1`
	args := []interface{}{}
	if rmID != nil {
		query += ` AND rm_id = ?`
		args = append(args, *rmID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, customer := range customers {
		if err := r.loadCards(customer); err != nil {
			return nil, err
		}
	}

	return customers, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *CustomerRepository) scanCustomer(row scanner) (*models.Customer, error) {
	customer := &models.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.CustomerCode,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.DOB,
		&customer.Gender,
		&customer.JobTitle,
		&customer.Segment,
		&customer.BehaviorDescription,
		&customer.IsActive,
		&customer.RMID,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// loadCards populates the customer's held cards
func (r *CustomerRepository) loadCards(customer *models.Customer) error {
	query := `
		SELECT c.id, c.card_product_name, c.card_type, c.card_network, c.card_description, c.is_active, c.created_at, c.updated_at
		FROM cards c
		INNER JOIN customer_cards cc ON cc.card_id = c.id
		WHERE cc.customer_id = ?
		ORDER BY c.id ASC
	`

	rows, err := r.db.Query(query, customer.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		err := rows.Scan(
			&card.ID,
			&card.CardProductName,
			&card.CardType,
			&card.CardNetwork,
			&card.CardDescription,
			&card.IsActive,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			return err
		}
		cards = append(cards, card)
	}

	customer.Cards = cards
	return rows.Err()
}
