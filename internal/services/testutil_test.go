package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/pkg/database"
)

// setupTestDB opens an in-memory database with the real schema applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=ON")
	require.NoError(t, err)

	// A second connection would get its own empty in-memory database
	db.SetMaxOpenConns(1)

	require.NoError(t, database.RunSQLScripts(db, "../../migrations"))

	t.Cleanup(func() { db.Close() })
	return db
}

func insertRM(t *testing.T, db *sql.DB, id int64, name, title string, customPrompt, signature *string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO relationship_managers (id, employee_id, name, title, level, is_active, custom_prompt, email_signature, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
		id, 1000+id, name, title, "senior", customPrompt, signature, now, now,
	)
	require.NoError(t, err)
}

func insertCustomer(t *testing.T, db *sql.DB, customer *models.Customer) {
	t.Helper()
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	_, err := db.Exec(
		`INSERT INTO customers (id, customer_code, name, email, phone, dob, gender, job_title, segment, behavior_description, is_active, rm_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID, customer.CustomerCode, customer.Name, customer.Email, customer.Phone,
		customer.DOB, customer.Gender, customer.JobTitle, customer.Segment,
		customer.BehaviorDescription, customer.IsActive, customer.RMID, customer.CreatedAt, now,
	)
	require.NoError(t, err)
}

func insertCard(t *testing.T, db *sql.DB, customerID int64, card *models.Card) {
	t.Helper()
	now := time.Now().UTC()
	result, err := db.Exec(
		`INSERT INTO cards (card_product_name, card_type, card_network, card_description, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.CardProductName, card.CardType, card.CardNetwork, card.CardDescription, card.IsActive, card.CreatedAt, now,
	)
	require.NoError(t, err)

	cardID, err := result.LastInsertId()
	require.NoError(t, err)
	card.ID = cardID

	_, err = db.Exec(`INSERT INTO customer_cards (customer_id, card_id) VALUES (?, ?)`, customerID, cardID)
	require.NoError(t, err)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// stubGenerator is a contentGenerator that returns canned content and can
// be told to fail for specific customers or block until released
type stubGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	failFor map[int64]bool
	block   chan struct{}
}

func (g *stubGenerator) Generate(ctx context.Context, customerID, rmID int64, emailType models.EmailType, metadata json.RawMessage, model, customPrompt string) (string, string, string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, customPrompt)
	fail := g.failFor[customerID]
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail {
		return "", "", "", fmt.Errorf("%w: stubbed failure", ErrContentGeneration)
	}
	return fmt.Sprintf("Subject for %d", customerID),
		fmt.Sprintf("Body for %d (%s)", customerID, emailType),
		"internal note",
		nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func strPtr(s string) *string { return &s }
