package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
)

func setupSchedulerTest(t *testing.T, workers int) (*EmailSchedulerService, *sql.DB, *stubGenerator) {
	t.Helper()
	db := setupTestDB(t)

	customerRepo := repositories.NewCustomerRepository(db)
	generator := &stubGenerator{failFor: map[int64]bool{}}
	emailService := NewGeneratedEmailService(
		repositories.NewGeneratedEmailRepository(db),
		customerRepo,
		repositories.NewRelationshipManagerRepository(db),
		generator,
		NewTaskSyncService(repositories.NewRMTaskRepository(db)),
	)
	scheduler := NewEmailSchedulerService(NewEligibilityService(customerRepo), generator, emailService, workers)
	return scheduler, db, generator
}

// seedBirthdayCustomers inserts n active customers whose birthday is today
func seedBirthdayCustomers(t *testing.T, db *sql.DB, rmID int64, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 1; i <= n; i++ {
		insertCustomer(t, db, &models.Customer{
			ID:   int64(i),
			Name: "Customer", DOB: time.Date(1980, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Gender: models.GenderOther, Segment: "Mega Prime", IsActive: true, RMID: rmID,
			CreatedAt: date(2020, time.February, 2),
		})
	}
}

func TestRunForRM(t *testing.T) {
	scheduler, db, generator := setupSchedulerTest(t, 1)

	insertRM(t, db, 1, "Alice Nguyen", "Senior RM", nil, nil)
	seedBirthdayCustomers(t, db, 1, 5)
	generator.failFor[3] = true

	result, err := scheduler.RunForRM(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Generated)
	assert.Equal(t, 1, result.Errors)
	assert.NotEmpty(t, result.RunID)

	require.Len(t, result.Details, 5)
	for i, detail := range result.Details {
		assert.Equal(t, int64(i+1), detail.CustomerID, "details preserve eligibility order")
		assert.Equal(t, models.EmailTypeBirthday, detail.EmailType)
		if detail.CustomerID == 3 {
			assert.False(t, detail.Success)
			assert.NotEmpty(t, detail.Error)
		} else {
			assert.True(t, detail.Success)
			assert.Empty(t, detail.Error)
		}
	}

	t.Run("Drafts are persisted for the successes", func(t *testing.T) {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM generated_emails WHERE status = 'DRAFT'`).Scan(&n))
		assert.Equal(t, 4, n)
	})

	t.Run("Scoped run for an RM with no customers", func(t *testing.T) {
		result, err := scheduler.RunForRM(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Generated)
		assert.Equal(t, 0, result.Errors)
	})
}

func TestRunDailyPass(t *testing.T) {
	scheduler, db, _ := setupSchedulerTest(t, 2)

	insertRM(t, db, 1, "Alice Nguyen", "Senior RM", nil, nil)
	insertRM(t, db, 2, "Bao Le", "RM", nil, nil)
	seedBirthdayCustomers(t, db, 1, 2)

	// A customer of another RM, also eligible; the daily pass is global
	now := time.Now().UTC()
	insertCustomer(t, db, &models.Customer{
		ID: 10, Name: "Other RM Customer", DOB: time.Date(1990, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Gender: models.GenderFemale, Segment: "Mega Prime", IsActive: true, RMID: 2,
		CreatedAt: date(2020, time.February, 2),
	})

	// An expired draft the pass must clean up first
	longAgo := now.Add(-30 * 24 * time.Hour)
	_, err := db.Exec(
		`INSERT INTO generated_emails (rm_id, customer_id, email_type, subject, body, message, status, metadata, generated_at, expires_at, updated_at)
		 VALUES (1, 1, 'BIRTHDAY', 's', 'b', '', 'DRAFT', '{}', ?, ?, ?)`,
		longAgo, longAgo.Add(models.DraftTTL), longAgo,
	)
	require.NoError(t, err)

	result, err := scheduler.RunDailyPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Cleaned)
	assert.Equal(t, 3, result.Generated)
	assert.Equal(t, 0, result.Errors)
	assert.NotEmpty(t, result.RunID)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM generated_emails`).Scan(&n))
	assert.Equal(t, 3, n, "expired draft replaced by the new generation")
}

func TestConcurrentRunsAreRejected(t *testing.T) {
	scheduler, db, generator := setupSchedulerTest(t, 1)

	insertRM(t, db, 1, "Alice Nguyen", "Senior RM", nil, nil)
	seedBirthdayCustomers(t, db, 1, 1)

	generator.block = make(chan struct{})

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := scheduler.RunDailyPass(context.Background())
		done <- err
	}()

	<-started
	// Wait until the first run is inside generation and holding the lock
	for generator.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := scheduler.RunForRM(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = scheduler.RunDailyPass(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(generator.block)
	require.NoError(t, <-done)

	t.Run("Lock is released after the run", func(t *testing.T) {
		generator.block = nil
		_, err := scheduler.RunForRM(context.Background(), 1)
		assert.NoError(t, err)
	})
}
