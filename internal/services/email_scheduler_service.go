package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/pkg/logger"
)

// EmailSchedulerService drives the daily generation pass: cleanup of
// expired drafts, eligibility evaluation and fan-out of content generation
type EmailSchedulerService struct {
	eligibility  *EligibilityService
	generator    contentGenerator
	emailService *GeneratedEmailService
	workers      int

	// runMu makes runs single-flight; overlapping triggers are rejected
	// instead of producing duplicate drafts
	runMu sync.Mutex
}

// NewEmailSchedulerService creates a new EmailSchedulerService. workers
// bounds concurrent generation calls; values below 1 mean sequential.
func NewEmailSchedulerService(
	eligibility *EligibilityService,
	generator contentGenerator,
	emailService *GeneratedEmailService,
	workers int,
) *EmailSchedulerService {
	if workers < 1 {
		workers = 1
	}
	return &EmailSchedulerService{
		eligibility:  eligibility,
		generator:    generator,
		emailService: emailService,
		workers:      workers,
	}
}

// GenerationDetail reports the outcome for one eligible customer/type pair
type GenerationDetail struct {
	CustomerID int64            `json:"customer_id"`
	EmailType  models.EmailType `json:"email_type"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
}

// DailyRunResult summarises a full daily pass
type DailyRunResult struct {
	RunID     string `json:"run_id"`
	Cleaned   int64  `json:"cleaned"`
	Generated int    `json:"generated"`
	Errors    int    `json:"errors"`
}

// ScopedRunResult summarises a pass scoped to one relationship manager
type ScopedRunResult struct {
	RunID     string             `json:"run_id"`
	Generated int                `json:"generated"`
	Errors    int                `json:"errors"`
	Details   []GenerationDetail `json:"details"`
}

// RunDailyPass cleans up expired drafts, evaluates eligibility across all
// relationship managers and generates a draft per eligible pair. Returns
// ErrRunInProgress when another run holds the lock.
func (s *EmailSchedulerService) RunDailyPass(ctx context.Context) (*DailyRunResult, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	runID := uuid.New().String()
	log := logger.WithField("run_id", runID)
	log.Info("Starting daily email generation pass")

	now := time.Now().UTC()

	cleaned, err := s.emailService.CleanupExpired(now)
	if err != nil {
		log.WithError(err).Error("Expired draft cleanup failed")
		return nil, err
	}

	eligible, err := s.eligibility.GetEligibleCustomers(now)
	if err != nil {
		log.WithError(err).Error("Eligibility evaluation failed")
		return nil, err
	}

	details := s.generateAll(ctx, eligible, log)
	generated, errors := tally(details)

	log.WithFields(logrus.Fields{
		"cleaned":   cleaned,
		"eligible":  len(eligible),
		"generated": generated,
		"errors":    errors,
	}).Info("Daily email generation pass finished")

	return &DailyRunResult{
		RunID:     runID,
		Cleaned:   cleaned,
		Generated: generated,
		Errors:    errors,
	}, nil
}

// RunForRM generates drafts for one relationship manager's eligible
// customers. No cleanup happens here; that belongs to the daily pass.
func (s *EmailSchedulerService) RunForRM(ctx context.Context, rmID int64) (*ScopedRunResult, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	runID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"run_id": runID, "rm_id": rmID})
	log.Info("Starting scoped email generation pass")

	eligible, err := s.eligibility.GetEligibleCustomersByRM(rmID, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("Eligibility evaluation failed")
		return nil, err
	}

	details := s.generateAll(ctx, eligible, log)
	generated, errors := tally(details)

	log.WithFields(logrus.Fields{
		"eligible":  len(eligible),
		"generated": generated,
		"errors":    errors,
	}).Info("Scoped email generation pass finished")

	return &ScopedRunResult{
		RunID:     runID,
		Generated: generated,
		Errors:    errors,
		Details:   details,
	}, nil
}

// generateAll fans generation out over a bounded worker group. Each pair
// fails on its own; a failure never aborts its siblings. Details come back
// in eligibility order.
func (s *EmailSchedulerService) generateAll(ctx context.Context, eligible []*models.EligibleCustomer, log *logrus.Entry) []GenerationDetail {
	details := make([]GenerationDetail, len(eligible))

	g := &errgroup.Group{}
	g.SetLimit(s.workers)

	for i, tuple := range eligible {
		i, tuple := i, tuple
		g.Go(func() error {
			details[i] = s.generateOne(ctx, tuple, log)
			return nil
		})
	}
	g.Wait()

	return details
}

func (s *EmailSchedulerService) generateOne(ctx context.Context, tuple *models.EligibleCustomer, log *logrus.Entry) GenerationDetail {
	detail := GenerationDetail{
		CustomerID: tuple.Customer.ID,
		EmailType:  tuple.EmailType,
	}

	subject, body, message, err := s.generator.Generate(ctx, tuple.Customer.ID, tuple.Customer.RMID, tuple.EmailType, tuple.Metadata, "", "")
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"customer_id": tuple.Customer.ID,
			"email_type":  tuple.EmailType,
		}).Warn("Email generation failed")
		detail.Error = err.Error()
		return detail
	}

	if _, err := s.emailService.Create(tuple.Customer.RMID, tuple.Customer.ID, tuple.EmailType, subject, body, message, tuple.Metadata); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"customer_id": tuple.Customer.ID,
			"email_type":  tuple.EmailType,
		}).Warn("Draft persistence failed")
		detail.Error = err.Error()
		return detail
	}

	detail.Success = true
	return detail
}

func tally(details []GenerationDetail) (generated, errors int) {
	for _, d := range details {
		if d.Success {
			generated++
		} else {
			errors++
		}
	}
	return generated, errors
}

// StartCron schedules the daily pass and returns the running cron so the
// caller can stop it on shutdown. Panics inside a run are recovered and
// logged instead of taking the process down.
func (s *EmailSchedulerService) StartCron(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		if _, err := s.RunDailyPass(context.Background()); err != nil {
			logger.WithError(err).Error("Scheduled email generation pass failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.WithField("schedule", spec).Info("Email generation schedule started")
	return c, nil
}
