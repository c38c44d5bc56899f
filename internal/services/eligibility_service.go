package services

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
)

// RenewalWindowDays is how far ahead a card renewal anniversary may be
// for the customer to qualify for a reminder
const RenewalWindowDays = 30

// SegmentAchievementWindowDays is how recently an account must have been
// created for a high-tier segment to count as a fresh achievement
const SegmentAchievementWindowDays = 7

// AnniversaryYears are the account ages celebrated with a milestone email
var AnniversaryYears = []int{1, 3, 5}

// EligibilityService decides which customers qualify for which outreach
// emails on a given day
type EligibilityService struct {
	customerRepo *repositories.CustomerRepository
}

// NewEligibilityService creates a new EligibilityService
func NewEligibilityService(customerRepo *repositories.CustomerRepository) *EligibilityService {
	return &EligibilityService{
		customerRepo: customerRepo,
	}
}

// GetEligibleCustomers evaluates every active customer against all rules.
// A customer can appear once per matching email type.
func (s *EligibilityService) GetEligibleCustomers(today time.Time) ([]*models.EligibleCustomer, error) {
	return s.getEligible(nil, today)
}

// GetEligibleCustomersByRM evaluates only the active customers of one
// relationship manager
func (s *EligibilityService) GetEligibleCustomersByRM(rmID int64, today time.Time) ([]*models.EligibleCustomer, error) {
	return s.getEligible(&rmID, today)
}

func (s *EligibilityService) getEligible(rmID *int64, today time.Time) ([]*models.EligibleCustomer, error) {
	customers, err := s.customerRepo.GetActiveCustomers(rmID)
	if err != nil {
		return nil, err
	}

	var eligible []*models.EligibleCustomer
	for _, customer := range customers {
		eligible = append(eligible, evaluateCustomer(customer, today)...)
	}

	return eligible, nil
}

// IsCustomerEligible checks a single customer against one rule
func (s *EligibilityService) IsCustomerEligible(customerID int64, emailType models.EmailType, today time.Time) (bool, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, ErrNotFound
		}
		return false, err
	}
	if !customer.IsActive {
		return false, nil
	}

	switch emailType {
	case models.EmailTypeBirthday:
		return IsBirthday(customer.DOB, today), nil
	case models.EmailTypeCardRenewal:
		_, ok := CheckCardRenewal(customer.Cards, today)
		return ok, nil
	case models.EmailTypeSegmentMilestone:
		_, ok := CheckSegmentMilestone(customer, today)
		return ok, nil
	}
	return false, nil
}

// evaluateCustomer runs the rules in fixed order: birthday, card renewal,
// segment milestone. Each match yields its own tuple.
func evaluateCustomer(customer *models.Customer, today time.Time) []*models.EligibleCustomer {
	var tuples []*models.EligibleCustomer

	if IsBirthday(customer.DOB, today) {
		metadata, _ := json.Marshal(models.BirthdayMetadata{
			BirthdayDate: dateOnly(customer.DOB).Format("2006-01-02"),
			Age:          Age(customer.DOB, today),
		})
		tuples = append(tuples, &models.EligibleCustomer{
			Customer:  customer,
			EmailType: models.EmailTypeBirthday,
			Metadata:  metadata,
		})
	}

	if renewal, ok := CheckCardRenewal(customer.Cards, today); ok {
		metadata, _ := json.Marshal(renewal)
		tuples = append(tuples, &models.EligibleCustomer{
			Customer:  customer,
			EmailType: models.EmailTypeCardRenewal,
			Metadata:  metadata,
		})
	}

	if milestone, ok := CheckSegmentMilestone(customer, today); ok {
		metadata, _ := json.Marshal(milestone)
		tuples = append(tuples, &models.EligibleCustomer{
			Customer:  customer,
			EmailType: models.EmailTypeSegmentMilestone,
			Metadata:  metadata,
		})
	}

	return tuples
}

// IsBirthday checks day and month equality, ignoring the year.
// A Feb 29 birthday only fires in leap years.
func IsBirthday(dob, today time.Time) bool {
	dob, today = dob.UTC(), today.UTC()
	return dob.Day() == today.Day() && dob.Month() == today.Month()
}

// Age returns completed years of age as of today
func Age(dob, today time.Time) int {
	dob, today = dob.UTC(), today.UTC()
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// CheckCardRenewal finds active cards whose next renewal anniversary falls
// within the reminder window. The anniversary is the yearly recurrence of
// the card's creation date, strictly after today.
func CheckCardRenewal(cards []*models.Card, today time.Time) (*models.CardRenewalMetadata, bool) {
	today = dateOnly(today)

	var renewing []models.RenewingCard
	for _, card := range cards {
		if !card.IsActive {
			continue
		}

		renewal := nextAnniversary(card.CreatedAt, today)
		daysUntil := daysBetween(today, renewal)
		if daysUntil > 0 && daysUntil <= RenewalWindowDays {
			renewing = append(renewing, models.RenewingCard{
				CardProductName:  card.CardProductName,
				CardType:         string(card.CardType),
				CardNetwork:      string(card.CardNetwork),
				RenewalDate:      renewal.Format("2006-01-02"),
				DaysUntilRenewal: daysUntil,
			})
		}
	}

	if len(renewing) == 0 {
		return nil, false
	}

	return &models.CardRenewalMetadata{
		RenewingCards: renewing,
		TotalCards:    len(renewing),
	}, true
}

// CheckSegmentMilestone checks the two milestone rules in priority order:
// an exact account anniversary beats a recent high-tier achievement.
// The achievement rule treats an account created within the last week as a
// fresh segment upgrade, an approximation in the absence of segment history.
func CheckSegmentMilestone(customer *models.Customer, today time.Time) (*models.MilestoneMetadata, bool) {
	today = dateOnly(today)
	created := dateOnly(customer.CreatedAt)

	for _, years := range AnniversaryYears {
		if created.AddDate(years, 0, 0).Equal(today) {
			return &models.MilestoneMetadata{
				MilestoneType: models.MilestoneAccountAnniversary,
				Years:         years,
				CustomerSince: created.Format("2006-01-02"),
				Segment:       customer.Segment,
			}, true
		}
	}

	if models.IsHighTierSegment(customer.Segment) {
		daysSince := daysBetween(created, today)
		if daysSince >= 0 && daysSince <= SegmentAchievementWindowDays {
			return &models.MilestoneMetadata{
				MilestoneType: models.MilestoneSegmentAchievement,
				Segment:       customer.Segment,
				AchievedDate:  created.Format("2006-01-02"),
			}, true
		}
	}

	return nil, false
}

// dateOnly truncates a timestamp to midnight UTC
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from a to b for date-only values
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// nextAnniversary returns the first yearly recurrence of created's
// month/day strictly after today
func nextAnniversary(created, today time.Time) time.Time {
	created = dateOnly(created)
	anniversary := time.Date(today.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
	if !anniversary.After(today) {
		anniversary = anniversary.AddDate(1, 0, 0)
	}
	return anniversary
}
