package models

import (
	"time"
)

// Gender represents a customer's recorded gender
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Customer segments, highest tiers first
const (
	SegmentDiamondElite   = "Diamond Elite"
	SegmentDiamond        = "Diamond"
	SegmentPreDiamond     = "Pre-Diamond"
	SegmentChampionPrime  = "Champion Prime"
	SegmentRisingPrime    = "Rising Prime"
	SegmentUppermegaPrime = "Uppermega Prime"
	SegmentMegaPrime      = "Mega Prime"
)

// HighTierSegments are the segments that qualify for the recent-achievement
// milestone check
var HighTierSegments = []string{SegmentDiamondElite, SegmentDiamond, SegmentPreDiamond}

// IsHighTierSegment checks if a segment is one of the three highest tiers
func IsHighTierSegment(segment string) bool {
	for _, s := range HighTierSegments {
		if s == segment {
			return true
		}
	}
	return false
}

// Customer represents a bank customer managed by a relationship manager
type Customer struct {
	ID                  int64     `json:"id"`
	CustomerCode        string    `json:"customer_code"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	DOB                 time.Time `json:"dob"`
	Gender              Gender    `json:"gender"`
	JobTitle            string    `json:"job_title"`
	Segment             string    `json:"segment"`
	BehaviorDescription string    `json:"behavior_description"`
	IsActive            bool      `json:"is_active"`
	RMID                int64     `json:"rm_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Cards held by the customer (populated by the repository)
	Cards []*Card `json:"cards,omitempty"`
}

// Salutation returns the gender-derived form of address used in prompts
func (c *Customer) Salutation() string {
	switch c.Gender {
	case GenderMale:
		return "Mr."
	case GenderFemale:
		return "Ms."
	default:
		return "Dear customer"
	}
}
