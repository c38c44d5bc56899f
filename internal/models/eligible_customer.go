package models

import (
	"encoding/json"
)

// EligibleCustomer is a transient tuple produced by the eligibility rules:
// one customer, one email type, and the facts that triggered it. It is
// consumed within a single scheduling pass and never persisted on its own.
type EligibleCustomer struct {
	Customer  *Customer
	EmailType EmailType
	Metadata  json.RawMessage
}
