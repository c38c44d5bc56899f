package models

import (
	"time"
)

// CardType represents the card product category
type CardType string

const (
	CardTypeDebit  CardType = "DEBIT"
	CardTypeCredit CardType = "CREDIT"
)

// CardNetwork represents the payment network a card runs on
type CardNetwork string

const (
	CardNetworkVisa       CardNetwork = "VISA"
	CardNetworkMastercard CardNetwork = "MASTERCARD"
)

// Card represents a card product held by a customer. The creation date
// drives the annual renewal anniversary.
type Card struct {
	ID              int64       `json:"id"`
	CardProductName string      `json:"card_product_name"`
	CardType        CardType    `json:"card_type"`
	CardNetwork     CardNetwork `json:"card_network"`
	CardDescription string      `json:"card_description"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
