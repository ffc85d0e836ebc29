package domain

import (
	"errors"
	"time"
)

const (
	// CodeTTL is how long an issued verification code stays valid.
	CodeTTL = 5 * time.Minute
	// CodeLength is the number of digits in a verification code.
	CodeLength = 4
)

var (
	ErrDeliveryFailed       = errors.New("verification code delivery failed")
	ErrCodeInvalidOrExpired = errors.New("verification code invalid or expired")
	ErrCodeNotFound         = errors.New("verification code not found")
	ErrResendCooldown       = errors.New("verification code recently sent")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrInvalidPhoneNumber   = errors.New("invalid phone number")
)

// VerificationCode is the single active one-time code for a phone number.
// Only a hash of the digits is ever stored.
type VerificationCode struct {
	ID          string    `json:"id" bson:"issuance_id"`
	PhoneNumber string    `json:"phone_number" bson:"phone"`
	CodeHash    string    `json:"-" bson:"code_hash"`
	IssuedAt    time.Time `json:"issued_at" bson:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at" bson:"expires_at"`
	Consumed    bool      `json:"consumed" bson:"consumed"`
}

// Active reports whether the code can still be redeemed at t.
func (c *VerificationCode) Active(t time.Time) bool {
	return !c.Consumed && t.Before(c.ExpiresAt)
}

// ValidCodeFormat reports whether s has the shape of a verification code.
func ValidCodeFormat(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
