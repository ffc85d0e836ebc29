package domain

import (
	"errors"
	"time"
)

// Role is the privilege class of an identity.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCandidate Role = "candidate"
	RoleMember    Role = "member"
)

var (
	ErrIdentityNotFound       = errors.New("identity not found")
	ErrIdentityExists         = errors.New("identity already exists")
	ErrSessionEstablishFailed = errors.New("session could not be established")
	ErrNoSession              = errors.New("no active session")
	ErrForbidden              = errors.New("access forbidden")
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCandidate, RoleMember:
		return true
	}
	return false
}

// Identity is the authenticated representation of a person.
type Identity struct {
	ID          string    `json:"id" bson:"_id"`
	PhoneNumber string    `json:"phone_number" bson:"phone"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	Role        Role      `json:"role" bson:"role"`
	Approved    bool      `json:"approved" bson:"approved"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// WellFormed reports whether a restored identity carries the fields a
// session needs.
func (i *Identity) WellFormed() bool {
	return i != nil && i.ID != "" && i.PhoneNumber != "" && i.Role.Valid()
}
