package models

import (
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgency Role = "agency"
	RoleUser   Role = "user"
)

// User represents an account.
type User struct {
	Base          `bson:",inline"`
	Name          string    `bson:"name" json:"name"`
	Email         string    `bson:"email" json:"email"`
	PasswordHash  string    `bson:"password" json:"-"`
	Role          Role      `bson:"role" json:"role"`
	SavedAgencies []string  `bson:"saved_agencies" json:"saved_agencies"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Principal is the authenticated caller carried through a request.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type ProfileUpdate struct {
	Name *string `json:"name"`
}
