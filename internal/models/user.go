package models

import (
	"time"
)

type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the slice of a user embedded in order responses.
type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
