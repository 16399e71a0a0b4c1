package models

import (
	"time"

	"github.com/google/uuid"
)

type LoginType string

const (
	LoginTypeLocal  LoginType = "LOCAL"
	LoginTypeGoogle LoginType = "GOOGLE"
)

// UnusablePassword is stored for accounts that never authenticate with a
// password. It is not a valid bcrypt hash, so comparisons always fail.
const UnusablePassword = "!unusable"

// User is the only account entity. Deactivation clears IsActive; rows are never deleted.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	LoginType LoginType `gorm:"column:logintype;size:10;not null;default:'LOCAL'" json:"logintype"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsGoogle() bool {
	return u.LoginType == LoginTypeGoogle
}
