package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleGuest    Role = "guest"
	RoleHost     Role = "host"
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleHost, RoleOperator:
		return true
	}
	return false
}

// users
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Username string `gorm:"type:varchar(255);not null;uniqueIndex" json:"username"`
	// bcrypt hash, never the plain password.
	Password      string `gorm:"type:varchar(255);not null" json:"-"`
	Role          Role   `gorm:"type:varchar(32);not null;index" json:"role"`
	WalletAddress string `gorm:"type:varchar(128);not null;uniqueIndex" json:"walletAddress"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// IDs are assigned client-side so the same schema migrates on
// postgres and on sqlite (no gen_random_uuid()).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
