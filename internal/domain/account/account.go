package account

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxPhoneLength bounds the free-form phone field
const MaxPhoneLength = 15

// Account is a registered member of the community
type Account struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Username     string     `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"size:254;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Bio          string     `json:"bio" gorm:"type:text"`
	Phone        string     `json:"phone" gorm:"size:15"`
	IsStaff      bool       `json:"is_staff" gorm:"not null;default:false"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate sets a UUID before creating the record
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NewAccount builds an active, non-staff account. The password hash is set
// by the identity store.
func NewAccount(username, email string) *Account {
	return &Account{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

// MarkLogin stamps the last successful authentication
func (a *Account) MarkLogin(at time.Time) {
	a.LastLoginAt = &at
}
