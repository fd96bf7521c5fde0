package models

import "time"

// Account is the authentication subject. Exactly one Profile shares its ID.
type Account struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"size:320;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AllowedEmail is an allow-list entry permitting signup. Email is stored lowercased.
type AllowedEmail struct {
	Email     string    `gorm:"primaryKey;size:320" json:"email" yaml:"email"`
	Note      string    `gorm:"size:255" json:"note,omitempty" yaml:"note,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}
