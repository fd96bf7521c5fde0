package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// BeforeCreate assigns a fresh id when none was set.
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// BeforeCreate assigns a fresh id when none was set.
func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// BeforeCreate assigns a fresh id when none was set.
func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// BeforeCreate assigns a fresh id when none was set.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
