package domain

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name      string `gorm:"not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"` // bcrypt hash, never the plain text
	AvatarURL string
	Tasks     []Task `gorm:"constraint:OnDelete:CASCADE"`
}
