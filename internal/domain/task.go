package domain

import "gorm.io/gorm"

type Task struct {
	gorm.Model
	Title     string `gorm:"not null"`
	Completed bool   `gorm:"not null;default:false"`
	UserID    uint   `gorm:"not null;index"`
}

// OwnedBy reports whether the task belongs to userID.
func (t *Task) OwnedBy(userID uint) bool {
	return t != nil && t.UserID == userID
}
