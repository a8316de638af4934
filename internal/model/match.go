package model

import "time"

// MatchRequest is one search issued by a user. Every match# command creates a
// fresh request with its own frozen candidate set.
type MatchRequest struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"index"`
	AgeMin        int    `gorm:"not null"`
	AgeMax        int    `gorm:"not null"`
	PreferredTown string `gorm:"size:100;not null"`
	Status        string `gorm:"size:20;default:active"`
	CreatedAt     time.Time

	Matches []Match `gorm:"foreignKey:RequestID"`
}

const (
	RequestStatusActive    = "active"
	RequestStatusCompleted = "completed"
)

// Match is one positioned candidate inside a request's result set. Positions
// are dense and 1-based; IsSent only ever flips false to true.
type Match struct {
	ID            uint `gorm:"primaryKey"`
	RequestID     uint `gorm:"index"`
	RequesterID   uint `gorm:"index"`
	MatchedUserID uint `gorm:"index"`
	Position      int
	IsSent        bool `gorm:"default:false"`
	CreatedAt     time.Time

	MatchedUser *User `gorm:"foreignKey:MatchedUserID"`
}
