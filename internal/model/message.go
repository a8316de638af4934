package model

import "time"

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// SmsMessage is one audit row per message in either direction. Phone numbers
// are stored in audit form (canonical without the leading +).
type SmsMessage struct {
	ID            uint   `gorm:"primaryKey"`
	FromPhone     string `gorm:"size:15"`
	ToPhone       string `gorm:"size:15;not null"`
	MessageBody   string `gorm:"not null"`
	Direction     string `gorm:"size:10;not null;index"`
	MessageType   string `gorm:"size:50"`
	Status        string `gorm:"size:20;default:processed"`
	RelatedUserID *uint  `gorm:"index"`
	CreatedAt     time.Time
}
