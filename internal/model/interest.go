package model

import "time"

// InterestStatus is derived from the three workflow booleans, never stored.
type InterestStatus string

const (
	InterestPendingNotification InterestStatus = "pending_notification"
	InterestAwaitingResponse    InterestStatus = "awaiting_response"
	InterestPendingFeedback     InterestStatus = "pending_feedback"
	InterestCompleted           InterestStatus = "completed"
)

const (
	ResponseYes = "YES"
	ResponseNo  = "NO"
)

// ResponseWindow is how long the target has to answer YES/NO.
const ResponseWindow = 24 * time.Hour

// UserInterest is a directed interested→target edge created by DESCRIBE.
type UserInterest struct {
	ID               uint   `gorm:"primaryKey"`
	InterestedUserID uint   `gorm:"index;not null"`
	TargetUserID     uint   `gorm:"index;not null"`
	InterestType     string `gorm:"size:20;default:describe"`

	NotificationSent    bool `gorm:"default:false"`
	NotificationSentAt  *time.Time
	ResponseReceived    bool   `gorm:"default:false"`
	Response            string `gorm:"size:10"`
	ResponseAt          *time.Time
	FeedbackSent        bool `gorm:"default:false"`
	ExpiredNotification bool `gorm:"column:expired_notification_sent;default:false"`

	CreatedAt time.Time

	InterestedUser *User `gorm:"foreignKey:InterestedUserID"`
	TargetUser     *User `gorm:"foreignKey:TargetUserID"`
}

// Status derives the lifecycle phase from the workflow booleans.
func (i *UserInterest) Status() InterestStatus {
	switch {
	case !i.NotificationSent:
		return InterestPendingNotification
	case !i.ResponseReceived:
		return InterestAwaitingResponse
	case !i.FeedbackSent:
		return InterestPendingFeedback
	default:
		return InterestCompleted
	}
}

// Expired reports whether the response window has lapsed without an answer.
func (i *UserInterest) Expired(now time.Time) bool {
	return i.NotificationSent && !i.ResponseReceived && now.Sub(i.CreatedAt) > ResponseWindow
}
