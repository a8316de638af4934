package service

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"penzi/internal/model"
	"penzi/internal/phone"
	"penzi/internal/repository"
)

// Outcome is the reply produced for one inbound message. Every handler ends
// with exactly one of these going back to the sender.
type Outcome struct {
	Reply string
	Type  string
}

// Delivery acknowledges one outbound message. Parts is the 160-character
// segment count the gateway would split the body into.
type Delivery struct {
	ID    string
	To    string
	Parts int
}

// Sender logs and "delivers" outbound SMS. There is no carrier integration;
// the contract that matters is that the outgoing row is durably written
// before success is reported, because workflow flags like notification_sent
// are only true if the log row exists.
type Sender struct {
	messages  *repository.MessageRepository
	shortCode string
}

func NewSender(messages *repository.MessageRepository, shortCode string) *Sender {
	return &Sender{messages: messages, shortCode: shortCode}
}

// WithTx returns a copy whose log writes join the given transaction, so a
// rolled-back workflow never leaves a phantom outbound record.
func (s *Sender) WithTx(tx *gorm.DB) *Sender {
	return &Sender{messages: s.messages.WithTx(tx), shortCode: s.shortCode}
}

func (s *Sender) ShortCode() string {
	return s.shortCode
}

// Send normalizes the destination, writes the outgoing audit row and returns
// a delivery ack. Failure propagates to the caller so the surrounding
// transaction can roll back.
func (s *Sender) Send(ctx context.Context, toPhone, body, messageType string, relatedUserID *uint) (Delivery, error) {
	to := phone.Audit(strings.TrimSpace(toPhone))
	if canonical, err := phone.Normalize(toPhone); err == nil {
		to = phone.Audit(canonical)
	}

	msg := &model.SmsMessage{
		FromPhone:     s.shortCode,
		ToPhone:       to,
		MessageBody:   body,
		Direction:     model.DirectionOutgoing,
		MessageType:   messageType,
		Status:        "sent",
		RelatedUserID: relatedUserID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return Delivery{}, err
	}

	parts := (len(body) + 159) / 160
	if parts == 0 {
		parts = 1
	}
	log.Printf("[info] sms sent to=%s type=%s parts=%d", to, messageType, parts)
	return Delivery{ID: uuid.NewString(), To: to, Parts: parts}, nil
}
