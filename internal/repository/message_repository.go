package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"penzi/internal/model"
)

// MessageRepository stores the SMS audit log.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.SmsMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("log sms: %w", err)
	}
	return nil
}

// Conversation returns every message to or from the given audit-form phone,
// oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, auditPhone string) ([]model.SmsMessage, error) {
	var msgs []model.SmsMessage
	if err := r.db.WithContext(ctx).
		Where("from_phone = ? OR to_phone = ?", auditPhone, auditPhone).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return msgs, nil
}

// ListByPhone returns the newest messages involving the given audit-form
// phone in either direction.
func (r *MessageRepository) ListByPhone(ctx context.Context, auditPhone string, limit int) ([]model.SmsMessage, error) {
	var msgs []model.SmsMessage
	if err := r.db.WithContext(ctx).
		Where("from_phone = ? OR to_phone = ?", auditPhone, auditPhone).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list messages by phone: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]model.SmsMessage, error) {
	var msgs []model.SmsMessage
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepository) CountByDirection(ctx context.Context, direction string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.SmsMessage{}).
		Where("direction = ?", direction).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}
