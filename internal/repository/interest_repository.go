package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"penzi/internal/model"
)

// InterestRepository manages directed interest edges.
type InterestRepository struct {
	db *gorm.DB
}

func NewInterestRepository(db *gorm.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

func (r *InterestRepository) WithTx(tx *gorm.DB) *InterestRepository {
	return &InterestRepository{db: tx}
}

func (r *InterestRepository) Create(ctx context.Context, interest *model.UserInterest) error {
	if err := r.db.WithContext(ctx).Create(interest).Error; err != nil {
		return fmt.Errorf("create interest: %w", err)
	}
	return nil
}

func (r *InterestRepository) Save(ctx context.Context, interest *model.UserInterest) error {
	if err := r.db.WithContext(ctx).Save(interest).Error; err != nil {
		return fmt.Errorf("save interest: %w", err)
	}
	return nil
}

// OpenBetween finds an open interest for the ordered pair. "Open" is the
// exact three-phase predicate: not yet notified, notified and awaiting a
// response, or responded with feedback still undelivered. Narrowing it would
// silently change duplicate prevention.
func (r *InterestRepository) OpenBetween(ctx context.Context, interestedID, targetID uint) (*model.UserInterest, error) {
	var interest model.UserInterest
	err := r.db.WithContext(ctx).
		Where("interested_user_id = ? AND target_user_id = ?", interestedID, targetID).
		Where(r.db.
			Where("notification_sent = ?", false).
			Or("notification_sent = ? AND response_received = ?", true, false).
			Or("response_received = ? AND feedback_sent = ?", true, false)).
		Order("created_at DESC, id DESC").
		First(&interest).Error
	if err != nil {
		return nil, err
	}
	return &interest, nil
}

// LatestRespondable returns the newest interest the target may still answer:
// notified, unresponded, created within the response window.
func (r *InterestRepository) LatestRespondable(ctx context.Context, targetID uint, now time.Time) (*model.UserInterest, error) {
	cutoff := now.Add(-model.ResponseWindow)
	var interest model.UserInterest
	err := r.db.WithContext(ctx).
		Where("target_user_id = ?", targetID).
		Where("notification_sent = ? AND response_received = ?", true, false).
		Where("created_at >= ?", cutoff).
		Order("created_at DESC, id DESC").
		First(&interest).Error
	if err != nil {
		return nil, err
	}
	return &interest, nil
}

// LatestNotified returns the newest notified interest for the target without
// the window or response filters, used to tell "already responded" apart from
// "nothing pending".
func (r *InterestRepository) LatestNotified(ctx context.Context, targetID uint) (*model.UserInterest, error) {
	var interest model.UserInterest
	err := r.db.WithContext(ctx).
		Where("target_user_id = ? AND notification_sent = ?", targetID, true).
		Order("created_at DESC, id DESC").
		First(&interest).Error
	if err != nil {
		return nil, err
	}
	return &interest, nil
}

// ExpiredUnnotified lists interests past the response window whose sender has
// not yet been told. The expired flag keeps the sweep idempotent per row.
func (r *InterestRepository) ExpiredUnnotified(ctx context.Context, now time.Time) ([]model.UserInterest, error) {
	cutoff := now.Add(-model.ResponseWindow)
	var interests []model.UserInterest
	if err := r.db.WithContext(ctx).
		Where("notification_sent = ? AND response_received = ?", true, false).
		Where("created_at <= ?", cutoff).
		Where("expired_notification_sent = ?", false).
		Find(&interests).Error; err != nil {
		return nil, fmt.Errorf("list expired interests: %w", err)
	}
	return interests, nil
}

// ListSentByUser returns the user's most recent outgoing interests with
// target profiles preloaded, newest first.
func (r *InterestRepository) ListSentByUser(ctx context.Context, userID uint, limit int) ([]model.UserInterest, error) {
	var interests []model.UserInterest
	if err := r.db.WithContext(ctx).
		Preload("TargetUser").
		Where("interested_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&interests).Error; err != nil {
		return nil, fmt.Errorf("list sent interests: %w", err)
	}
	return interests, nil
}

// Stats aggregates the per-user interest counters shown by STATS.
type InterestStats struct {
	Sent              int64
	Received          int64
	PositiveResponses int64
}

func (r *InterestRepository) StatsForUser(ctx context.Context, userID uint) (InterestStats, error) {
	var stats InterestStats
	db := r.db.WithContext(ctx).Model(&model.UserInterest{})
	if err := db.Session(&gorm.Session{}).Where("interested_user_id = ?", userID).Count(&stats.Sent).Error; err != nil {
		return stats, fmt.Errorf("count sent interests: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("target_user_id = ?", userID).Count(&stats.Received).Error; err != nil {
		return stats, fmt.Errorf("count received interests: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("interested_user_id = ? AND response = ?", userID, model.ResponseYes).Count(&stats.PositiveResponses).Error; err != nil {
		return stats, fmt.Errorf("count positive responses: %w", err)
	}
	return stats, nil
}
