package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"penzi/internal/model"
)

// MatchRepository manages match requests and their frozen candidate sets.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// CreateRequestWithMatches persists a request together with its eagerly
// materialized, positioned candidate rows in one transaction. The candidate
// set is frozen at search time on purpose: later profile changes never alter
// the results of an existing search.
func (r *MatchRepository) CreateRequestWithMatches(ctx context.Context, request *model.MatchRequest, candidates []model.User) ([]model.Match, error) {
	var matches []model.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("create match request: %w", err)
		}
		matches = make([]model.Match, 0, len(candidates))
		for i := range candidates {
			matches = append(matches, model.Match{
				RequestID:     request.ID,
				RequesterID:   request.UserID,
				MatchedUserID: candidates[i].ID,
				Position:      i + 1,
			})
		}
		if len(matches) > 0 {
			if err := tx.Create(&matches).Error; err != nil {
				return fmt.Errorf("create matches: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// LatestActiveRequest returns the user's most recent active search.
func (r *MatchRepository) LatestActiveRequest(ctx context.Context, userID uint) (*model.MatchRequest, error) {
	var request model.MatchRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.RequestStatusActive).
		Order("created_at DESC, id DESC").
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// NextUnsent returns the next batch of undelivered matches ordered by
// position, with matched profiles preloaded.
func (r *MatchRepository) NextUnsent(ctx context.Context, requestID uint, limit int) ([]model.Match, error) {
	var matches []model.Match
	if err := r.db.WithContext(ctx).
		Preload("MatchedUser").
		Where("request_id = ? AND is_sent = ?", requestID, false).
		Order("position ASC").
		Limit(limit).
		Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("next unsent matches: %w", err)
	}
	return matches, nil
}

func (r *MatchRepository) CountByRequest(ctx context.Context, requestID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Match{}).
		Where("request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return count, nil
}

// MarkSent flips is_sent for the given matches. The flag is monotonic: rows
// already sent stay sent.
func (r *MatchRepository) MarkSent(ctx context.Context, matchIDs []uint) error {
	if len(matchIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Match{}).
		Where("id IN ?", matchIDs).
		Update("is_sent", true).Error; err != nil {
		return fmt.Errorf("mark matches sent: %w", err)
	}
	return nil
}

func (r *MatchRepository) CountRequestsByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.MatchRequest{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count match requests: %w", err)
	}
	return count, nil
}

func (r *MatchRepository) CountMatchesForRequester(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Match{}).
		Where("requester_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count matches for requester: %w", err)
	}
	return count, nil
}
