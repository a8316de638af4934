package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"penzi/internal/model"
)

// UserRepository handles CRUD for users. Callers pass canonical phone numbers.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, canonicalPhone string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("phone_number = ?", canonicalPhone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CountCompleted returns how many fully registered profiles exist, quoted in
// the activation welcome message.
func (r *UserRepository) CountCompleted(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("registration_stage = ?", model.StageCompleted).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completed users: %w", err)
	}
	return count, nil
}

// FindCandidates runs the deterministic discovery query: opposite gender,
// age in range, town substring match, active completed profiles, requester
// excluded, newest profiles first. Identical inputs give identical ordering,
// which the frozen positioned result set depends on.
func (r *UserRepository) FindCandidates(ctx context.Context, gender model.Gender, ageMin, ageMax int, town string, excludeID uint) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("gender = ?", gender).
		Where("age >= ? AND age <= ?", ageMin, ageMax).
		Where("LOWER(town) LIKE ?", "%"+likePattern(town)+"%").
		Where("is_active = ?", true).
		Where("registration_stage = ?", model.StageCompleted).
		Where("id <> ?", excludeID).
		Order("created_at DESC, id DESC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	return users, nil
}

func likePattern(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
