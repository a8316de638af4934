package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"penzi/internal/model"
	"penzi/internal/phone"
	"penzi/internal/repository"
)

// testEnv wires the full service stack onto a private in-memory database.
type testEnv struct {
	db           *gorm.DB
	users        *repository.UserRepository
	messages     *repository.MessageRepository
	matches      *repository.MatchRepository
	interests    *repository.InterestRepository
	sender       *Sender
	registration *RegistrationService
	matching     *MatchService
	interest     *InterestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", "#", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive for the whole
	// test.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.MatchRequest{},
		&model.Match{},
		&model.UserInterest{},
		&model.SmsMessage{},
	))

	users := repository.NewUserRepository(db)
	messages := repository.NewMessageRepository(db)
	matches := repository.NewMatchRepository(db)
	interests := repository.NewInterestRepository(db)
	sender := NewSender(messages, "22141")

	return &testEnv{
		db:           db,
		users:        users,
		messages:     messages,
		matches:      matches,
		interests:    interests,
		sender:       sender,
		registration: NewRegistrationService(db, users, sender),
		matching:     NewMatchService(db, users, matches, sender),
		interest:     NewInterestService(db, users, interests, sender),
	}
}

// seedUser creates a fully registered active profile, optionally mutated.
func (e *testEnv) seedUser(t *testing.T, phoneNumber string, mutate func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{
		PhoneNumber:       phoneNumber,
		Name:              "Jane Doe",
		Age:               25,
		Gender:            model.GenderFemale,
		County:            "Nairobi",
		Town:              "Imara",
		LevelOfEducation:  "Graduate",
		Profession:        "IT",
		MaritalStatus:     "Single",
		Religion:          "Christian",
		Ethnicity:         "Kenyan",
		SelfDescription:   "friendly and outgoing",
		IsActivated:       true,
		IsActive:          true,
		RegistrationStage: model.StageCompleted,
	}
	if mutate != nil {
		mutate(u)
	}
	// GORM skips zero-value fields that carry a default tag on Create, so the
	// column default (true) would override a seeded false; Create also writes
	// the returned default back into the struct.
	wantActive := u.IsActive
	require.NoError(t, e.db.Create(u).Error)
	if !wantActive {
		require.NoError(t, e.db.Model(u).Update("is_active", false).Error)
		u.IsActive = false
	}
	return u
}

// outgoingTo returns every outbound message logged for the given canonical
// phone, oldest first.
func (e *testEnv) outgoingTo(t *testing.T, canonicalPhone string) []model.SmsMessage {
	t.Helper()
	var msgs []model.SmsMessage
	require.NoError(t, e.db.
		Where("direction = ? AND to_phone = ?", model.DirectionOutgoing, phone.Audit(canonicalPhone)).
		Order("id ASC").
		Find(&msgs).Error)
	return msgs
}

func (e *testEnv) reloadUser(t *testing.T, id uint) *model.User {
	t.Helper()
	var u model.User
	require.NoError(t, e.db.First(&u, id).Error)
	return &u
}
