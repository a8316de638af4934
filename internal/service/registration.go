package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"penzi/internal/model"
	"penzi/internal/phone"
	"penzi/internal/repository"
)

// RegistrationService drives the onboarding state machine. Each transition
// has its own handler that validates its own fields; nothing advances a stage
// generically.
type RegistrationService struct {
	db     *gorm.DB
	users  *repository.UserRepository
	sender *Sender
}

func NewRegistrationService(db *gorm.DB, users *repository.UserRepository, sender *Sender) *RegistrationService {
	return &RegistrationService{db: db, users: users, sender: sender}
}

// Activate handles PENZI. It is idempotent and never rejects: a fresh number
// gets a user row, a completed profile gets reactivated, anyone mid-flow gets
// told what to do next.
func (s *RegistrationService) Activate(ctx context.Context, rawPhone string) (Outcome, error) {
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return s.reply(ctx, rawPhone, "Invalid phone number format.", "error", nil)
	}

	user, err := s.users.FindByPhone(ctx, canonical)
	if err != nil && err != gorm.ErrRecordNotFound {
		return Outcome{}, err
	}

	if user != nil && user.IsRegistrationComplete() {
		reply := fmt.Sprintf("Welcome back %s! You can now search for a MPENZI. Try: match#25-30#Nairobi", user.Name)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			user.IsActive = true
			if err := s.users.WithTx(tx).Save(ctx, user); err != nil {
				return err
			}
			_, err := s.sender.WithTx(tx).Send(ctx, user.PhoneNumber, reply, "reactivation", &user.ID)
			return err
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Reply: reply, Type: "reactivation"}, nil
	}

	if user != nil {
		// Mid-registration: repeat the instruction for the current stage
		// without touching progress.
		reply, err := s.stageGuide(ctx, user)
		if err != nil {
			return Outcome{}, err
		}
		return s.reply(ctx, user.PhoneNumber, reply, "activation_guide", &user.ID)
	}

	user = &model.User{
		PhoneNumber:       canonical,
		IsActivated:       true,
		IsActive:          true,
		RegistrationStage: model.StageActivated,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Outcome{}, err
	}
	log.Printf("[info] user activated phone=%s id=%d", phone.Audit(canonical), user.ID)

	reply, err := s.welcome(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return s.reply(ctx, canonical, reply, "activation_success", &user.ID)
}

// ApplyStart handles start#name#age#gender#county#town for an activated user.
func (s *RegistrationService) ApplyStart(ctx context.Context, user *model.User, name, ageRaw, genderRaw, county, town string) (Outcome, error) {
	name = strings.TrimSpace(name)
	county = strings.TrimSpace(county)
	town = strings.TrimSpace(town)
	if name == "" || ageRaw == "" || genderRaw == "" || county == "" || town == "" {
		return s.reply(ctx, user.PhoneNumber, "All fields are required. Please try again.", "registration_error", &user.ID)
	}

	age, err := strconv.Atoi(strings.TrimSpace(ageRaw))
	if err != nil {
		return s.reply(ctx, user.PhoneNumber, "Invalid age format.", "registration_error", &user.ID)
	}
	if age < 18 {
		return s.reply(ctx, user.PhoneNumber, "You must be at least 18 years old.", "registration_error", &user.ID)
	}
	if age > 100 {
		return s.reply(ctx, user.PhoneNumber, "Age must be between 18 and 100.", "registration_error", &user.ID)
	}

	gender, err := model.ParseGender(genderRaw)
	if err != nil {
		return s.reply(ctx, user.PhoneNumber, "Gender must be Male or Female.", "registration_error", &user.ID)
	}

	if !user.IsActivated {
		return s.reply(ctx, user.PhoneNumber, "Please send PENZI to 22141 first to activate the service.", "registration_error", &user.ID)
	}
	if !user.RegistrationStage.CanAdvance(model.StageInitial) {
		reply := "Invalid registration stage. " + user.RegistrationStage.NextStep()
		return s.reply(ctx, user.PhoneNumber, reply, "registration_error", &user.ID)
	}

	reply := fmt.Sprintf("Your profile has been created successfully %s. SMS: details#levelOfEducation#profession#maritalStatus#religion#ethnicity to 22141 Example: details#Graduate#IT#Divorced#Christian#Kenyan", titleCase(name))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.Name = titleCase(name)
		user.Age = age
		user.Gender = gender
		user.County = titleCase(county)
		user.Town = titleCase(town)
		user.RegistrationStage = model.StageInitial
		if err := s.users.WithTx(tx).Save(ctx, user); err != nil {
			return err
		}
		_, err := s.sender.WithTx(tx).Send(ctx, user.PhoneNumber, reply, "registration_initial", &user.ID)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: reply, Type: "registration_initial"}, nil
}

// ApplyDetails handles details#education#profession#marital#religion#ethnicity.
// The stage gate is strict equality so a replayed message cannot corrupt a
// profile that has already moved on.
func (s *RegistrationService) ApplyDetails(ctx context.Context, user *model.User, education, profession, marital, religion, ethnicity string) (Outcome, error) {
	if user.RegistrationStage != model.StageInitial {
		reply := "Invalid registration stage. " + user.RegistrationStage.NextStep()
		return s.reply(ctx, user.PhoneNumber, reply, "registration_error", &user.ID)
	}

	fields := []string{
		strings.TrimSpace(education),
		strings.TrimSpace(profession),
		strings.TrimSpace(marital),
		strings.TrimSpace(religion),
		strings.TrimSpace(ethnicity),
	}
	for _, f := range fields {
		if len(f) < 2 {
			return s.reply(ctx, user.PhoneNumber, "All fields are required and must be at least 2 characters long.", "registration_error", &user.ID)
		}
	}

	reply := "Details received! This is the last stage of registration. SMS a brief description of yourself to 22141 starting with the word: MYSELF Example: MYSELF tall, dark and handsome"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.LevelOfEducation = titleCase(fields[0])
		user.Profession = titleCase(fields[1])
		user.MaritalStatus = titleCase(fields[2])
		user.Religion = titleCase(fields[3])
		user.Ethnicity = titleCase(fields[4])
		user.RegistrationStage = model.StageDetailsPending
		if err := s.users.WithTx(tx).Save(ctx, user); err != nil {
			return err
		}
		_, err := s.sender.WithTx(tx).Send(ctx, user.PhoneNumber, reply, "registration_details_success", &user.ID)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: reply, Type: "registration_details_success"}, nil
}

// ApplyDescription handles the MYSELF free-text description and completes
// registration.
func (s *RegistrationService) ApplyDescription(ctx context.Context, user *model.User, description string) (Outcome, error) {
	if user.RegistrationStage != model.StageDetailsPending {
		reply := "Complete previous registration steps first. " + user.RegistrationStage.NextStep()
		return s.reply(ctx, user.PhoneNumber, reply, "registration_error", &user.ID)
	}

	description = strings.TrimSpace(description)
	if len(description) < 3 {
		return s.reply(ctx, user.PhoneNumber, "Please provide a description.", "registration_error", &user.ID)
	}

	reply := fmt.Sprintf("Great job %s! Your profile description is complete. Now add photos to make your profile stand out! SMS 'IMAGES' to 22141 for photo upload instructions, or start matching with: match#age#town", user.Name)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.SelfDescription = description
		user.RegistrationStage = model.StageCompleted
		if err := s.users.WithTx(tx).Save(ctx, user); err != nil {
			return err
		}
		_, err := s.sender.WithTx(tx).Send(ctx, user.PhoneNumber, reply, "registration_complete", &user.ID)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: reply, Type: "registration_complete"}, nil
}

// Stop soft-disables the account. The stage survives so PENZI can reactivate
// without re-registering.
func (s *RegistrationService) Stop(ctx context.Context, user *model.User) (Outcome, error) {
	who := user.Name
	if who == "" {
		who = "friend"
	}
	reply := fmt.Sprintf("Sorry to see you go %s! Your account has been deactivated. SMS PENZI to 22141 anytime to resume finding matches.", who)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.IsActive = false
		if err := s.users.WithTx(tx).Save(ctx, user); err != nil {
			return err
		}
		_, err := s.sender.WithTx(tx).Send(ctx, user.PhoneNumber, reply, "service_stopped", &user.ID)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: reply, Type: "service_stopped"}, nil
}

func (s *RegistrationService) welcome(ctx context.Context) (string, error) {
	total, err := s.users.CountCompleted(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Welcome to our dating service with %d potential dating partners! To register, SMS: start#name#age#gender#county#town to 22141 Example: start#Michael Morara#22#Male#Nairobi#Imara", total), nil
}

func (s *RegistrationService) stageGuide(ctx context.Context, user *model.User) (string, error) {
	switch user.RegistrationStage {
	case model.StageActivated:
		return s.welcome(ctx)
	case model.StageInitial:
		return fmt.Sprintf("Your profile has been created successfully %s. SMS: details#levelOfEducation#profession#maritalStatus#religion#ethnicity to 22141 Example: details#Graduate#IT#Divorced#Christian#Kenyan", user.Name), nil
	case model.StageDetailsPending, model.StageDescriptionPending:
		return "This is the last stage of registration. SMS a brief description of yourself to 22141 starting with the word: MYSELF Example: MYSELF tall, dark and handsome", nil
	default:
		return fmt.Sprintf("Registration completed successfully %s! To search for a MPENZI, SMS: match#age#town to 22141 Example: match#26-30#Nairobi", user.Name), nil
	}
}

func (s *RegistrationService) reply(ctx context.Context, toPhone, text, msgType string, userID *uint) (Outcome, error) {
	if _, err := s.sender.Send(ctx, toPhone, text, msgType, userID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: text, Type: msgType}, nil
}

// titleCase capitalizes the first letter of every word, the way profile
// fields are stored.
func titleCase(value string) string {
	words := strings.Fields(strings.TrimSpace(value))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
