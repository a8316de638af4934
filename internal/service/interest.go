package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"penzi/internal/model"
	"penzi/internal/repository"
)

// InterestService runs the DESCRIBE → notify → YES/NO → feedback workflow.
// Contact details are only ever disclosed after a YES; the notification to
// the target never carries the requester's phone number.
type InterestService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	interests *repository.InterestRepository
	sender    *Sender
}

func NewInterestService(db *gorm.DB, users *repository.UserRepository, interests *repository.InterestRepository, sender *Sender) *InterestService {
	return &InterestService{db: db, users: users, interests: interests, sender: sender}
}

// Describe builds the target's profile view for the requester and, when no
// interest is already open for this ordered pair, registers a new one and
// notifies the target inside a single transaction.
func (s *InterestService) Describe(ctx context.Context, user, target *model.User, now time.Time) (Outcome, error) {
	if target.ID == user.ID {
		return s.reply(ctx, user, "You cannot describe yourself!", "interest_error")
	}
	if !target.IsRegistrationComplete() {
		return s.reply(ctx, user, "User profile is not complete yet.", "interest_error")
	}

	compatibility := CompatibilityScore(user, target)
	profile := profileSummary(target, compatibility)

	existing, err := s.interests.OpenBetween(ctx, user.ID, target.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Outcome{}, err
	}

	if existing != nil {
		remaining := int((model.ResponseWindow - now.Sub(existing.CreatedAt)).Hours())
		if remaining < 0 {
			remaining = 0
		}
		status := fmt.Sprintf("PENDING: Interest already sent to %s. Waiting for response (%dh remaining). Be patient!", target.Name, remaining)
		return s.reply(ctx, user, profile+" "+status, "profile_sent")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		interests := s.interests.WithTx(tx)
		interest := &model.UserInterest{
			InterestedUserID: user.ID,
			TargetUserID:     target.ID,
			InterestType:     "describe",
		}
		if err := interests.Create(ctx, interest); err != nil {
			return err
		}
		notification := interestNotification(user, target, compatibility)
		if _, err := s.sender.WithTx(tx).Send(ctx, target.PhoneNumber, notification, "interest_notification", &target.ID); err != nil {
			return err
		}
		interest.NotificationSent = true
		interest.NotificationSentAt = &now
		return interests.Save(ctx, interest)
	})
	if err != nil {
		return Outcome{}, err
	}
	log.Printf("[info] interest created from=%d to=%d", user.ID, target.ID)

	status := fmt.Sprintf("SUCCESS! %s has been notified about your interest. You'll get notified when they respond (YES/NO). Try 'NEXT' for more matches!", target.Name)
	return s.reply(ctx, user, profile+" "+status, "profile_sent")
}

// Respond applies a YES/NO answer to the newest interest still inside the
// 24-hour window. The lookup and the mutation run in one transaction so two
// rapid answers from the same number cannot double-consume an interest.
func (s *InterestService) Respond(ctx context.Context, user *model.User, response string, now time.Time) (Outcome, error) {
	if response != model.ResponseYes && response != model.ResponseNo {
		return s.reply(ctx, user, "Invalid response. Reply with 'YES' or 'NO' only.", "interest_error")
	}

	var confirmation string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		interests := s.interests.WithTx(tx)

		pending, err := interests.LatestRespondable(ctx, user.ID, now)
		if err != nil {
			return err
		}

		interested, err := s.users.WithTx(tx).FindByID(ctx, pending.InterestedUserID)
		if err != nil {
			return fmt.Errorf("load interest sender: %w", err)
		}

		pending.ResponseReceived = true
		pending.Response = response
		pending.ResponseAt = &now

		var feedback string
		if response == model.ResponseYes {
			feedback = acceptFeedback(interested, user)
			confirmation = acceptConfirmation(interested, user)
		} else {
			feedback = declineFeedback(interested, user)
			confirmation = declineConfirmation(interested, user)
		}

		sender := s.sender.WithTx(tx)
		if _, err := sender.Send(ctx, interested.PhoneNumber, feedback, feedbackType(response), &interested.ID); err != nil {
			return err
		}
		pending.FeedbackSent = true
		if err := interests.Save(ctx, pending); err != nil {
			return err
		}
		_, err = sender.Send(ctx, user.PhoneNumber, confirmation, "response_confirmed", &user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.noPendingReply(ctx, user, now)
		}
		return Outcome{}, err
	}
	return Outcome{Reply: confirmation, Type: "response_confirmed"}, nil
}

// noPendingReply distinguishes an interest that was already answered from
// one that never existed or has expired.
func (s *InterestService) noPendingReply(ctx context.Context, user *model.User, now time.Time) (Outcome, error) {
	latest, err := s.interests.LatestNotified(ctx, user.ID)
	if err == nil && latest.ResponseReceived && now.Sub(latest.CreatedAt) <= model.ResponseWindow {
		return s.reply(ctx, user, "You have already responded to this interest.", "interest_error")
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Outcome{}, err
	}
	return s.reply(ctx, user, "No pending interest found or it may have expired.", "interest_error")
}

// SweepExpired sends the one-time expiry notice for interests past the
// response window. The per-row flag makes re-running the sweep a no-op.
func (s *InterestService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.interests.ExpiredUnnotified(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range expired {
		interest := &expired[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			interested, err := s.users.WithTx(tx).FindByID(ctx, interest.InterestedUserID)
			if err != nil {
				return fmt.Errorf("load interest sender: %w", err)
			}
			target, err := s.users.WithTx(tx).FindByID(ctx, interest.TargetUserID)
			if err != nil {
				return fmt.Errorf("load interest target: %w", err)
			}
			notice := expiryNotice(target)
			if _, err := s.sender.WithTx(tx).Send(ctx, interested.PhoneNumber, notice, "interest_expired", &interested.ID); err != nil {
				return err
			}
			interest.ExpiredNotification = true
			return s.interests.WithTx(tx).Save(ctx, interest)
		})
		if err != nil {
			log.Printf("expire interest %d: %v", interest.ID, err)
			continue
		}
		processed++
	}
	if processed > 0 {
		log.Printf("[info] expired interests processed count=%d", processed)
	}
	return processed, nil
}

func (s *InterestService) reply(ctx context.Context, user *model.User, text, msgType string) (Outcome, error) {
	if _, err := s.sender.Send(ctx, user.PhoneNumber, text, msgType, &user.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: text, Type: msgType}, nil
}

func feedbackType(response string) string {
	if response == model.ResponseYes {
		return "match_success"
	}
	return "interest_declined"
}

// profileSummary renders the target profile shown to the requester.
func profileSummary(target *model.User, compatibility int) string {
	parts := []string{
		fmt.Sprintf("%s's Profile:", target.Name),
		fmt.Sprintf("%dyr %s, %s, %s", target.Age, target.Gender, target.Town, target.County),
	}
	if target.LevelOfEducation != "" && target.Profession != "" {
		parts = append(parts, fmt.Sprintf("Education: %s | Profession: %s", target.LevelOfEducation, target.Profession))
	} else if target.LevelOfEducation != "" {
		parts = append(parts, fmt.Sprintf("Education: %s", target.LevelOfEducation))
	} else if target.Profession != "" {
		parts = append(parts, fmt.Sprintf("Profession: %s", target.Profession))
	}
	var statusReligion []string
	if target.MaritalStatus != "" {
		statusReligion = append(statusReligion, fmt.Sprintf("Status: %s", target.MaritalStatus))
	}
	if target.Religion != "" {
		statusReligion = append(statusReligion, fmt.Sprintf("Religion: %s", target.Religion))
	}
	if len(statusReligion) > 0 {
		parts = append(parts, strings.Join(statusReligion, " | "))
	}
	if target.Ethnicity != "" {
		parts = append(parts, fmt.Sprintf("Ethnicity: %s", target.Ethnicity))
	}
	if target.SelfDescription != "" {
		parts = append(parts, fmt.Sprintf("About: %s", truncate(target.SelfDescription, 80)))
	}
	parts = append(parts, fmt.Sprintf("Compatibility: %d%%", compatibility))
	return strings.Join(parts, " ")
}

// interestNotification is what the target receives. It deliberately carries
// no contact details for the requester.
func interestNotification(user, target *model.User, compatibility int) string {
	parts := []string{
		"PENZI INTEREST ALERT!",
		fmt.Sprintf("Hi %s!", target.Name),
		fmt.Sprintf("%s (%dyr %s from %s) is interested in you!", user.Name, user.Age, user.Gender, user.Town),
	}
	if user.Profession != "" {
		parts = append(parts, fmt.Sprintf("Profession: %s", user.Profession))
	}
	if user.LevelOfEducation != "" {
		parts = append(parts, fmt.Sprintf("Education: %s", user.LevelOfEducation))
	}
	if user.MaritalStatus != "" {
		parts = append(parts, fmt.Sprintf("Status: %s", user.MaritalStatus))
	}
	if user.SelfDescription != "" {
		parts = append(parts, fmt.Sprintf("About: %s", truncate(user.SelfDescription, 50)))
	}
	parts = append(parts,
		fmt.Sprintf("Compatibility: %d%%", compatibility),
		"Reply YES if interested, NO to decline. Expires in 24hrs.",
	)
	return strings.Join(parts, " ")
}

func acceptFeedback(interested, responder *model.User) string {
	return strings.Join([]string{
		"GREAT NEWS!",
		fmt.Sprintf("Hi %s!", interested.Name),
		fmt.Sprintf("%s said YES to your interest!", responder.Name),
		fmt.Sprintf("Contact details: %s", responder.PhoneNumber),
		fmt.Sprintf("You can now contact %s directly!", responder.Name),
		"Good luck with your connection!",
		"TIP: Be respectful and start with a friendly introduction.",
	}, " ")
}

func acceptConfirmation(interested, responder *model.User) string {
	return strings.Join([]string{
		"RESPONSE SENT!",
		fmt.Sprintf("Hi %s!", responder.Name),
		fmt.Sprintf("You said YES to %s!", interested.Name),
		fmt.Sprintf("%s has been notified and given your contact details.", interested.Name),
		fmt.Sprintf("Expect to hear from %s soon!", interested.Name),
		"Wishing you both the best!",
	}, " ")
}

func declineFeedback(interested, responder *model.User) string {
	return strings.Join([]string{
		"Interest Update:",
		fmt.Sprintf("Hi %s!", interested.Name),
		fmt.Sprintf("%s declined your interest.", responder.Name),
		"Don't worry! There are many other amazing people waiting to meet you.",
		"Try using 'NEXT' to discover more matches!",
	}, " ")
}

func declineConfirmation(interested, responder *model.User) string {
	return strings.Join([]string{
		"RESPONSE SENT!",
		fmt.Sprintf("Hi %s!", responder.Name),
		fmt.Sprintf("You declined %s's interest.", interested.Name),
		"They have been notified. Keep exploring! Use 'NEXT' to find your perfect match.",
	}, " ")
}

func expiryNotice(target *model.User) string {
	return strings.Join([]string{
		"INTEREST EXPIRED",
		fmt.Sprintf("Your interest in %s has expired (no response after 24 hours).", target.Name),
		"DON'T GIVE UP!",
		"Try 'NEXT' for more matches",
		"Search new areas with 'match#age#town'",
		"Your perfect match is still out there!",
	}, " ")
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
