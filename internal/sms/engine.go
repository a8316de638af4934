// Package sms interprets the free-text command stream coming from the SMS
// gateway. The engine is stateless between messages: every handler reloads
// state from the store, so replayed deliveries fall through the same stage
// and existence checks instead of corrupting anything.
package sms

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"penzi/internal/model"
	"penzi/internal/phone"
	"penzi/internal/repository"
	"penzi/internal/service"
)

// Engine routes one inbound SMS to its handler and guarantees exactly one
// reply to the sender.
type Engine struct {
	users     *repository.UserRepository
	messages  *repository.MessageRepository
	matches   *repository.MatchRepository
	interests *repository.InterestRepository

	sender       *service.Sender
	registration *service.RegistrationService
	matching     *service.MatchService
	interest     *service.InterestService
}

func New(
	users *repository.UserRepository,
	messages *repository.MessageRepository,
	matches *repository.MatchRepository,
	interests *repository.InterestRepository,
	sender *service.Sender,
	registration *service.RegistrationService,
	matching *service.MatchService,
	interest *service.InterestService,
) *Engine {
	return &Engine{
		users:        users,
		messages:     messages,
		matches:      matches,
		interests:    interests,
		sender:       sender,
		registration: registration,
		matching:     matching,
		interest:     interest,
	}
}

// ProcessIncoming logs the inbound message, resolves the sender and
// dispatches on the command keyword. The uppercase copy is used for keyword
// matching only; free text such as names and descriptions keeps its casing.
func (e *Engine) ProcessIncoming(ctx context.Context, fromPhone, body string) (service.Outcome, error) {
	now := time.Now()
	original := strings.TrimSpace(body)
	upper := strings.ToUpper(original)

	if err := e.logInbound(ctx, fromPhone, original); err != nil {
		return service.Outcome{}, err
	}
	log.Printf("[info] sms received from=%s command=%s", phone.Audit(fromPhone), keyword(upper))

	// PENZI is the only command allowed to create a user, so it bypasses
	// the existence check.
	if upper == "PENZI" {
		return e.registration.Activate(ctx, fromPhone)
	}

	user, err := e.lookupUser(ctx, fromPhone)
	if err != nil {
		return service.Outcome{}, err
	}
	if user == nil {
		return e.reply(ctx, fromPhone, "User not found. Please send PENZI to 22141 to activate service first.", "user_not_found", nil)
	}

	switch {
	case strings.HasPrefix(upper, "START#"):
		return e.handleStart(ctx, user, original)
	case strings.HasPrefix(upper, "DETAILS#"):
		return e.handleDetails(ctx, user, original)
	case strings.HasPrefix(upper, "MYSELF"):
		return e.registration.ApplyDescription(ctx, user, original[len("MYSELF"):])
	case strings.HasPrefix(upper, "IMAGES"):
		return e.handleImages(ctx, user)
	case strings.HasPrefix(upper, "MATCH#"):
		return e.handleMatch(ctx, user, original)
	case upper == "NEXT":
		return e.handleNext(ctx, user)
	case strings.HasPrefix(upper, "DESCRIBE"):
		return e.handleDescribe(ctx, user, original, now)
	case upper == model.ResponseYes, upper == model.ResponseNo:
		return e.interest.Respond(ctx, user, upper, now)
	case upper == "STOP":
		return e.registration.Stop(ctx, user)
	case upper == "STATS":
		return e.handleStats(ctx, user)
	case upper == "HISTORY":
		return e.handleHistory(ctx, user)
	default:
		return e.handleUnknown(ctx, user)
	}
}

func (e *Engine) handleStart(ctx context.Context, user *model.User, original string) (service.Outcome, error) {
	parts := strings.Split(original, "#")
	if len(parts) != 6 {
		return e.reply(ctx, user.PhoneNumber, "Invalid format. Use: start#name#age#gender#county#town", "registration_error", &user.ID)
	}
	return e.registration.ApplyStart(ctx, user, parts[1], parts[2], parts[3], parts[4], parts[5])
}

func (e *Engine) handleDetails(ctx context.Context, user *model.User, original string) (service.Outcome, error) {
	parts := strings.Split(original, "#")
	if len(parts) != 6 {
		return e.reply(ctx, user.PhoneNumber, "Invalid format. Use: details#education#profession#marital#religion#ethnicity", "registration_error", &user.ID)
	}
	return e.registration.ApplyDetails(ctx, user, parts[1], parts[2], parts[3], parts[4], parts[5])
}

func (e *Engine) handleMatch(ctx context.Context, user *model.User, original string) (service.Outcome, error) {
	if !user.IsRegistrationComplete() {
		return e.reply(ctx, user.PhoneNumber, "Complete registration first.", "match_error", &user.ID)
	}

	parts := strings.Split(original, "#")
	if len(parts) != 3 {
		return e.reply(ctx, user.PhoneNumber, "Invalid format. Use: match#age#town", "match_error", &user.ID)
	}
	ageMin, ageMax, ok := parseAgeRange(parts[1])
	town := strings.TrimSpace(parts[2])
	if !ok || town == "" {
		return e.reply(ctx, user.PhoneNumber, "Invalid format. Use: match#age#town", "match_error", &user.ID)
	}
	return e.matching.HandleRequest(ctx, user, ageMin, ageMax, town)
}

func (e *Engine) handleNext(ctx context.Context, user *model.User) (service.Outcome, error) {
	if !user.IsRegistrationComplete() {
		return e.reply(ctx, user.PhoneNumber, "Complete registration first.", "match_error", &user.ID)
	}
	return e.matching.HandleNext(ctx, user)
}

func (e *Engine) handleDescribe(ctx context.Context, user *model.User, original string, now time.Time) (service.Outcome, error) {
	fields := strings.Fields(original)
	if len(fields) != 2 {
		return e.reply(ctx, user.PhoneNumber, "Invalid format. Use: DESCRIBE 0701234567", "interest_error", &user.ID)
	}

	canonical, err := phone.Normalize(fields[1])
	if err != nil {
		return e.reply(ctx, user.PhoneNumber, "User not found or not registered.", "interest_error", &user.ID)
	}
	target, err := e.users.FindByPhone(ctx, canonical)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e.reply(ctx, user.PhoneNumber, "User not found or not registered.", "interest_error", &user.ID)
		}
		return service.Outcome{}, err
	}
	return e.interest.Describe(ctx, user, target, now)
}

// lookupUser resolves the sender to a profile, tolerating the gateway's phone
// format variants. An unparseable number is treated as no user.
func (e *Engine) lookupUser(ctx context.Context, fromPhone string) (*model.User, error) {
	canonical, err := phone.Normalize(fromPhone)
	if err != nil {
		return nil, nil
	}
	user, err := e.users.FindByPhone(ctx, canonical)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// logInbound writes the audit row before any dispatch happens, so even a
// failing command leaves its trace.
func (e *Engine) logInbound(ctx context.Context, fromPhone, body string) error {
	from := phone.Audit(strings.TrimSpace(fromPhone))
	if canonical, err := phone.Normalize(fromPhone); err == nil {
		from = phone.Audit(canonical)
	}
	return e.messages.Create(ctx, &model.SmsMessage{
		FromPhone:   from,
		ToPhone:     e.sender.ShortCode(),
		MessageBody: body,
		Direction:   model.DirectionIncoming,
	})
}

func (e *Engine) reply(ctx context.Context, toPhone, text, msgType string, userID *uint) (service.Outcome, error) {
	if _, err := e.sender.Send(ctx, toPhone, text, msgType, userID); err != nil {
		return service.Outcome{}, err
	}
	return service.Outcome{Reply: text, Type: msgType}, nil
}

// parseAgeRange accepts "26" or "26-30".
func parseAgeRange(raw string) (int, int, bool) {
	raw = strings.TrimSpace(raw)
	if lo, hi, found := strings.Cut(raw, "-"); found {
		ageMin, err1 := strconv.Atoi(strings.TrimSpace(lo))
		ageMax, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return ageMin, ageMax, true
	}
	age, err := strconv.Atoi(raw)
	if err != nil {
		return 0, 0, false
	}
	return age, age, true
}

func keyword(upper string) string {
	if i := strings.IndexAny(upper, "# "); i > 0 {
		return upper[:i]
	}
	return upper
}
