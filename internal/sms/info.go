package sms

import (
	"context"
	"fmt"
	"strings"

	"penzi/internal/model"
	"penzi/internal/service"
)

// handleImages explains photo upload. Photos travel over the web profile, not
// SMS, so this is guidance only.
func (e *Engine) handleImages(ctx context.Context, user *model.User) (service.Outcome, error) {
	if user.RegistrationStage != model.StageCompleted {
		return e.reply(ctx, user.PhoneNumber, "Complete your profile registration first.", "image_error", &user.ID)
	}

	reply := strings.Join([]string{
		"PENZI PHOTO UPLOAD:",
		"Photos make your profile 5x more popular!",
		"",
		"To add photos, visit our web portal and log in with your phone number.",
		"Upload up to 3 clear photos of yourself.",
		"",
		"Profiles with photos get matched first.",
	}, "\n")
	return e.reply(ctx, user.PhoneNumber, reply, "image_guide", &user.ID)
}

// handleStats summarizes the user's activity counters.
func (e *Engine) handleStats(ctx context.Context, user *model.User) (service.Outcome, error) {
	interestStats, err := e.interests.StatsForUser(ctx, user.ID)
	if err != nil {
		return service.Outcome{}, err
	}
	requests, err := e.matches.CountRequestsByUser(ctx, user.ID)
	if err != nil {
		return service.Outcome{}, err
	}
	matched, err := e.matches.CountMatchesForRequester(ctx, user.ID)
	if err != nil {
		return service.Outcome{}, err
	}

	reply := strings.Join([]string{
		"Your PENZI Stats:",
		fmt.Sprintf("Profile views: %d", interestStats.Received),
		fmt.Sprintf("Interests sent: %d", interestStats.Sent),
		fmt.Sprintf("Interests received: %d", interestStats.Received),
		fmt.Sprintf("Positive responses: %d", interestStats.PositiveResponses),
		fmt.Sprintf("Match requests made: %d", requests),
		fmt.Sprintf("Total matches found: %d", matched),
		fmt.Sprintf("Member since: %s", user.CreatedAt.Format("Jan 2006")),
	}, "\n")
	return e.reply(ctx, user.PhoneNumber, reply, "stats", &user.ID)
}

// handleHistory lists the user's latest outgoing interests.
func (e *Engine) handleHistory(ctx context.Context, user *model.User) (service.Outcome, error) {
	interests, err := e.interests.ListSentByUser(ctx, user.ID, 5)
	if err != nil {
		return service.Outcome{}, err
	}
	if len(interests) == 0 {
		return e.reply(ctx, user.PhoneNumber, "No recent activity. Start searching with match#age#town", "history", &user.ID)
	}

	lines := []string{"Your Recent Activity:"}
	for _, interest := range interests {
		name, age := "Unknown", 0
		if interest.TargetUser != nil {
			name, age = interest.TargetUser.Name, interest.TargetUser.Age
		}
		lines = append(lines, fmt.Sprintf("%s (%d) - %s", name, age, historyVerdict(&interest)))
	}
	reply := strings.Join(lines, "\n")
	return e.reply(ctx, user.PhoneNumber, reply, "history", &user.ID)
}

func historyVerdict(interest *model.UserInterest) string {
	switch {
	case interest.Response == model.ResponseYes:
		return "Accepted"
	case interest.Response == model.ResponseNo:
		return "Declined"
	default:
		return "Pending"
	}
}

// handleUnknown answers anything that matched no command with stage-aware
// guidance.
func (e *Engine) handleUnknown(ctx context.Context, user *model.User) (service.Outcome, error) {
	if user.RegistrationStage == model.StageCompleted {
		reply := "Available commands: PENZI, match#age#town, NEXT, DESCRIBE phone number, STATS, HISTORY, STOP"
		return e.reply(ctx, user.PhoneNumber, reply, "help", &user.ID)
	}
	return e.reply(ctx, user.PhoneNumber, user.RegistrationStage.NextStep(), "help", &user.ID)
}
