package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"penzi/internal/model"
	"penzi/internal/repository"
)

// BatchSize is how many matches one SMS batch carries.
const BatchSize = 5

// MatchService runs match discovery and batch delivery. A match# command
// freezes its whole candidate list as positioned rows up front; NEXT walks
// that frozen list and never re-queries the live population.
type MatchService struct {
	db      *gorm.DB
	users   *repository.UserRepository
	matches *repository.MatchRepository
	sender  *Sender
}

func NewMatchService(db *gorm.DB, users *repository.UserRepository, matches *repository.MatchRepository, sender *Sender) *MatchService {
	return &MatchService{db: db, users: users, matches: matches, sender: sender}
}

// HandleRequest processes match#<age range>#<town> for a completed profile.
func (s *MatchService) HandleRequest(ctx context.Context, user *model.User, ageMin, ageMax int, town string) (Outcome, error) {
	if ageMin > ageMax {
		return s.reply(ctx, user, "Invalid age range: minimum age is greater than maximum.", "match_error")
	}
	if ageMin < 18 {
		return s.reply(ctx, user, "Age range must start at 18 or above.", "match_error")
	}

	candidates, err := s.users.FindCandidates(ctx, user.Gender.Opposite(), ageMin, ageMax, town, user.ID)
	if err != nil {
		return Outcome{}, err
	}
	if len(candidates) == 0 {
		reply := fmt.Sprintf("No matches found for age %d-%d in %s. Try a broader age range like 20-35 or search in nearby areas.", ageMin, ageMax, town)
		return s.reply(ctx, user, reply, "match_error")
	}

	request := &model.MatchRequest{
		UserID:        user.ID,
		AgeMin:        ageMin,
		AgeMax:        ageMax,
		PreferredTown: titleCase(town),
		Status:        model.RequestStatusActive,
	}
	matches, err := s.matches.CreateRequestWithMatches(ctx, request, candidates)
	if err != nil {
		return Outcome{}, err
	}
	log.Printf("[info] match request created user=%d request=%d candidates=%d", user.ID, request.ID, len(matches))

	first, err := s.matches.NextUnsent(ctx, request.ID, BatchSize)
	if err != nil {
		return Outcome{}, err
	}
	return s.sendBatch(ctx, user, request, first, true)
}

// HandleNext delivers the next unsent batch of the latest active request.
func (s *MatchService) HandleNext(ctx context.Context, user *model.User) (Outcome, error) {
	request, err := s.matches.LatestActiveRequest(ctx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.reply(ctx, user, "No active match request found. Use match#age#town first.", "match_error")
		}
		return Outcome{}, err
	}

	batch, err := s.matches.NextUnsent(ctx, request.ID, BatchSize)
	if err != nil {
		return Outcome{}, err
	}
	if len(batch) == 0 {
		return s.reply(ctx, user, "No more matches available. Try a new search with match#age#town", "match_complete")
	}
	return s.sendBatch(ctx, user, request, batch, false)
}

// sendBatch formats one batch, marks it sent and logs the outbound message
// as a single unit.
func (s *MatchService) sendBatch(ctx context.Context, user *model.User, request *model.MatchRequest, batch []model.Match, isFirst bool) (Outcome, error) {
	var lines []string

	if isFirst {
		total, err := s.matches.CountByRequest(ctx, request.ID)
		if err != nil {
			return Outcome{}, err
		}
		genderTerm := "ladies"
		if user.Gender == model.GenderFemale {
			genderTerm = "gentlemen"
		}
		lines = append(lines,
			fmt.Sprintf("PENZI MATCHES: %d %s found!", total, genderTerm),
			fmt.Sprintf("Showing %d:", len(batch)),
		)
	} else {
		lines = append(lines, "MORE MATCHES:")
	}

	ids := make([]uint, 0, len(batch))
	for _, m := range batch {
		mu := m.MatchedUser
		lines = append(lines, fmt.Sprintf("%d. %s, %dyrs, %s, %s, %s",
			m.Position, mu.Name, mu.Age, mu.Town, mu.Profession, mu.PhoneNumber))
		ids = append(ids, m.ID)
	}

	firstPhone := batch[0].MatchedUser.PhoneNumber
	if isFirst && len(batch) < 3 {
		lines = append(lines,
			"",
			"Limited matches! Try:",
			"match#20-35#Imara (broader age)",
			"match#25-30#Nairobi (bigger area)",
			"",
			fmt.Sprintf("Details: DESCRIBE %s", firstPhone),
		)
	} else {
		lines = append(lines,
			"",
			"More matches: Reply NEXT",
			fmt.Sprintf("Details: DESCRIBE %s", firstPhone),
		)
	}

	reply := strings.Join(lines, "\n")
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.matches.WithTx(tx).MarkSent(ctx, ids); err != nil {
			return err
		}
		_, err := s.sender.WithTx(tx).Send(ctx, user.PhoneNumber, reply, "match_results", &user.ID)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: reply, Type: "match_results"}, nil
}

func (s *MatchService) reply(ctx context.Context, user *model.User, text, msgType string) (Outcome, error) {
	if _, err := s.sender.Send(ctx, user.PhoneNumber, text, msgType, &user.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: text, Type: msgType}, nil
}
