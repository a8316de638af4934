package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penzi/internal/model"
)

func seedRequester(t *testing.T, env *testEnv) *model.User {
	return env.seedUser(t, "+254712345678", func(u *model.User) {
		u.Name = "John Kamau"
		u.Age = 28
		u.Gender = model.GenderMale
	})
}

func seedCandidates(t *testing.T, env *testEnv, n int) []*model.User {
	users := make([]*model.User, 0, n)
	for i := 0; i < n; i++ {
		phone := fmt.Sprintf("+2547000001%02d", i)
		users = append(users, env.seedUser(t, phone, func(u *model.User) {
			u.Name = fmt.Sprintf("Lady %d", i)
		}))
	}
	return users
}

func (e *testEnv) sentCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.Match{}).Where("is_sent = ?", true).Count(&count).Error)
	return count
}

func TestHandleRequestDeliversBatchesOfFive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	requester := seedRequester(t, env)
	seedCandidates(t, env, 12)

	outcome, err := env.matching.HandleRequest(ctx, requester, 20, 30, "Imara")
	require.NoError(t, err)
	assert.Equal(t, "match_results", outcome.Type)
	assert.Contains(t, outcome.Reply, "PENZI MATCHES: 12 ladies found!")
	assert.Contains(t, outcome.Reply, "Showing 5:")
	assert.Contains(t, outcome.Reply, "More matches: Reply NEXT")
	assert.EqualValues(t, 5, env.sentCount(t))

	outcome, err = env.matching.HandleNext(ctx, requester)
	require.NoError(t, err)
	assert.Contains(t, outcome.Reply, "MORE MATCHES:")
	assert.EqualValues(t, 10, env.sentCount(t))

	outcome, err = env.matching.HandleNext(ctx, requester)
	require.NoError(t, err)
	assert.Contains(t, outcome.Reply, "MORE MATCHES:")
	assert.EqualValues(t, 12, env.sentCount(t))

	outcome, err = env.matching.HandleNext(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, "match_complete", outcome.Type)
	assert.Equal(t, "No more matches available. Try a new search with match#age#town", outcome.Reply)
}

func TestHandleRequestPositionsAreDense(t *testing.T) {
	env := newTestEnv(t)
	requester := seedRequester(t, env)
	seedCandidates(t, env, 7)

	_, err := env.matching.HandleRequest(context.Background(), requester, 20, 30, "Imara")
	require.NoError(t, err)

	var matches []model.Match
	require.NoError(t, env.db.Order("position ASC").Find(&matches).Error)
	require.Len(t, matches, 7)
	for i, m := range matches {
		assert.Equal(t, i+1, m.Position)
		assert.Equal(t, requester.ID, m.RequesterID)
	}
}

func TestCandidateSetIsFrozenAtSearchTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	requester := seedRequester(t, env)
	seedCandidates(t, env, 6)

	_, err := env.matching.HandleRequest(ctx, requester, 20, 30, "Imara")
	require.NoError(t, err)

	latecomer := env.seedUser(t, "+254700000999", func(u *model.User) {
		u.Name = "Latecomer"
	})

	outcome, err := env.matching.HandleNext(ctx, requester)
	require.NoError(t, err)
	assert.NotContains(t, outcome.Reply, latecomer.PhoneNumber)
	assert.NotContains(t, outcome.Reply, "Latecomer")
}

func TestHandleRequestNoCandidates(t *testing.T) {
	env := newTestEnv(t)
	requester := seedRequester(t, env)

	outcome, err := env.matching.HandleRequest(context.Background(), requester, 20, 30, "Imara")
	require.NoError(t, err)
	assert.Equal(t, "match_error", outcome.Type)
	assert.Contains(t, outcome.Reply, "No matches found for age 20-30 in Imara.")

	var count int64
	require.NoError(t, env.db.Model(&model.MatchRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandleRequestLimitedMatchesSuggestsBroaderSearch(t *testing.T) {
	env := newTestEnv(t)
	requester := seedRequester(t, env)
	seedCandidates(t, env, 2)

	outcome, err := env.matching.HandleRequest(context.Background(), requester, 20, 30, "Imara")
	require.NoError(t, err)
	assert.Contains(t, outcome.Reply, "PENZI MATCHES: 2 ladies found!")
	assert.Contains(t, outcome.Reply, "Limited matches! Try:")
}

func TestHandleRequestFiltersCandidates(t *testing.T) {
	env := newTestEnv(t)
	requester := seedRequester(t, env)
	env.seedUser(t, "+254700000001", nil)
	env.seedUser(t, "+254700000002", func(u *model.User) { u.Town = "Nyali" })
	env.seedUser(t, "+254700000003", func(u *model.User) { u.Gender = model.GenderMale })
	env.seedUser(t, "+254700000004", func(u *model.User) { u.Age = 45 })
	env.seedUser(t, "+254700000005", func(u *model.User) { u.RegistrationStage = model.StageInitial })
	env.seedUser(t, "+254700000006", func(u *model.User) { u.IsActive = false })

	outcome, err := env.matching.HandleRequest(context.Background(), requester, 20, 30, "Imara")
	require.NoError(t, err)
	assert.Contains(t, outcome.Reply, "PENZI MATCHES: 1 ladies found!")
}

func TestHandleRequestFemaleRequesterSeesGentlemen(t *testing.T) {
	env := newTestEnv(t)
	requester := env.seedUser(t, "+254712345678", nil)
	env.seedUser(t, "+254700000001", func(u *model.User) {
		u.Name = "John"
		u.Gender = model.GenderMale
	})

	outcome, err := env.matching.HandleRequest(context.Background(), requester, 20, 30, "Imara")
	require.NoError(t, err)
	assert.Contains(t, outcome.Reply, "1 gentlemen found!")
}

func TestHandleRequestInvalidRanges(t *testing.T) {
	env := newTestEnv(t)
	requester := seedRequester(t, env)

	outcome, err := env.matching.HandleRequest(context.Background(), requester, 30, 20, "Imara")
	require.NoError(t, err)
	assert.Equal(t, "Invalid age range: minimum age is greater than maximum.", outcome.Reply)

	outcome, err = env.matching.HandleRequest(context.Background(), requester, 16, 25, "Imara")
	require.NoError(t, err)
	assert.Equal(t, "Age range must start at 18 or above.", outcome.Reply)
}

func TestHandleNextWithoutRequest(t *testing.T) {
	env := newTestEnv(t)
	requester := seedRequester(t, env)

	outcome, err := env.matching.HandleNext(context.Background(), requester)
	require.NoError(t, err)
	assert.Equal(t, "No active match request found. Use match#age#town first.", outcome.Reply)
}

func TestNewSearchSupersedesOldOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	requester := seedRequester(t, env)
	seedCandidates(t, env, 8)

	_, err := env.matching.HandleRequest(ctx, requester, 20, 30, "Imara")
	require.NoError(t, err)
	_, err = env.matching.HandleRequest(ctx, requester, 20, 30, "Imara")
	require.NoError(t, err)

	// NEXT walks the newest request only.
	outcome, err := env.matching.HandleNext(ctx, requester)
	require.NoError(t, err)
	assert.Contains(t, outcome.Reply, "MORE MATCHES:")

	var requests []model.MatchRequest
	require.NoError(t, env.db.Order("id ASC").Find(&requests).Error)
	require.Len(t, requests, 2)
}
