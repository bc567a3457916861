package quizd_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/errors"
	"github.com/quizwire/quizwire/internal/quizd"
)

// clock is an injectable time source shared by the service and the test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock {
	return &clock{t: t}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testGame() quizd.Game {
	return quizd.Game{
		ID:   "capitals",
		Name: "Capitals",
		Questions: []quizd.GameQuestion{
			{
				Text: "Capital of France?",
				Type: domain.QuestionSingle,
				Answers: []domain.Answer{
					{ID: 1, Text: "Lyon"},
					{ID: 2, Text: "Paris"},
					{ID: 3, Text: "Nice"},
				},
				CorrectIDs: []int64{2},
				Duration:   30,
				Points:     10,
			},
			{
				Text: "Which are Nordic countries?",
				Type: domain.QuestionMultiple,
				Answers: []domain.Answer{
					{ID: 1, Text: "Norway"},
					{ID: 2, Text: "Poland"},
					{ID: 3, Text: "Finland"},
				},
				CorrectIDs: []int64{1, 3},
				Duration:   20,
				Points:     5,
			},
		},
	}
}

func newTestService(clk *clock) *quizd.Service {
	return quizd.NewService(quizd.ServiceConfig{
		Store: quizd.NewMemorySessionStore(),
		Games: []quizd.Game{testGame()},
		Now:   clk.Now,
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	clk := newClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(clk)

	// START opens the lobby.
	sessionID, err := svc.Mutate(ctx, "capitals", domain.MutationStart)
	require.NoError(t, err)
	require.GreaterOrEqual(t, sessionID, 100000)
	require.LessOrEqual(t, sessionID, 999999)

	alice, err := svc.Join(ctx, sessionID, "alice")
	require.NoError(t, err)
	bob, err := svc.Join(ctx, sessionID, "bob")
	require.NoError(t, err)
	require.NotEqual(t, alice, bob)

	started, err := svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.False(t, started)

	// No question is open before the first ADVANCE.
	_, err = svc.ActiveQuestion(ctx, alice)
	require.Error(t, err)

	// First ADVANCE opens question 0 and closes the lobby.
	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.NoError(t, err)

	_, err = svc.Join(ctx, sessionID, "late")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)

	started, err = svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.True(t, started)

	q, err := svc.ActiveQuestion(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", q.Text)
	assert.True(t, q.StartedAt.Equal(clk.Now()))

	// The reveal is gated on the deadline.
	_, err = svc.CorrectAnswers(ctx, alice)
	require.Error(t, err)

	clk.Advance(5 * time.Second)
	require.NoError(t, svc.SubmitAnswers(ctx, alice, []int64{2}))
	require.NoError(t, svc.SubmitAnswers(ctx, bob, []int64{1}))

	clk.Advance(26 * time.Second) // past the 30s deadline

	ids, err := svc.CorrectAnswers(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	// The closed question rejects further writes.
	err = svc.SubmitAnswers(ctx, alice, []int64{3})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)

	// Results are gated until the session ends.
	_, err = svc.PlayerResults(ctx, alice)
	require.Error(t, err)

	// Second ADVANCE opens question 1; a third one walks off the end and
	// ends the session.
	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.NoError(t, err)

	q, err = svc.ActiveQuestion(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionMultiple, q.Type)

	require.NoError(t, svc.SubmitAnswers(ctx, alice, []int64{3, 1}))

	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.NoError(t, err)

	// Ended sessions answer 4xx on the play endpoints; that is the
	// termination signal polling clients rely on.
	_, err = svc.Status(ctx, alice)
	require.Error(t, err)
	assert.True(t, errors.IsSessionOver(err))

	results, err := svc.PlayerResults(ctx, alice)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alice", results[0].Name)
	require.Len(t, results[0].Answers, 2)
	assert.True(t, results[0].Answers[0].Correct)
	assert.True(t, results[0].Answers[1].Correct) // order-insensitive match

	// bob answered q0 wrong and never answered q1; backfill still gives him
	// a record for it.
	assert.Equal(t, "bob", results[1].Name)
	require.Len(t, results[1].Answers, 2)
	assert.False(t, results[1].Answers[0].Correct)
	assert.Nil(t, results[1].Answers[1].AnsweredAt)
	require.NotNil(t, results[1].Answers[1].QuestionStartedAt)
}

func TestSubmitAnswersLastWriteWins(t *testing.T) {
	ctx := context.Background()
	clk := newClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(clk)

	sessionID, err := svc.Mutate(ctx, "capitals", domain.MutationStart)
	require.NoError(t, err)
	alice, err := svc.Join(ctx, sessionID, "alice")
	require.NoError(t, err)
	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.NoError(t, err)

	clk.Advance(3 * time.Second)
	require.NoError(t, svc.SubmitAnswers(ctx, alice, []int64{2}))

	clk.Advance(10 * time.Second)
	require.NoError(t, svc.SubmitAnswers(ctx, alice, []int64{1}))

	clk.Advance(20 * time.Second)
	_, err = svc.Mutate(ctx, "capitals", domain.MutationEnd)
	require.NoError(t, err)

	results, err := svc.PlayerResults(ctx, alice)
	require.NoError(t, err)
	require.Len(t, results, 1)

	rec := results[0].Answers[0]
	assert.Equal(t, []int64{1}, rec.AnswerIDs)
	assert.False(t, rec.Correct)
	// The answer timestamp moves with the overwrite.
	require.NotNil(t, rec.AnsweredAt)
	assert.Equal(t, 13*time.Second, rec.AnsweredAt.Sub(*rec.QuestionStartedAt))
}

func TestJoinValidation(t *testing.T) {
	ctx := context.Background()
	clk := newClock(time.Now())
	svc := newTestService(clk)

	sessionID, err := svc.Mutate(ctx, "capitals", domain.MutationStart)
	require.NoError(t, err)

	_, err = svc.Join(ctx, sessionID, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)

	_, err = svc.Join(ctx, 999999999, "alice")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.Convert(err).Code)
}

func TestMutateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newClock(time.Now()))

	_, err := svc.Mutate(ctx, "no-such-game", domain.MutationStart)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.Convert(err).Code)

	_, err = svc.Mutate(ctx, "capitals", domain.Mutation("RESTART"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)

	// ADVANCE and END need a running session.
	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.Error(t, err)
}

func TestEndIsTerminal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newClock(time.Now()))

	_, err := svc.Mutate(ctx, "capitals", domain.MutationStart)
	require.NoError(t, err)
	_, err = svc.Mutate(ctx, "capitals", domain.MutationEnd)
	require.NoError(t, err)

	_, err = svc.Mutate(ctx, "capitals", domain.MutationEnd)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)

	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.Error(t, err)
}

func TestStartIssuesFreshSessionPerStart(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newClock(time.Now()))

	first, err := svc.Mutate(ctx, "capitals", domain.MutationStart)
	require.NoError(t, err)
	second, err := svc.Mutate(ctx, "capitals", domain.MutationStart)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// The game's current session is the latest START; admin mutations now
	// target it.
	_, err = svc.Mutate(ctx, "capitals", domain.MutationAdvance)
	require.NoError(t, err)

	status, err := svc.AdminStatus(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Position)

	status, err = svc.AdminStatus(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, -1, status.Position)
}
