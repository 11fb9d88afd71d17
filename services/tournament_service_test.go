package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/duel-tournament/brackets"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeBracket(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)
	b := f.initBracket(t)

	require.Len(t, b.Quarterfinals, 4)
	require.Len(t, b.Semifinals, 2)
	require.NotNil(t, b.Final)
	assert.Nil(t, b.ChampionTeamID)

	wantQuestions := []string{"Q1", "Q2", "Q3", "Q1"}
	for i, d := range b.Quarterfinals {
		assert.Equal(t, testTournament, d.TournamentID)
		assert.Equal(t, models.DuelStatusPending, d.Status)
		assert.True(t, d.SlotsReady())
		assert.Equal(t, wantQuestions[i], d.Question.ID)
	}
	assert.Equal(t, qf1, b.Quarterfinals[0].ID)
	assert.Equal(t, "A", *b.Quarterfinals[0].TeamA)
	assert.Equal(t, "H", *b.Quarterfinals[0].TeamB)
	assert.Equal(t, "Q2", b.Semifinals[0].Question.ID)
	assert.Equal(t, "Q3", b.Semifinals[1].Question.ID)
	assert.Equal(t, "Q1", b.Final.Question.ID)
	assert.Equal(t, brackets.FinalID, b.Final.ID)

	assert.Len(t, f.pub.ofType(models.EventDuelCreated), 7)

	stored, err := f.tournaments.GetBracket(context.Background(), testTournament)
	require.NoError(t, err)
	assert.Equal(t, b, stored)
}

func TestInitializeBracketWithExplicitQuestions(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)

	qs := []*models.Question{{ID: "X1", Prompt: "only question"}}
	b, err := f.tournaments.InitializeBracket(context.Background(), testTournament, InitializeBracketInput{
		TeamIDs:   []string{"A", "B", "C", "D", "E", "F", "G", "H"},
		Questions: qs,
	})
	require.NoError(t, err)
	for _, d := range append(b.Quarterfinals, b.Semifinals...) {
		assert.Same(t, qs[0], d.Question)
	}
}

func TestInitializeBracketErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient teams", func(t *testing.T) {
		f := newFixture(t, DefaultMaxRematches)
		_, err := f.tournaments.InitializeBracket(ctx, testTournament, InitializeBracketInput{TeamIDs: []string{"A", "B", "C"}})
		assert.ErrorIs(t, err, brackets.ErrInsufficientTeams)
		_, err = f.tournaments.GetBracket(ctx, testTournament)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("empty pool", func(t *testing.T) {
		f := newFixture(t, DefaultMaxRematches)
		svc := NewTournamentService(f.repo, emptyQuestions{}, nil, f.duels, nil, nil, TournamentServiceConfig{})
		_, err := svc.InitializeBracket(ctx, testTournament, InitializeBracketInput{TeamIDs: []string{"A", "B", "C", "D", "E", "F", "G", "H"}})
		assert.ErrorIs(t, err, brackets.ErrEmptyPool)
	})

	t.Run("bracket exists", func(t *testing.T) {
		f := newFixture(t, DefaultMaxRematches)
		f.initBracket(t)
		_, err := f.tournaments.InitializeBracket(ctx, testTournament, InitializeBracketInput{TeamIDs: []string{"A", "B", "C", "D", "E", "F", "G", "H"}})
		assert.ErrorIs(t, err, ErrBracketExists)
		assert.Len(t, f.pub.ofType(models.EventDuelCreated), 7)
	})

	t.Run("missing tournament id", func(t *testing.T) {
		f := newFixture(t, DefaultMaxRematches)
		_, err := f.tournaments.InitializeBracket(ctx, " ", InitializeBracketInput{TeamIDs: []string{"A"}})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

type emptyQuestions struct{}

func (emptyQuestions) List(context.Context) ([]*models.Question, error) { return nil, nil }
func (emptyQuestions) GetByID(context.Context, string) (*models.Question, error) {
	return nil, errors.New("not found")
}
func (emptyQuestions) Upsert(context.Context, []*models.Question) error { return nil }

func TestJudgeRoundIsolatesFailures(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)
	f.initBracket(t)

	for _, id := range []string{qf1, qf2, qf3, qf4} {
		f.playToAwaiting(t, id)
	}
	f.judge.queue(qf2, verdict(models.VerdictB))
	f.judge.queue(qf3, judgeReply{err: errors.New("timeout")})

	report, err := f.tournaments.JudgeRound(context.Background(), testTournament, models.RoundQuarterfinal)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, 1, report.Failed())

	byID := make(map[string]DuelOutcome)
	for _, o := range report.Outcomes {
		byID[o.DuelID] = o
	}
	assert.Equal(t, models.DuelStatusJudged, byID[qf1].Status)
	assert.Equal(t, models.DuelStatusJudged, byID[qf2].Status)
	assert.Equal(t, models.DuelStatusJudged, byID[qf4].Status)
	assert.Contains(t, byID[qf3].Error, "timeout")

	sf1 := f.get(t, brackets.SemifinalOneID)
	assert.Equal(t, "A", *sf1.TeamA)
	assert.Equal(t, "G", *sf1.TeamB)
	sf2 := f.get(t, brackets.SemifinalTwoID)
	assert.Nil(t, sf2.TeamA)
	assert.Equal(t, "D", *sf2.TeamB)
	assert.Equal(t, models.DuelStatusAwaitingJudgement, f.get(t, qf3).Status)
}

func TestJudgeRoundValidatesRound(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)
	_, err := f.tournaments.JudgeRound(context.Background(), testTournament, 4)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestFullTournamentCompletes(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)
	f.initBracket(t)
	ctx := context.Background()

	rounds := [][]string{
		{qf1, qf2, qf3, qf4},
		{brackets.SemifinalOneID, brackets.SemifinalTwoID},
		{brackets.FinalID},
	}
	for i, ids := range rounds {
		for _, id := range ids {
			f.playToAwaiting(t, id)
		}
		report, err := f.tournaments.JudgeRound(ctx, testTournament, i+1)
		require.NoError(t, err)
		require.Zero(t, report.Failed())
	}

	b, err := f.tournaments.GetBracket(ctx, testTournament)
	require.NoError(t, err)
	require.NotNil(t, b.ChampionTeamID)
	assert.Equal(t, "A", *b.ChampionTeamID)
	assert.Equal(t, "C", *b.Final.LoserTeamID)

	done := f.pub.ofType(models.EventTournamentDone)
	require.Len(t, done, 1)
	assert.Equal(t, "A", *done[0].WinnerTeamID)

	archived := f.archiver.archived[testTournament]
	require.Len(t, archived, 7)
	for _, d := range archived {
		assert.Equal(t, models.DuelStatusJudged, d.Status)
	}
}

func TestSweepExpiresOverdueAndJudges(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)
	f.initBracket(t)
	ctx := context.Background()

	for _, id := range []string{qf1, qf2} {
		_, err := f.duels.Schedule(ctx, testTournament, id)
		require.NoError(t, err)
	}
	_, err := f.duels.Start(ctx, testTournament, qf1)
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)
	_, err = f.duels.Start(ctx, testTournament, qf2)
	require.NoError(t, err)
	f.clock.Advance(31 * time.Second)

	report, err := f.tournaments.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{Expired: 1, Judged: 1}, report)

	d := f.get(t, qf1)
	assert.Equal(t, models.DuelStatusJudged, d.Status)
	assert.True(t, d.SubmissionA.Missing)
	assert.True(t, d.SubmissionB.Missing)
	assert.Equal(t, models.DuelStatusActive, f.get(t, qf2).Status)
}

func TestSweepRetriesStuckJudging(t *testing.T) {
	f := newFixture(t, DefaultMaxRematches)
	f.initBracket(t)
	f.playToAwaiting(t, qf1)
	f.judge.queue(qf1, judgeReply{err: errors.New("boom")})

	report, err := f.tournaments.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{Failed: 1}, report)

	report, err = f.tournaments.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{Judged: 1}, report)
	assert.Equal(t, models.DuelStatusJudged, f.get(t, qf1).Status)
}
