package repositories

import (
	"context"
	"testing"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDuel(tournamentID, id string, round, order int) *models.Duel {
	return &models.Duel{
		ID:           id,
		TournamentID: tournamentID,
		Round:        round,
		OrderInRound: order,
		Status:       models.DuelStatusPending,
		Question:     &models.Question{ID: "Q1"},
	}
}

func TestMemoryDuelRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDuelRepository()

	require.NoError(t, repo.CreateBracket(ctx, []*models.Duel{
		newDuel("t1", "final", 3, 1),
		newDuel("t1", "qf", 1, 1),
	}))

	got, err := repo.GetByID(ctx, "t1", "qf")
	require.NoError(t, err)
	assert.Equal(t, "qf", got.ID)

	_, err = repo.GetByID(ctx, "t2", "qf")
	assert.ErrorIs(t, err, ErrDuelNotFound)
}

func TestMemoryDuelRepositoryRejectsSecondBracket(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDuelRepository()
	require.NoError(t, repo.CreateBracket(ctx, []*models.Duel{newDuel("t1", "qf", 1, 1)}))

	err := repo.CreateBracket(ctx, []*models.Duel{newDuel("t1", "other", 1, 2)})
	assert.ErrorIs(t, err, ErrBracketExists)

	_, err = repo.GetByID(ctx, "t1", "other")
	assert.ErrorIs(t, err, ErrDuelNotFound, "failed bracket must not be partially stored")
}

func TestMemoryDuelRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDuelRepository()
	original := newDuel("t1", "qf", 1, 1)
	require.NoError(t, repo.CreateBracket(ctx, []*models.Duel{original}))

	original.Status = models.DuelStatusJudged
	got, err := repo.GetByID(ctx, "t1", "qf")
	require.NoError(t, err)
	assert.Equal(t, models.DuelStatusPending, got.Status)

	got.SetTeam(models.SlotA, "A")
	again, err := repo.GetByID(ctx, "t1", "qf")
	require.NoError(t, err)
	assert.Nil(t, again.TeamA)
	assert.Same(t, got.Question, again.Question, "questions are shared, not copied")
}

func TestMemoryDuelRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDuelRepository()
	require.NoError(t, repo.CreateBracket(ctx, []*models.Duel{newDuel("t1", "qf", 1, 1)}))

	d, err := repo.GetByID(ctx, "t1", "qf")
	require.NoError(t, err)
	d.Status = models.DuelStatusScheduled
	require.NoError(t, repo.Update(ctx, d))

	got, err := repo.GetByID(ctx, "t1", "qf")
	require.NoError(t, err)
	assert.Equal(t, models.DuelStatusScheduled, got.Status)

	assert.ErrorIs(t, repo.Update(ctx, newDuel("t1", "ghost", 1, 1)), ErrDuelNotFound)
}

func TestMemoryDuelRepositoryListing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDuelRepository()
	require.NoError(t, repo.CreateBracket(ctx, []*models.Duel{
		newDuel("t1", "sf-2", 2, 2),
		newDuel("t1", "qf-1", 1, 1),
		newDuel("t1", "sf-1", 2, 1),
	}))
	require.NoError(t, repo.CreateBracket(ctx, []*models.Duel{newDuel("t2", "qf-1", 1, 1)}))

	all, err := repo.ListByTournament(ctx, "t1", DuelFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"qf-1", "sf-1", "sf-2"}, []string{all[0].ID, all[1].ID, all[2].ID})

	round := 2
	semis, err := repo.ListByTournament(ctx, "t1", DuelFilter{Round: &round})
	require.NoError(t, err)
	assert.Len(t, semis, 2)

	scheduled := models.DuelStatusScheduled
	none, err := repo.ListByTournament(ctx, "t1", DuelFilter{Status: &scheduled})
	require.NoError(t, err)
	assert.Empty(t, none)

	pending, err := repo.ListByStatus(ctx, models.DuelStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 4)
}

func TestMemoryQuestionRepository(t *testing.T) {
	ctx := context.Background()
	q1 := &models.Question{ID: "Q1", Prompt: "first"}
	repo := NewMemoryQuestionRepository(q1, &models.Question{ID: "Q2"})

	require.NoError(t, repo.Upsert(ctx, []*models.Question{{ID: "Q1", Prompt: "changed"}, {ID: "Q3"}}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Prompt)
	assert.Equal(t, "Q3", list[2].ID)

	got, err := repo.GetByID(ctx, "Q2")
	require.NoError(t, err)
	assert.Equal(t, "Q2", got.ID)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}
