package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teams() []string {
	return []string{"A", "B", "C", "D", "E", "F", "G", "H"}
}

func pool(n int) []*models.Question {
	qs := make([]*models.Question, n)
	for i := range qs {
		qs[i] = &models.Question{ID: fmt.Sprintf("Q%d", i+1), Prompt: fmt.Sprintf("prompt %d", i+1)}
	}
	return qs
}

func TestBuildInitialBracketShape(t *testing.T) {
	plan, err := BuildInitialBracket(teams(), pool(7))
	require.NoError(t, err)

	require.Len(t, plan.FirstRound, 4)
	require.Len(t, plan.Semifinals, 2)
	require.Len(t, plan.Final, 1)

	wantSeeds := [][2]int{{1, 8}, {2, 7}, {3, 6}, {4, 5}}
	for i, d := range plan.FirstRound {
		require.NotNil(t, d.SeedA)
		require.NotNil(t, d.SeedB)
		assert.Equal(t, wantSeeds[i][0], *d.SeedA)
		assert.Equal(t, wantSeeds[i][1], *d.SeedB)
		assert.Equal(t, QuarterfinalID(wantSeeds[i][0], wantSeeds[i][1]), d.ID)
		assert.Equal(t, models.RoundQuarterfinal, d.Round)
	}

	assert.Equal(t, "round3-r1-1-vs-8", plan.FirstRound[0].ID)
	for _, d := range append(plan.Semifinals, plan.Final...) {
		assert.Nil(t, d.TeamA)
		assert.Nil(t, d.TeamB)
		assert.Nil(t, d.SeedA)
	}
}

func TestBuildInitialBracketWiring(t *testing.T) {
	plan, err := BuildInitialBracket(teams(), pool(3))
	require.NoError(t, err)

	tests := []struct {
		duel     *BracketDuel
		wantNext string
		wantSlot models.Slot
	}{
		{plan.FirstRound[0], SemifinalOneID, models.SlotA},
		{plan.FirstRound[1], SemifinalOneID, models.SlotB},
		{plan.FirstRound[2], SemifinalTwoID, models.SlotA},
		{plan.FirstRound[3], SemifinalTwoID, models.SlotB},
		{plan.Semifinals[0], FinalID, models.SlotA},
		{plan.Semifinals[1], FinalID, models.SlotB},
	}
	for _, tt := range tests {
		t.Run(tt.duel.ID, func(t *testing.T) {
			require.NotNil(t, tt.duel.NextDuelID)
			require.NotNil(t, tt.duel.NextSlot)
			assert.Equal(t, tt.wantNext, *tt.duel.NextDuelID)
			assert.Equal(t, tt.wantSlot, *tt.duel.NextSlot)
		})
	}

	assert.Nil(t, plan.Final[0].NextDuelID)
	assert.Nil(t, plan.Final[0].NextSlot)
	assert.NoError(t, plan.Validate())
}

func TestBuildInitialBracketQuestionRotation(t *testing.T) {
	for _, k := range []int{1, 2, 3, 5, 7, 10} {
		t.Run(fmt.Sprintf("pool of %d", k), func(t *testing.T) {
			qs := pool(k)
			plan, err := BuildInitialBracket(teams(), qs)
			require.NoError(t, err)
			for i, d := range plan.All() {
				assert.Same(t, qs[i%k], d.Question, "duel %d (%s)", i, d.ID)
			}
		})
	}
}

func TestBuildInitialBracketThreeQuestionScenario(t *testing.T) {
	plan, err := BuildInitialBracket(teams(), pool(3))
	require.NoError(t, err)

	ids := func(ds []*BracketDuel) []string {
		out := make([]string, len(ds))
		for i, d := range ds {
			out[i] = d.Question.ID
		}
		return out
	}
	assert.Equal(t, []string{"Q1", "Q2", "Q3", "Q1"}, ids(plan.FirstRound))
	assert.Equal(t, []string{"Q2", "Q3"}, ids(plan.Semifinals))
	assert.Equal(t, []string{"Q1"}, ids(plan.Final))

	qf1 := plan.FirstRound[0]
	assert.Equal(t, "A", *qf1.TeamA)
	assert.Equal(t, "H", *qf1.TeamB)
	assert.Equal(t, SemifinalOneID, *qf1.NextDuelID)
	assert.Equal(t, models.SlotA, *qf1.NextSlot)
}

func TestBuildInitialBracketTeamCount(t *testing.T) {
	for _, n := range []int{0, 1, 4, 7, 9, 16} {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("team-%d", i)
			}
			plan, err := BuildInitialBracket(ids, pool(3))
			assert.ErrorIs(t, err, ErrInsufficientTeams)
			assert.Nil(t, plan)
		})
	}
}

func TestBuildInitialBracketRejectsBadInput(t *testing.T) {
	_, err := BuildInitialBracket(teams(), nil)
	assert.ErrorIs(t, err, ErrEmptyPool)

	dup := teams()
	dup[7] = "A"
	_, err = BuildInitialBracket(dup, pool(3))
	assert.ErrorIs(t, err, ErrInvalidTeamList)

	blank := teams()
	blank[3] = ""
	_, err = BuildInitialBracket(blank, pool(3))
	assert.ErrorIs(t, err, ErrInvalidTeamList)
}

func TestSingleEliminationGenerator(t *testing.T) {
	g := NewSingleEliminationGenerator()
	assert.Equal(t, "SingleElimination", g.GetName())

	plan, err := g.GenerateBracket(context.Background(), GenerateBracketParams{TeamIDs: teams(), Questions: pool(2)})
	require.NoError(t, err)
	assert.Len(t, plan.All(), 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.GenerateBracket(ctx, GenerateBracketParams{TeamIDs: teams(), Questions: pool(2)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBracketPlanValidateDetectsDanglingPointer(t *testing.T) {
	plan, err := BuildInitialBracket(teams(), pool(3))
	require.NoError(t, err)

	missing := "round3-sf-9"
	plan.FirstRound[2].NextDuelID = &missing
	assert.Error(t, plan.Validate())
}
