// duel-tournament/brackets/single_elimination.go
package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/duel-tournament/models"
)

// BracketSize - число команд в сетке плей-офф.
const BracketSize = 8

var (
	ErrInsufficientTeams = errors.New("bracket requires exactly 8 teams")
	ErrInvalidTeamList   = errors.New("invalid team list")
)

// Фиксированные id дуэлей второго и третьего раундов. Они известны заранее,
// поэтому продвижение может адресовать дуэль до того, как в ней появятся команды.
const (
	SemifinalOneID = "round3-sf-1"
	SemifinalTwoID = "round3-sf-2"
	FinalID        = "round3-final"
)

// QuarterfinalID возвращает id дуэли первого раунда по номерам посева.
func QuarterfinalID(seedA, seedB int) string {
	return fmt.Sprintf("round3-r1-%d-vs-%d", seedA, seedB)
}

type BracketDuel struct {
	ID           string
	Round        int
	OrderInRound int

	SeedA *int
	SeedB *int
	TeamA *string
	TeamB *string

	Question *models.Question

	NextDuelID *string
	NextSlot   *models.Slot
}

// BracketPlan - результат построения сетки до записи в хранилище.
type BracketPlan struct {
	FirstRound []*BracketDuel
	Semifinals []*BracketDuel
	Final      []*BracketDuel
}

// All возвращает дуэли плана в порядке построения: четвертьфиналы, полуфиналы, финал.
func (p *BracketPlan) All() []*BracketDuel {
	all := make([]*BracketDuel, 0, len(p.FirstRound)+len(p.Semifinals)+len(p.Final))
	all = append(all, p.FirstRound...)
	all = append(all, p.Semifinals...)
	all = append(all, p.Final...)
	return all
}

// Validate проверяет, что каждый next-указатель ведет в дуэль этого же плана,
// а у финала указателя нет.
func (p *BracketPlan) Validate() error {
	ids := make(map[string]bool)
	for _, d := range p.All() {
		if ids[d.ID] {
			return fmt.Errorf("duplicate duel id %q in bracket plan", d.ID)
		}
		ids[d.ID] = true
	}
	for _, d := range append(append([]*BracketDuel{}, p.FirstRound...), p.Semifinals...) {
		if d.NextDuelID == nil || d.NextSlot == nil {
			return fmt.Errorf("duel %q has no downstream duel", d.ID)
		}
		if !ids[*d.NextDuelID] {
			return fmt.Errorf("duel %q points to unknown duel %q", d.ID, *d.NextDuelID)
		}
	}
	for _, d := range p.Final {
		if d.NextDuelID != nil {
			return fmt.Errorf("final duel %q must not point downstream", d.ID)
		}
	}
	return nil
}

type feed struct {
	nextID string
	slot   models.Slot
}

// BuildInitialBracket строит сетку на 8 команд: посев i против 7-i, победители пар
// (1,8) и (2,7) идут в слоты A и B первого полуфинала, пар (3,6) и (4,5) - во второй.
// Вопросы раздаются одним счетчиком по всему плану.
func BuildInitialBracket(teamIDs []string, questions []*models.Question) (*BracketPlan, error) {
	if len(teamIDs) != BracketSize {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientTeams, len(teamIDs))
	}
	if len(questions) == 0 {
		return nil, ErrEmptyPool
	}
	seen := make(map[string]bool, len(teamIDs))
	for i, id := range teamIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: team at rank %d has an empty id", ErrInvalidTeamList, i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: team %q is listed more than once", ErrInvalidTeamList, id)
		}
		seen[id] = true
	}

	questionIdx := 0
	nextQuestion := func() (*models.Question, error) {
		q, err := PickQuestion(questions, questionIdx)
		questionIdx++
		return q, err
	}

	feeds := []feed{
		{SemifinalOneID, models.SlotA},
		{SemifinalOneID, models.SlotB},
		{SemifinalTwoID, models.SlotA},
		{SemifinalTwoID, models.SlotB},
	}

	plan := &BracketPlan{}
	for i := 0; i < BracketSize/2; i++ {
		seedA, seedB := i+1, BracketSize-i
		q, err := nextQuestion()
		if err != nil {
			return nil, err
		}
		teamA, teamB := teamIDs[i], teamIDs[BracketSize-1-i]
		plan.FirstRound = append(plan.FirstRound, &BracketDuel{
			ID:           QuarterfinalID(seedA, seedB),
			Round:        models.RoundQuarterfinal,
			OrderInRound: i + 1,
			SeedA:        &seedA,
			SeedB:        &seedB,
			TeamA:        &teamA,
			TeamB:        &teamB,
			Question:     q,
			NextDuelID:   strPtr(feeds[i].nextID),
			NextSlot:     slotPtr(feeds[i].slot),
		})
	}

	for i, id := range []string{SemifinalOneID, SemifinalTwoID} {
		q, err := nextQuestion()
		if err != nil {
			return nil, err
		}
		slot := models.SlotA
		if i == 1 {
			slot = models.SlotB
		}
		plan.Semifinals = append(plan.Semifinals, &BracketDuel{
			ID:           id,
			Round:        models.RoundSemifinal,
			OrderInRound: i + 1,
			Question:     q,
			NextDuelID:   strPtr(FinalID),
			NextSlot:     slotPtr(slot),
		})
	}

	q, err := nextQuestion()
	if err != nil {
		return nil, err
	}
	plan.Final = append(plan.Final, &BracketDuel{
		ID:           FinalID,
		Round:        models.RoundFinal,
		OrderInRound: 1,
		Question:     q,
	})

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("internal error: inconsistent bracket plan: %w", err)
	}
	return plan, nil
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*BracketPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return BuildInitialBracket(params.TeamIDs, params.Questions)
}

func strPtr(s string) *string { return &s }

func slotPtr(s models.Slot) *models.Slot { return &s }
