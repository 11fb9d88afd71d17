package brackets

import (
	"context"

	"github.com/Dosada05/duel-tournament/models"
)

type GenerateBracketParams struct {
	// TeamIDs упорядочены по рейтингу, лучший первым.
	TeamIDs   []string
	Questions []*models.Question
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*BracketPlan, error)

	GetName() string
}
