package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/duel-tournament/models"
)

var ErrEmptyPool = errors.New("question pool is empty")

// PickQuestion выбирает вопрос для позиции index: pool[index mod len(pool)].
func PickQuestion(pool []*models.Question, index int) (*models.Question, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	if index < 0 {
		return nil, fmt.Errorf("question index must not be negative, got %d", index)
	}
	return pool[index%len(pool)], nil
}
