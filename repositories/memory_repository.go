package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Dosada05/duel-tournament/models"
)

// MemoryDuelRepository хранит дуэли в памяти процесса. Используется, когда DATABASE_URL не задан, и в тестах.
type MemoryDuelRepository struct {
	mu    sync.RWMutex
	duels map[string]*models.Duel
}

func NewMemoryDuelRepository() *MemoryDuelRepository {
	return &MemoryDuelRepository{duels: make(map[string]*models.Duel)}
}

func (r *MemoryDuelRepository) CreateBracket(ctx context.Context, duels []*models.Duel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(duels) == 0 {
		return nil
	}
	tournamentID := duels[0].TournamentID

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.duels {
		if d.TournamentID == tournamentID {
			return fmt.Errorf("%w: %s", ErrBracketExists, tournamentID)
		}
	}
	staged := make(map[string]*models.Duel, len(duels))
	for _, d := range duels {
		if d.TournamentID != tournamentID {
			return fmt.Errorf("bracket mixes tournaments %q and %q", tournamentID, d.TournamentID)
		}
		key := duelKey(d.TournamentID, d.ID)
		if _, dup := staged[key]; dup {
			return fmt.Errorf("%w: duplicate duel %s", ErrBracketExists, d.ID)
		}
		staged[key] = d.Clone()
	}
	for key, d := range staged {
		r.duels[key] = d
	}
	return nil
}

func (r *MemoryDuelRepository) GetByID(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.duels[duelKey(tournamentID, duelID)]
	if !ok {
		return nil, ErrDuelNotFound
	}
	return d.Clone(), nil
}

func (r *MemoryDuelRepository) ListByTournament(ctx context.Context, tournamentID string, filter DuelFilter) ([]*models.Duel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Duel, 0)
	for _, d := range r.duels {
		if d.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && d.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		result = append(result, d.Clone())
	}
	sortDuels(result)
	return result, nil
}

func (r *MemoryDuelRepository) ListByStatus(ctx context.Context, status models.DuelStatus) ([]*models.Duel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Duel, 0)
	for _, d := range r.duels {
		if d.Status == status {
			result = append(result, d.Clone())
		}
	}
	sortDuels(result)
	return result, nil
}

func (r *MemoryDuelRepository) Update(ctx context.Context, duel *models.Duel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := duelKey(duel.TournamentID, duel.ID)
	if _, ok := r.duels[key]; !ok {
		return ErrDuelNotFound
	}
	r.duels[key] = duel.Clone()
	return nil
}

func sortDuels(duels []*models.Duel) {
	sort.Slice(duels, func(i, j int) bool {
		if duels[i].TournamentID != duels[j].TournamentID {
			return duels[i].TournamentID < duels[j].TournamentID
		}
		if duels[i].Round != duels[j].Round {
			return duels[i].Round < duels[j].Round
		}
		return duels[i].OrderInRound < duels[j].OrderInRound
	})
}

// MemoryQuestionRepository хранит пул вопросов в порядке добавления.
type MemoryQuestionRepository struct {
	mu        sync.RWMutex
	questions []*models.Question
	index     map[string]int
}

func NewMemoryQuestionRepository(initial ...*models.Question) *MemoryQuestionRepository {
	r := &MemoryQuestionRepository{index: make(map[string]int)}
	_ = r.Upsert(context.Background(), initial)
	return r
}

func (r *MemoryQuestionRepository) List(ctx context.Context) ([]*models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*models.Question(nil), r.questions...), nil
}

func (r *MemoryQuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return r.questions[i], nil
}

// Upsert добавляет новые вопросы; уже известные id не перезаписываются, вопросы неизменяемы.
func (r *MemoryQuestionRepository) Upsert(ctx context.Context, questions []*models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range questions {
		if q == nil {
			continue
		}
		if _, ok := r.index[q.ID]; ok {
			continue
		}
		r.index[q.ID] = len(r.questions)
		r.questions = append(r.questions, q)
	}
	return nil
}
