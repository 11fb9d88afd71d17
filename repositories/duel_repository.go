package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrDuelNotFound        = errors.New("duel not found")
	ErrBracketExists       = errors.New("bracket already exists for tournament")
	ErrDuelQuestionInvalid = errors.New("duel question conflict or invalid")
)

type DuelFilter struct {
	Round  *int
	Status *models.DuelStatus
}

// DuelRepository хранит каждую дуэль как отдельную запись с ключом (tournament_id, id).
// Возвращаемые дуэли - копии: изменения вступают в силу только через Update.
type DuelRepository interface {
	// CreateBracket сохраняет все дуэли турнира атомарно.
	CreateBracket(ctx context.Context, duels []*models.Duel) error
	GetByID(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
	ListByTournament(ctx context.Context, tournamentID string, filter DuelFilter) ([]*models.Duel, error)
	ListByStatus(ctx context.Context, status models.DuelStatus) ([]*models.Duel, error)
	Update(ctx context.Context, duel *models.Duel) error
}

type postgresDuelRepository struct {
	db *sql.DB
}

func NewPostgresDuelRepository(db *sql.DB) DuelRepository {
	return &postgresDuelRepository{db: db}
}

const duelSelectColumns = `
	d.tournament_id, d.id, d.round, d.order_in_round, d.seed_a, d.seed_b, d.team_a, d.team_b,
	d.status, d.start_time, d.end_time, d.judged_at, d.submission_a, d.submission_b,
	d.result, d.rematch_history, d.winner, d.winner_team_id, d.loser_team_id, d.rematch_count,
	d.next_duel_id, d.next_slot, d.created_at, d.updated_at,
	q.id, q.prompt, q.expected_answer, q.time_limit_seconds, q.tags`

func (r *postgresDuelRepository) CreateBracket(ctx context.Context, duels []*models.Duel) error {
	if len(duels) == 0 {
		return nil
	}
	tournamentID := duels[0].TournamentID

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM duels WHERE tournament_id = $1)`, tournamentID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check existing bracket: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBracketExists, tournamentID)
	}

	questions := make(map[string]*models.Question)
	for _, d := range duels {
		if d.Question != nil {
			questions[d.Question.ID] = d.Question
		}
	}
	for _, q := range questions {
		if err := upsertQuestion(ctx, tx, q); err != nil {
			return err
		}
	}

	for _, d := range duels {
		if d.TournamentID != tournamentID {
			return fmt.Errorf("bracket mixes tournaments %q and %q", tournamentID, d.TournamentID)
		}
		if err := insertDuel(ctx, tx, d); err != nil {
			return r.handleDuelError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bracket for tournament %s: %w", tournamentID, err)
	}
	committed = true
	return nil
}

func insertDuel(ctx context.Context, tx *sql.Tx, d *models.Duel) error {
	cols, err := encodeDuel(d)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO duels
			(tournament_id, id, round, order_in_round, seed_a, seed_b, team_a, team_b, question_id,
			 status, start_time, end_time, judged_at, submission_a, submission_b, result, rematch_history,
			 winner, winner_team_id, loser_team_id, rematch_count, next_duel_id, next_slot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err = tx.ExecContext(ctx, query,
		d.TournamentID, d.ID, d.Round, d.OrderInRound, d.SeedA, d.SeedB, d.TeamA, d.TeamB, questionID(d),
		d.Status, d.StartTime, d.EndTime, d.JudgedAt, cols.submissionA, cols.submissionB, cols.result,
		cols.rematchHistory, slotValue(d.Winner), d.WinnerTeamID, d.LoserTeamID, d.RematchCount,
		d.NextDuelID, slotValue(d.NextSlot), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *postgresDuelRepository) GetByID(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	query := `SELECT` + duelSelectColumns + `
		FROM duels d
		LEFT JOIN questions q ON q.id = d.question_id
		WHERE d.tournament_id = $1 AND d.id = $2`

	d, err := scanDuel(r.db.QueryRowContext(ctx, query, tournamentID, duelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuelNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *postgresDuelRepository) ListByTournament(ctx context.Context, tournamentID string, filter DuelFilter) ([]*models.Duel, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + duelSelectColumns + `
		FROM duels d
		LEFT JOIN questions q ON q.id = d.question_id
		WHERE d.tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.Round != nil {
		queryBuilder.WriteString(" AND d.round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Round)
		placeholderIndex++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND d.status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
	}
	queryBuilder.WriteString(" ORDER BY d.round ASC, d.order_in_round ASC")

	return r.queryDuels(ctx, queryBuilder.String(), args...)
}

func (r *postgresDuelRepository) ListByStatus(ctx context.Context, status models.DuelStatus) ([]*models.Duel, error) {
	query := `SELECT` + duelSelectColumns + `
		FROM duels d
		LEFT JOIN questions q ON q.id = d.question_id
		WHERE d.status = $1
		ORDER BY d.tournament_id ASC, d.round ASC, d.order_in_round ASC`
	return r.queryDuels(ctx, query, status)
}

func (r *postgresDuelRepository) queryDuels(ctx context.Context, query string, args ...interface{}) ([]*models.Duel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	duels := make([]*models.Duel, 0)
	for rows.Next() {
		d, scanErr := scanDuel(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		duels = append(duels, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return duels, nil
}

func (r *postgresDuelRepository) Update(ctx context.Context, d *models.Duel) error {
	cols, err := encodeDuel(d)
	if err != nil {
		return err
	}
	query := `
		UPDATE duels
		SET team_a = $1, team_b = $2, status = $3, start_time = $4, end_time = $5, judged_at = $6,
		    submission_a = $7, submission_b = $8, result = $9, rematch_history = $10, winner = $11,
		    winner_team_id = $12, loser_team_id = $13, rematch_count = $14, updated_at = $15
		WHERE tournament_id = $16 AND id = $17`

	result, err := r.db.ExecContext(ctx, query,
		d.TeamA, d.TeamB, d.Status, d.StartTime, d.EndTime, d.JudgedAt,
		cols.submissionA, cols.submissionB, cols.result, cols.rematchHistory, slotValue(d.Winner),
		d.WinnerTeamID, d.LoserTeamID, d.RematchCount, d.UpdatedAt,
		d.TournamentID, d.ID,
	)
	if err != nil {
		return r.handleDuelError(err)
	}
	return checkAffectedRows(result, ErrDuelNotFound)
}

func (r *postgresDuelRepository) handleDuelError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "duels_question_id_fkey" {
				return ErrDuelQuestionInvalid
			}
		case "23505": // unique_violation
			return ErrBracketExists
		}
	}
	return err
}

type encodedDuel struct {
	submissionA    []byte
	submissionB    []byte
	result         []byte
	rematchHistory []byte
}

func encodeDuel(d *models.Duel) (encodedDuel, error) {
	var enc encodedDuel
	var err error
	if enc.submissionA, err = jsonOrNull(d.SubmissionA); err != nil {
		return enc, fmt.Errorf("failed to encode submission A of duel %s: %w", d.ID, err)
	}
	if enc.submissionB, err = jsonOrNull(d.SubmissionB); err != nil {
		return enc, fmt.Errorf("failed to encode submission B of duel %s: %w", d.ID, err)
	}
	if enc.result, err = jsonOrNull(d.Result); err != nil {
		return enc, fmt.Errorf("failed to encode result of duel %s: %w", d.ID, err)
	}
	history := d.RematchHistory
	if history == nil {
		history = []models.DuelResult{}
	}
	if enc.rematchHistory, err = json.Marshal(history); err != nil {
		return enc, fmt.Errorf("failed to encode rematch history of duel %s: %w", d.ID, err)
	}
	return enc, nil
}

func jsonOrNull[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDuel(row rowScanner) (*models.Duel, error) {
	var (
		d                             models.Duel
		seedA, seedB                  sql.NullInt64
		teamA, teamB                  sql.NullString
		startTime, endTime, judgedAt  sql.NullTime
		subA, subB, result, history   []byte
		winner, winnerTeam, loserTeam sql.NullString
		nextDuel, nextSlot            sql.NullString
		qID, qPrompt, qExpected       sql.NullString
		qLimit                        sql.NullInt64
		qTags                         []string
	)
	err := row.Scan(
		&d.TournamentID, &d.ID, &d.Round, &d.OrderInRound, &seedA, &seedB, &teamA, &teamB,
		&d.Status, &startTime, &endTime, &judgedAt, &subA, &subB,
		&result, &history, &winner, &winnerTeam, &loserTeam, &d.RematchCount,
		&nextDuel, &nextSlot, &d.CreatedAt, &d.UpdatedAt,
		&qID, &qPrompt, &qExpected, &qLimit, pq.Array(&qTags),
	)
	if err != nil {
		return nil, err
	}

	d.SeedA = nullInt(seedA)
	d.SeedB = nullInt(seedB)
	d.TeamA = nullString(teamA)
	d.TeamB = nullString(teamB)
	d.StartTime = nullTime(startTime)
	d.EndTime = nullTime(endTime)
	d.JudgedAt = nullTime(judgedAt)
	d.WinnerTeamID = nullString(winnerTeam)
	d.LoserTeamID = nullString(loserTeam)
	d.NextDuelID = nullString(nextDuel)
	d.Winner = nullSlot(winner)
	d.NextSlot = nullSlot(nextSlot)

	if len(subA) > 0 {
		d.SubmissionA = &models.Submission{}
		if err := json.Unmarshal(subA, d.SubmissionA); err != nil {
			return nil, fmt.Errorf("failed to decode submission A of duel %s: %w", d.ID, err)
		}
	}
	if len(subB) > 0 {
		d.SubmissionB = &models.Submission{}
		if err := json.Unmarshal(subB, d.SubmissionB); err != nil {
			return nil, fmt.Errorf("failed to decode submission B of duel %s: %w", d.ID, err)
		}
	}
	if len(result) > 0 {
		d.Result = &models.DuelResult{}
		if err := json.Unmarshal(result, d.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result of duel %s: %w", d.ID, err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &d.RematchHistory); err != nil {
			return nil, fmt.Errorf("failed to decode rematch history of duel %s: %w", d.ID, err)
		}
		if len(d.RematchHistory) == 0 {
			d.RematchHistory = nil
		}
	}
	if qID.Valid {
		d.Question = &models.Question{
			ID:               qID.String,
			Prompt:           qPrompt.String,
			ExpectedAnswer:   qExpected.String,
			TimeLimitSeconds: int(qLimit.Int64),
			Tags:             qTags,
		}
	}
	return &d, nil
}

func questionID(d *models.Duel) *string {
	if d.Question == nil {
		return nil
	}
	id := d.Question.ID
	return &id
}

func slotValue(s *models.Slot) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func nullSlot(v sql.NullString) *models.Slot {
	if !v.Valid {
		return nil
	}
	s := models.Slot(v.String)
	return &s
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
