package models

import "time"

type DuelStatus string

const (
	DuelStatusPending           DuelStatus = "pending"
	DuelStatusScheduled         DuelStatus = "scheduled"
	DuelStatusActive            DuelStatus = "active"
	DuelStatusAwaitingJudgement DuelStatus = "awaiting_judgement"
	DuelStatusRematchScheduled  DuelStatus = "rematch_scheduled"
	DuelStatusJudged            DuelStatus = "judged"
)

// IsValid сообщает, является ли статус одним из известных.
func (s DuelStatus) IsValid() bool {
	switch s {
	case DuelStatusPending, DuelStatusScheduled, DuelStatusActive,
		DuelStatusAwaitingJudgement, DuelStatusRematchScheduled, DuelStatusJudged:
		return true
	}
	return false
}

// Slot - позиция команды в дуэли.
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

func (s Slot) IsValid() bool {
	return s == SlotA || s == SlotB
}

// Opposite возвращает противоположный слот.
func (s Slot) Opposite() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

const (
	RoundQuarterfinal = 1
	RoundSemifinal    = 2
	RoundFinal        = 3
)

type Submission struct {
	Answer      string    `json:"answer"`
	SubmittedAt time.Time `json:"submitted_at"`
	// Missing выставляется, когда время истекло до ответа команды.
	Missing bool `json:"missing,omitempty"`
}

type Duel struct {
	ID           string `json:"id"`
	TournamentID string `json:"tournament_id"`
	Round        int    `json:"round"`
	OrderInRound int    `json:"order_in_round"`

	SeedA *int    `json:"seed_a,omitempty"`
	SeedB *int    `json:"seed_b,omitempty"`
	TeamA *string `json:"team_a,omitempty"`
	TeamB *string `json:"team_b,omitempty"`

	// Question разделяется с пулом вопросов и не изменяется.
	Question *Question `json:"question"`

	Status    DuelStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	JudgedAt  *time.Time `json:"judged_at,omitempty"`

	SubmissionA *Submission `json:"submission_a,omitempty"`
	SubmissionB *Submission `json:"submission_b,omitempty"`

	Result         *DuelResult  `json:"result,omitempty"`
	RematchHistory []DuelResult `json:"rematch_history,omitempty"`

	Winner       *Slot   `json:"winner,omitempty"`
	WinnerTeamID *string `json:"winner_team_id,omitempty"`
	LoserTeamID  *string `json:"loser_team_id,omitempty"`
	RematchCount int     `json:"rematch_count"`

	NextDuelID *string `json:"next_duel_id,omitempty"`
	NextSlot   *Slot   `json:"next_slot,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Team возвращает команду в указанном слоте.
func (d *Duel) Team(slot Slot) *string {
	if slot == SlotA {
		return d.TeamA
	}
	return d.TeamB
}

// SetTeam записывает команду в указанный слот.
func (d *Duel) SetTeam(slot Slot, teamID string) {
	id := teamID
	if slot == SlotA {
		d.TeamA = &id
		return
	}
	d.TeamB = &id
}

func (d *Duel) Submission(slot Slot) *Submission {
	if slot == SlotA {
		return d.SubmissionA
	}
	return d.SubmissionB
}

func (d *Duel) SetSubmission(slot Slot, s *Submission) {
	if slot == SlotA {
		d.SubmissionA = s
		return
	}
	d.SubmissionB = s
}

func (d *Duel) SlotsReady() bool {
	return d.TeamA != nil && *d.TeamA != "" && d.TeamB != nil && *d.TeamB != ""
}

// Deadline возвращает момент окончания активной фазы. ok=false, если дуэль не запущена.
func (d *Duel) Deadline() (deadline time.Time, ok bool) {
	if d.StartTime == nil || d.Question == nil {
		return time.Time{}, false
	}
	return d.StartTime.Add(d.Question.TimeLimit()), true
}

// Clone возвращает независимую копию дуэли. Вопрос не копируется.
func (d *Duel) Clone() *Duel {
	if d == nil {
		return nil
	}
	c := *d
	c.SeedA = cloneInt(d.SeedA)
	c.SeedB = cloneInt(d.SeedB)
	c.TeamA = cloneString(d.TeamA)
	c.TeamB = cloneString(d.TeamB)
	c.StartTime = cloneTime(d.StartTime)
	c.EndTime = cloneTime(d.EndTime)
	c.JudgedAt = cloneTime(d.JudgedAt)
	if d.SubmissionA != nil {
		s := *d.SubmissionA
		c.SubmissionA = &s
	}
	if d.SubmissionB != nil {
		s := *d.SubmissionB
		c.SubmissionB = &s
	}
	if d.Result != nil {
		r := *d.Result
		c.Result = &r
	}
	if d.RematchHistory != nil {
		c.RematchHistory = append([]DuelResult(nil), d.RematchHistory...)
	}
	if d.Winner != nil {
		w := *d.Winner
		c.Winner = &w
	}
	c.WinnerTeamID = cloneString(d.WinnerTeamID)
	c.LoserTeamID = cloneString(d.LoserTeamID)
	c.NextDuelID = cloneString(d.NextDuelID)
	if d.NextSlot != nil {
		s := *d.NextSlot
		c.NextSlot = &s
	}
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
