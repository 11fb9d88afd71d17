package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDuelCloneIsIndependent(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &Question{ID: "Q1", TimeLimitSeconds: 30}
	d := &Duel{
		ID:             "round3-r1-1-vs-8",
		TeamA:          ptr("A"),
		TeamB:          ptr("H"),
		SeedA:          ptr(1),
		Question:       q,
		StartTime:      &now,
		SubmissionA:    &Submission{Answer: "42"},
		Result:         &DuelResult{Winner: VerdictA},
		RematchHistory: []DuelResult{{Winner: VerdictRematch}},
		Winner:         ptr(SlotA),
		NextSlot:       ptr(SlotA),
		NextDuelID:     ptr("round3-sf-1"),
	}

	c := d.Clone()
	*c.TeamA = "X"
	*c.SeedA = 9
	*c.StartTime = now.Add(time.Hour)
	c.SubmissionA.Answer = "changed"
	c.Result.Winner = VerdictB
	c.RematchHistory[0].Reason = "changed"
	*c.Winner = SlotB
	*c.NextDuelID = "other"

	assert.Equal(t, "A", *d.TeamA)
	assert.Equal(t, 1, *d.SeedA)
	assert.Equal(t, now, *d.StartTime)
	assert.Equal(t, "42", d.SubmissionA.Answer)
	assert.Equal(t, VerdictA, d.Result.Winner)
	assert.Empty(t, d.RematchHistory[0].Reason)
	assert.Equal(t, SlotA, *d.Winner)
	assert.Equal(t, "round3-sf-1", *d.NextDuelID)
	assert.Same(t, q, c.Question)

	var nilDuel *Duel
	assert.Nil(t, nilDuel.Clone())
}

func TestDuelSlotsAndDeadline(t *testing.T) {
	d := &Duel{}
	assert.False(t, d.SlotsReady())
	_, ok := d.Deadline()
	assert.False(t, ok)

	d.SetTeam(SlotA, "A")
	d.SetTeam(SlotB, "")
	assert.False(t, d.SlotsReady())
	d.SetTeam(SlotB, "B")
	assert.True(t, d.SlotsReady())
	assert.Equal(t, "B", *d.Team(SlotB))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.StartTime = &start
	d.Question = &Question{}
	deadline, ok := d.Deadline()
	require.True(t, ok)
	assert.Equal(t, start.Add(DefaultQuestionTimeLimit), deadline)

	d.Question.TimeLimitSeconds = 90
	deadline, _ = d.Deadline()
	assert.Equal(t, start.Add(90*time.Second), deadline)
}

func TestVerdictAndSlot(t *testing.T) {
	slot, ok := VerdictB.Slot()
	assert.True(t, ok)
	assert.Equal(t, SlotB, slot)
	_, ok = VerdictRematch.Slot()
	assert.False(t, ok)

	assert.False(t, VerdictRematch.IsDecisive())
	assert.False(t, Verdict("draw").IsValid())
	assert.Equal(t, SlotB, SlotA.Opposite())
	assert.Equal(t, SlotA, SlotB.Opposite())
	assert.False(t, Slot("C").IsValid())
	assert.False(t, Confidence("certain").IsValid())
	assert.False(t, DuelStatus("cancelled").IsValid())
	assert.True(t, DuelStatusRematchScheduled.IsValid())
}

func TestUserRoleIsValid(t *testing.T) {
	for _, r := range []UserRole{RoleAdmin, RoleOrganizer, RolePlayer} {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, UserRole("guest").IsValid())
}

func TestNewDuelEventCopiesWinner(t *testing.T) {
	at := time.Now()
	d := &Duel{ID: "round3-final", TournamentID: "t-1", Status: DuelStatusJudged, Winner: ptr(SlotB), WinnerTeamID: ptr("H")}
	ev := NewDuelEvent(EventDuelStatusChange, d, DuelStatusAwaitingJudgement, at)

	*d.Winner = SlotA
	require.NotNil(t, ev.Winner)
	assert.Equal(t, SlotB, *ev.Winner)
	assert.Equal(t, "H", *ev.WinnerTeamID)
	assert.Equal(t, DuelStatusAwaitingJudgement, ev.OldStatus)
	assert.NotEqual(t, [16]byte{}, [16]byte(ev.ID))
}
