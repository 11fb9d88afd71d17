package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/duel-tournament/brackets"
	"github.com/Dosada05/duel-tournament/metrics"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/Dosada05/duel-tournament/repositories"
	"github.com/stretchr/testify/require"
)

const testTournament = "t-1"

var (
	qf1 = brackets.QuarterfinalID(1, 8)
	qf2 = brackets.QuarterfinalID(2, 7)
	qf3 = brackets.QuarterfinalID(3, 6)
	qf4 = brackets.QuarterfinalID(4, 5)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type judgeReply struct {
	res *models.DuelResult
	err error
}

func verdict(w models.Verdict) judgeReply {
	return judgeReply{res: &models.DuelResult{Winner: w, Confidence: models.ConfidenceHigh, Reason: "test verdict"}}
}

func scored(w models.Verdict, a, b models.Scorecard) judgeReply {
	r := verdict(w)
	r.res.Confidence = models.ConfidenceLow
	r.res.Scores = models.Scores{A: a, B: b}
	return r
}

// fakeJudge отвечает из очереди по id дуэли; пустая очередь - победа A.
type fakeJudge struct {
	mu       sync.Mutex
	replies  map[string][]judgeReply
	requests []models.JudgeRequest

	entered chan string
	gate    chan struct{}
}

func newFakeJudge() *fakeJudge {
	return &fakeJudge{replies: make(map[string][]judgeReply)}
}

func (j *fakeJudge) queue(duelID string, replies ...judgeReply) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.replies[duelID] = append(j.replies[duelID], replies...)
}

func (j *fakeJudge) calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.requests)
}

func (j *fakeJudge) Evaluate(ctx context.Context, req models.JudgeRequest) (*models.DuelResult, error) {
	if j.entered != nil {
		j.entered <- req.DuelID
	}
	if j.gate != nil {
		select {
		case <-j.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.requests = append(j.requests, req)
	q := j.replies[req.DuelID]
	if len(q) == 0 {
		return verdict(models.VerdictA).res, nil
	}
	j.replies[req.DuelID] = q[1:]
	return q[0].res, q[0].err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DuelEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.DuelEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []models.DuelEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.DuelEvent
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (p *recordingPublisher) transitionsTo(duelID string, to models.DuelStatus) int {
	n := 0
	for _, ev := range p.ofType(models.EventDuelStatusChange) {
		if ev.DuelID == duelID && ev.NewStatus == to {
			n++
		}
	}
	return n
}

type recordingArchiver struct {
	mu       sync.Mutex
	archived map[string][]*models.Duel
}

func (a *recordingArchiver) ArchiveBracket(_ context.Context, tournamentID string, duels []*models.Duel) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.archived == nil {
		a.archived = make(map[string][]*models.Duel)
	}
	a.archived[tournamentID] = duels
	return "mem://" + tournamentID, nil
}

type fixture struct {
	repo        *repositories.MemoryDuelRepository
	questions   *repositories.MemoryQuestionRepository
	judge       *fakeJudge
	pub         *recordingPublisher
	archiver    *recordingArchiver
	clock       *fakeClock
	duels       DuelService
	tournaments TournamentService
}

func newFixture(t *testing.T, maxRematches int) *fixture {
	t.Helper()
	f := &fixture{
		repo:      repositories.NewMemoryDuelRepository(),
		questions: repositories.NewMemoryQuestionRepository(questionPool(3)...),
		judge:     newFakeJudge(),
		pub:       &recordingPublisher{},
		archiver:  &recordingArchiver{},
		clock:     newFakeClock(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.duels = NewDuelService(f.repo, f.judge, f.pub, metrics.NewNoop(), logger, DuelServiceConfig{
		MaxRematches: maxRematches,
		Now:          f.clock.Now,
		Archiver:     f.archiver,
	})
	f.tournaments = NewTournamentService(f.repo, f.questions, nil, f.duels, f.pub, logger, TournamentServiceConfig{
		JudgeConcurrency: 4,
		Now:              f.clock.Now,
	})
	return f
}

func questionPool(n int) []*models.Question {
	qs := make([]*models.Question, n)
	for i := range qs {
		qs[i] = &models.Question{
			ID:               fmt.Sprintf("Q%d", i+1),
			Prompt:           fmt.Sprintf("prompt %d", i+1),
			TimeLimitSeconds: 60,
		}
	}
	return qs
}

func (f *fixture) initBracket(t *testing.T) *Bracket {
	t.Helper()
	b, err := f.tournaments.InitializeBracket(context.Background(), testTournament, InitializeBracketInput{
		TeamIDs: []string{"A", "B", "C", "D", "E", "F", "G", "H"},
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) get(t *testing.T, duelID string) *models.Duel {
	t.Helper()
	d, err := f.duels.Get(context.Background(), testTournament, duelID)
	require.NoError(t, err)
	return d
}

// playToAwaiting проводит дуэль от pending (или active) до awaiting_judgement.
func (f *fixture) playToAwaiting(t *testing.T, duelID string) {
	t.Helper()
	ctx := context.Background()
	d := f.get(t, duelID)
	if d.Status == models.DuelStatusPending {
		_, err := f.duels.Schedule(ctx, testTournament, duelID)
		require.NoError(t, err)
		d, err = f.duels.Start(ctx, testTournament, duelID)
		require.NoError(t, err)
	}
	require.Equal(t, models.DuelStatusActive, d.Status)
	_, err := f.duels.Submit(ctx, testTournament, duelID, models.SlotA, "answer A")
	require.NoError(t, err)
	d, err = f.duels.Submit(ctx, testTournament, duelID, models.SlotB, "answer B")
	require.NoError(t, err)
	require.Equal(t, models.DuelStatusAwaitingJudgement, d.Status)
}
