package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Dosada05/duel-tournament/models"
)

// BracketKey - ключ объекта с итоговой сеткой турнира.
func BracketKey(tournamentID string) string {
	return "tournaments/" + url.PathEscape(tournamentID) + "/bracket.json"
}

type archivedBracket struct {
	TournamentID   string         `json:"tournament_id"`
	ArchivedAt     time.Time      `json:"archived_at"`
	ChampionTeamID *string        `json:"champion_team_id,omitempty"`
	Duels          []*models.Duel `json:"duels"`
}

// BracketArchive сохраняет завершенную сетку турнира одним JSON-документом.
type BracketArchive struct {
	uploader FileUploader
	now      func() time.Time
}

func NewBracketArchive(uploader FileUploader) *BracketArchive {
	return &BracketArchive{uploader: uploader, now: func() time.Time { return time.Now().UTC() }}
}

func (a *BracketArchive) ArchiveBracket(ctx context.Context, tournamentID string, duels []*models.Duel) (string, error) {
	doc := archivedBracket{TournamentID: tournamentID, ArchivedAt: a.now(), Duels: duels}
	for _, d := range duels {
		if d.Round == models.RoundFinal && d.Status == models.DuelStatusJudged {
			doc.ChampionTeamID = d.WinnerTeamID
		}
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode bracket %s: %w", tournamentID, err)
	}

	key := BracketKey(tournamentID)
	res, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if res.Location != "" {
		return res.Location, nil
	}
	return key, nil
}
