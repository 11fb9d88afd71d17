package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/duel-tournament/middleware"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/Dosada05/duel-tournament/repositories"
	"github.com/Dosada05/duel-tournament/services"
)

// VerdictOverrider принимает ручное решение оператора для конкретной попытки дуэли.
type VerdictOverrider interface {
	SetOverride(tournamentID, duelID string, rematchCount int, res models.DuelResult) error
}

type DuelHandler struct {
	duelService services.DuelService
	overrides   VerdictOverrider
}

func NewDuelHandler(duelService services.DuelService, overrides VerdictOverrider) *DuelHandler {
	return &DuelHandler{duelService: duelService, overrides: overrides}
}

func duelParams(r *http.Request) (tournamentID, duelID string, err error) {
	if tournamentID, err = getStringParam(r, "tournamentID"); err != nil {
		return "", "", err
	}
	if duelID, err = getStringParam(r, "duelID"); err != nil {
		return "", "", err
	}
	return tournamentID, duelID, nil
}

func (h *DuelHandler) ListDuels(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getStringParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var filter repositories.DuelFilter
	if raw := r.URL.Query().Get("round"); raw != "" {
		round, err := strconv.Atoi(raw)
		if err != nil || round < models.RoundQuarterfinal || round > models.RoundFinal {
			badRequestResponse(w, r, fmt.Errorf("invalid round %q", raw))
			return
		}
		filter.Round = &round
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.DuelStatus(raw)
		if !status.IsValid() {
			badRequestResponse(w, r, fmt.Errorf("invalid status %q", raw))
			return
		}
		filter.Status = &status
	}

	duels, err := h.duelService.List(r.Context(), tournamentID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"duels": duels}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DuelHandler) GetDuel(w http.ResponseWriter, r *http.Request) {
	tournamentID, duelID, err := duelParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	duel, err := h.duelService.Get(r.Context(), tournamentID, duelID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"duel": duel}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type duelAction func(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)

// transition делает обработчик для перехода без тела запроса.
func transition(action duelAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID, duelID, err := duelParams(r)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		duel, err := action(r.Context(), tournamentID, duelID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"duel": duel}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}

func (h *DuelHandler) ScheduleDuel(w http.ResponseWriter, r *http.Request) {
	transition(h.duelService.Schedule)(w, r)
}

func (h *DuelHandler) StartDuel(w http.ResponseWriter, r *http.Request) {
	transition(h.duelService.Start)(w, r)
}

func (h *DuelHandler) ExpireDuel(w http.ResponseWriter, r *http.Request) {
	transition(h.duelService.Expire)(w, r)
}

func (h *DuelHandler) JudgeDuel(w http.ResponseWriter, r *http.Request) {
	transition(h.duelService.Judge)(w, r)
}

// AdvanceDuel повторяет продвижение и возвращает дуэль следующего раунда.
func (h *DuelHandler) AdvanceDuel(w http.ResponseWriter, r *http.Request) {
	transition(h.duelService.Advance)(w, r)
}

type submitInput struct {
	Slot   models.Slot `json:"slot"`
	Answer string      `json:"answer"`
}

func (h *DuelHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	tournamentID, duelID, err := duelParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input submitInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !input.Slot.IsValid() {
		mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: got %q", services.ErrInvalidSlot, input.Slot))
		return
	}

	// Игрок отвечает только за свою команду; операторы могут вносить ответы за любую.
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	if role == models.RolePlayer {
		teamID, err := middleware.GetTeamIDFromContext(r.Context())
		if err != nil {
			forbiddenResponse(w, r, "token has no team")
			return
		}
		duel, err := h.duelService.Get(r.Context(), tournamentID, duelID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if team := duel.Team(input.Slot); team == nil || *team != teamID {
			forbiddenResponse(w, r, fmt.Sprintf("team %s does not play slot %s", teamID, input.Slot))
			return
		}
	}

	duel, err := h.duelService.Submit(r.Context(), tournamentID, duelID, input.Slot, input.Answer)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"duel": duel}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type overrideInput struct {
	Winner     models.Verdict    `json:"winner"`
	Confidence models.Confidence `json:"confidence"`
	Reason     string            `json:"reason"`
	Scores     models.Scores     `json:"scores"`
	// RematchCount по умолчанию - текущая попытка дуэли.
	RematchCount *int `json:"rematch_count,omitempty"`
	// Judge сразу применяет решение.
	Judge bool `json:"judge"`
}

func (h *DuelHandler) OverrideVerdict(w http.ResponseWriter, r *http.Request) {
	if h.overrides == nil {
		errorResponse(w, r, http.StatusNotImplemented, "manual verdicts are disabled")
		return
	}
	tournamentID, duelID, err := duelParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input overrideInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	duel, err := h.duelService.Get(r.Context(), tournamentID, duelID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	attempt := duel.RematchCount
	if input.RematchCount != nil {
		attempt = *input.RematchCount
	}

	err = h.overrides.SetOverride(tournamentID, duelID, attempt, models.DuelResult{
		Winner:     input.Winner,
		Confidence: input.Confidence,
		Reason:     input.Reason,
		Scores:     input.Scores,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if input.Judge {
		duel, err = h.duelService.Judge(r.Context(), tournamentID, duelID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"duel": duel, "rematch_count": attempt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
