package judges

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/duel-tournament/models"
)

const defaultJudgeTimeout = 30 * time.Second

type HTTPJudgeConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPJudge обращается к внешнему сервису оценки: POST {base}/evaluate.
type HTTPJudge struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPJudge(cfg HTTPJudgeConfig) *HTTPJudge {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultJudgeTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPJudge{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: client,
	}
}

type evaluateQuestion struct {
	ID             string   `json:"id"`
	Prompt         string   `json:"prompt"`
	ExpectedAnswer string   `json:"expected_answer,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

type evaluateRequest struct {
	TournamentID string            `json:"tournament_id"`
	DuelID       string            `json:"duel_id"`
	RematchCount int               `json:"rematch_count"`
	Question     evaluateQuestion  `json:"question"`
	SubmissionA  models.Submission `json:"submission_a"`
	SubmissionB  models.Submission `json:"submission_b"`
}

func (j *HTTPJudge) Evaluate(ctx context.Context, req models.JudgeRequest) (*models.DuelResult, error) {
	body, err := json.Marshal(evaluateRequest{
		TournamentID: req.TournamentID,
		DuelID:       req.DuelID,
		RematchCount: req.RematchCount,
		Question: evaluateQuestion{
			ID:             req.Question.ID,
			Prompt:         req.Question.Prompt,
			ExpectedAnswer: req.Question.ExpectedAnswer,
			Tags:           req.Question.Tags,
		},
		SubmissionA: req.SubmissionA,
		SubmissionB: req.SubmissionB,
	})
	if err != nil {
		return nil, fmt.Errorf("judge: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if j.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+j.apiKey)
	}

	resp, err := j.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("judge: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res models.DuelResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformedVerdict, err)
	}
	if err := checkResult(&res); err != nil {
		return nil, err
	}
	// Признак тай-брейка ставит только автомат дуэли.
	res.Forced = false
	return &res, nil
}
