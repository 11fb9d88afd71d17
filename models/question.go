package models

import "time"

// DefaultQuestionTimeLimit применяется, если у вопроса не задан лимит времени.
const DefaultQuestionTimeLimit = 10 * time.Minute

type Question struct {
	ID               string   `json:"id"`
	Prompt           string   `json:"prompt"`
	ExpectedAnswer   string   `json:"expected_answer"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
	Tags             []string `json:"tags,omitempty"`
}

func (q *Question) TimeLimit() time.Duration {
	if q.TimeLimitSeconds <= 0 {
		return DefaultQuestionTimeLimit
	}
	return time.Duration(q.TimeLimitSeconds) * time.Second
}
