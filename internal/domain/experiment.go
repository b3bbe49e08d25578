package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// StatusValue is the lifecycle state reported by the backend for an experiment.
type StatusValue string

const (
	StatusPending   StatusValue = "pending"
	StatusRunning   StatusValue = "running"
	StatusCompleted StatusValue = "completed"
	StatusFailed    StatusValue = "failed"
	StatusCancelled StatusValue = "cancelled"
)

// IsTerminal reports whether no further transition is expected after s.
// Unknown values are treated as non-terminal so polling keeps going.
func (s StatusValue) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ExperimentStatus is the payload of GET /llms/experiment/{id}/status.
type ExperimentStatus struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	OriginalMessage string       `json:"original_message"`
	Status          StatusValue  `json:"status"`
	CreatedAt       BackendTime  `json:"created_at"`
	UpdatedAt       *BackendTime `json:"updated_at,omitempty"`
	ErrorMessage    *string      `json:"error_message,omitempty"`
	Responses       []Response   `json:"responses"`
}

// Clone returns a deep copy so callers can hand it out without sharing slices.
func (s *ExperimentStatus) Clone() *ExperimentStatus {
	if s == nil {
		return nil
	}
	c := *s
	if s.Responses != nil {
		c.Responses = make([]Response, len(s.Responses))
		copy(c.Responses, s.Responses)
	}
	return &c
}

// Response is one per-model/per-parameter answer stored by the backend.
type Response struct {
	ID            string      `json:"id"`
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	Temperature   float64     `json:"temperature"`
	TopP          float64     `json:"top_p"`
	ResponseText  string      `json:"response_text"`
	TokensUsed    *int        `json:"tokens_used,omitempty"`
	ExecutionTime float64     `json:"execution_time"`
	Success       bool        `json:"success"`
	Error         *string     `json:"error,omitempty"`
	CreatedAt     BackendTime `json:"created_at"`
}

// Result is the display shape of a response.
type Result struct {
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	Response      string  `json:"response"`
	TokensUsed    *int    `json:"tokens_used,omitempty"`
	ExecutionTime float64 `json:"execution_time"`
	Success       bool    `json:"success"`
	Error         *string `json:"error,omitempty"`
}

// ResultsFromResponses maps responses 1:1 into results, preserving order.
func ResultsFromResponses(responses []Response) []Result {
	results := make([]Result, len(responses))
	for i, r := range responses {
		results[i] = Result{
			Provider:      r.Provider,
			Model:         r.Model,
			Temperature:   r.Temperature,
			TopP:          r.TopP,
			Response:      r.ResponseText,
			TokensUsed:    r.TokensUsed,
			ExecutionTime: r.ExecutionTime,
			Success:       r.Success,
			Error:         r.Error,
		}
	}
	return results
}

// ExperimentSummary is an entry of GET /experiments.
type ExperimentSummary struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedAt BackendTime `json:"created_at"`
}

// ExperimentDetail is the payload of GET /experiments/{id}. The backend also
// sends the raw response rows under "results"; only the normalised
// llm_results list is read.
type ExperimentDetail struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	OriginalMessage string      `json:"original_message"`
	CreatedAt       BackendTime `json:"created_at"`
	Results         []Result    `json:"llm_results"`
}

// CancelResponse acknowledges POST /llms/experiment/{id}/cancel.
type CancelResponse struct {
	Message   string `json:"message"`
	Cancelled bool   `json:"cancelled"`
}

// BackendTime is a timestamp as sent by the backend, either an ISO 8601
// string or float seconds since the Unix epoch. Numbers are stored as
// RFC 3339 in UTC.
type BackendTime string

func (t *BackendTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = BackendTime(s)
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	whole, frac := math.Modf(secs)
	*t = BackendTime(time.Unix(int64(whole), int64(math.Round(frac*1e3))*int64(time.Millisecond)).UTC().Format(time.RFC3339Nano))
	return nil
}

// Time parses t, returning the zero time if it is empty or unparseable.
func (t BackendTime) Time() time.Time {
	return parseBackendTime(string(t))
}

// CreatedTime parses CreatedAt, returning the zero time if the backend sent
// something unparseable.
func (s ExperimentSummary) CreatedTime() time.Time {
	return s.CreatedAt.Time()
}

func (d ExperimentDetail) CreatedTime() time.Time {
	return d.CreatedAt.Time()
}

func parseBackendTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
