package notifier

import (
	"fmt"
	"time"
)

// RateLimitError represents a 429 response from the bot service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx response from the bot service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx response from the bot service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// ApiErrorResponse is the error body returned by the bot API.
type ApiErrorResponse struct {
	Description      string   `json:"description"`
	Code             string   `json:"code"`
	ExceptionName    string   `json:"exceptionName"`
	ExceptionMessage string   `json:"exceptionMessage"`
	Stacktrace       []string `json:"stacktrace,omitempty"`
}

// summary renders the most useful part of the error body.
func (r ApiErrorResponse) summary() string {
	switch {
	case r.Description != "" && r.ExceptionMessage != "":
		return r.Description + ": " + r.ExceptionMessage
	case r.Description != "":
		return r.Description
	default:
		return r.ExceptionMessage
	}
}

// truncateBody keeps raw response bodies short enough for log lines.
func truncateBody(body []byte, maxLength int) string {
	if len(body) <= maxLength {
		return string(body)
	}
	return string(body[:maxLength]) + "..."
}
