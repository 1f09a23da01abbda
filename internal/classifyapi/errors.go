package classifyapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceError is any failed classification request: a transport failure,
// a non-success status, or a body that could not be decoded. Detail holds the
// service's human-readable message when it sent one.
type ServiceError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("classifyapi: ")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "status %d", e.StatusCode)
	} else {
		b.WriteString("request failed")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// parseDetail pulls the "detail" field out of an error body. Validation
// errors carry a list of {msg} objects; those messages are joined.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
