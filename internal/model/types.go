package model

import "time"

type Outcome string

const (
	OutcomeFailed      Outcome = "failed"
	OutcomeInvalidUser Outcome = "invalid_user"
	OutcomeAccepted    Outcome = "accepted"
)

// Counted reports whether the outcome contributes to attack statistics.
// Accepted logins are recognized but never counted.
func (o Outcome) Counted() bool {
	return o == OutcomeFailed || o == OutcomeInvalidUser
}

type LoginAttempt struct {
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	SourceIP  string    `json:"source_ip"`
	Outcome   Outcome   `json:"outcome"`
	Raw       string    `json:"raw,omitempty"`
}

type UserCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

type HourCount struct {
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
}

// Snapshot is a frozen view of the aggregate counters. It is never mutated
// after construction and is safe to share across any number of readers.
type Snapshot struct {
	TopUsers    []UserCount `json:"top_users"`
	TopIPs      []IPCount   `json:"top_ips"`
	Hourly      []HourCount `json:"hourly"`
	GeneratedAt time.Time   `json:"generated_at"`
}
