package models

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationType explains why a student is taking a course.
type RegistrationType string

// Supported registration types.
const (
	RegistrationRegular     RegistrationType = "Regular"
	RegistrationBacklog     RegistrationType = "Backlog"
	RegistrationImprovement RegistrationType = "Improvement"
	RegistrationHonours     RegistrationType = "Honours"
)

// Valid reports whether the type is one of the known values.
func (t RegistrationType) Valid() bool {
	switch t {
	case RegistrationRegular, RegistrationBacklog, RegistrationImprovement, RegistrationHonours:
		return true
	}
	return false
}

// ParseRegistrationType maps user input onto the closed set of types.
// Empty input and "Departmental Core" both mean a regular load.
func ParseRegistrationType(raw string) (RegistrationType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "regular", "departmental core":
		return RegistrationRegular, nil
	case "backlog":
		return RegistrationBacklog, nil
	case "improvement":
		return RegistrationImprovement, nil
	case "honours", "honors":
		return RegistrationHonours, nil
	}
	return "", fmt.Errorf("unknown registration type %q", raw)
}

// Selection pairs a student with a course offering.
type Selection struct {
	ID               string           `json:"id"`
	StudentID        string           `json:"student_id"`
	Course           CourseOffering   `json:"course"`
	RegistrationType RegistrationType `json:"registration_type"`
	AddedAt          time.Time        `json:"added_at"`
}

// Credits returns the credit weight of the selected course.
func (s Selection) Credits() int {
	return s.Course.Credits
}

// LedgerStatus is the derived state of a registration ledger.
type LedgerStatus string

// Ledger states. SubmittedLocked is terminal.
const (
	LedgerNotStarted        LedgerStatus = "NOT_STARTED"
	LedgerDraftInProgress   LedgerStatus = "DRAFT_IN_PROGRESS"
	LedgerSubmittedEditable LedgerStatus = "SUBMITTED_EDITABLE"
	LedgerSubmittedLocked   LedgerStatus = "SUBMITTED_LOCKED"
)

// CreditRules bounds the total credit load of a ledger.
type CreditRules struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// LedgerView is a read-only snapshot of a student's ledger.
type LedgerView struct {
	StudentID    string       `json:"student_id"`
	Selections   []Selection  `json:"selections"`
	Submitted    bool         `json:"submitted"`
	LastSavedAt  *time.Time   `json:"last_saved_at,omitempty"`
	Deadline     time.Time    `json:"submission_deadline"`
	TotalCredits int          `json:"total_credits"`
	BelowMinimum bool         `json:"below_minimum"`
	Progress     float64      `json:"progress"`
	Status       LedgerStatus `json:"status"`
	Rules        CreditRules  `json:"credit_rules"`
}
