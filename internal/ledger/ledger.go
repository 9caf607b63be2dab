// Package ledger implements per-student course registration accounting:
// seat reservations, credit limits and the submit/lock state machine.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

// Durable store keys, namespaced per student by Key.
const (
	KeyRegisteredCourses = "registered_courses"
	KeySubmitted         = "course_submitted"
	KeyLastSaved         = "course_last_saved"
	KeyDraft             = "course_draft"
	KeyDeadline          = "course_deadline"
)

// LastSavedLayout is the human-readable layout stored under KeyLastSaved.
const LastSavedLayout = "2006-01-02 15:04:05"

// DeadlineLayout is the ISO-8601 layout stored under KeyDeadline.
const DeadlineLayout = "2006-01-02T15:04:05"

// Errors returned by ledger operations. They alias pkg/errors values so that
// errors.Is works against either.
var (
	ErrLocked              = appErrors.ErrLocked
	ErrAlreadyAdded        = appErrors.ErrAlreadyAdded
	ErrSeatsFull           = appErrors.ErrSeatsFull
	ErrCreditLimitExceeded = appErrors.ErrCreditLimitExceeded
	ErrEmptySelection      = appErrors.ErrEmptySelection
	ErrNotFound            = appErrors.ErrNotFound
	ErrPersistence         = appErrors.ErrPersistence
)

// SeatCounter is the authoritative holder of course fill counts. Reserve must
// atomically increment only while below capacity; Release must never drive a
// count below zero.
type SeatCounter interface {
	Lookup(ctx context.Context, courseID string) (models.CourseOffering, error)
	Reserve(ctx context.Context, courseID string) (int, error)
	Release(ctx context.Context, courseID string) (int, error)
}

// Store is a durable key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Config wires a ledger to its collaborators.
type Config struct {
	StudentID string
	Seats     SeatCounter
	Store     Store
	Rules     models.CreditRules
	// Deadline applies when the store holds no course_deadline for the student.
	Deadline time.Time
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Ledger tracks one student's course selections. It is not safe for
// concurrent use; callers serialise operations per student.
type Ledger struct {
	studentID string
	seats     SeatCounter
	store     Store
	rules     models.CreditRules
	deadline  time.Time
	now       func() time.Time
	logger    *zap.Logger

	selections  []models.Selection
	submitted   bool
	lastSavedAt *time.Time
}

// Key returns the durable key for a student-scoped value.
func Key(studentID, name string) string {
	return fmt.Sprintf("registration:%s:%s", studentID, name)
}

// New builds an empty ledger.
func New(cfg Config) (*Ledger, error) {
	if cfg.StudentID == "" {
		return nil, fmt.Errorf("ledger: student id required")
	}
	if cfg.Seats == nil {
		return nil, fmt.Errorf("ledger: seat counter required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger: store required")
	}
	if cfg.Rules.Max <= 0 || cfg.Rules.Min < 0 || cfg.Rules.Min > cfg.Rules.Max {
		return nil, fmt.Errorf("ledger: invalid credit rules %d..%d", cfg.Rules.Min, cfg.Rules.Max)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Ledger{
		studentID:  cfg.StudentID,
		seats:      cfg.Seats,
		store:      cfg.Store,
		rules:      cfg.Rules,
		deadline:   cfg.Deadline,
		now:        cfg.Clock,
		logger:     cfg.Logger.With(zap.String("student_id", cfg.StudentID)),
		selections: []models.Selection{},
	}, nil
}

// Load builds a ledger and restores its state from the store.
func Load(ctx context.Context, cfg Config) (*Ledger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}

	raw, ok, err := l.store.Get(ctx, l.key(KeyRegisteredCourses))
	if err != nil {
		return nil, fmt.Errorf("load registered courses: %w", err)
	}
	if ok && raw != "" {
		var selections []models.Selection
		if err := json.Unmarshal([]byte(raw), &selections); err != nil {
			return nil, fmt.Errorf("decode registered courses: %w", err)
		}
		l.selections = selections
	}

	raw, ok, err = l.store.Get(ctx, l.key(KeySubmitted))
	if err != nil {
		return nil, fmt.Errorf("load submitted flag: %w", err)
	}
	l.submitted = ok && raw == "true"

	raw, ok, err = l.store.Get(ctx, l.key(KeyLastSaved))
	if err != nil {
		return nil, fmt.Errorf("load last saved: %w", err)
	}
	if ok {
		if ts, err := time.Parse(LastSavedLayout, raw); err == nil {
			l.lastSavedAt = &ts
		} else {
			l.logger.Warn("ignoring unreadable last saved timestamp", zap.String("value", raw))
		}
	}

	raw, ok, err = l.store.Get(ctx, l.key(KeyDeadline))
	if err != nil {
		return nil, fmt.Errorf("load deadline: %w", err)
	}
	if ok && raw != "" {
		deadline, err := ParseDeadline(raw)
		if err != nil {
			return nil, fmt.Errorf("decode deadline: %w", err)
		}
		l.deadline = deadline
	}

	return l, nil
}

// ParseDeadline accepts RFC 3339 or a zone-less ISO-8601 timestamp (read as UTC).
func ParseDeadline(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse(DeadlineLayout, raw)
}

// StudentID returns the owner of the ledger.
func (l *Ledger) StudentID() string {
	return l.studentID
}

// Add selects a course. Checks run in a fixed order and the first failure is
// reported with no side effects: locked, already added, unknown course, seats
// full, credit limit.
func (l *Ledger) Add(ctx context.Context, courseID string, regType models.RegistrationType) (*models.Selection, error) {
	if l.frozen() {
		return nil, appErrors.Clone(appErrors.ErrLocked, "registration is locked after the submission deadline")
	}
	if regType == "" {
		regType = models.RegistrationRegular
	}
	if !regType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown registration type %q", regType))
	}
	if l.indexOf(courseID) >= 0 {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAdded, fmt.Sprintf("course %s already added", courseID))
	}
	course, err := l.seats.Lookup(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.IsFull() {
		return nil, appErrors.Clone(appErrors.ErrSeatsFull, fmt.Sprintf("course %s has no seats available", courseID))
	}
	if l.TotalCredits()+course.Credits > l.rules.Max {
		return nil, appErrors.Clone(appErrors.ErrCreditLimitExceeded, fmt.Sprintf("adding %s would exceed %d credits", courseID, l.rules.Max))
	}

	// The counter re-checks capacity atomically; another ledger may have
	// taken the last seat since Lookup.
	filled, err := l.seats.Reserve(ctx, courseID)
	if err != nil {
		return nil, err
	}
	course.FilledSeats = filled

	now := l.now()
	selection := models.Selection{
		ID:               uuid.NewString(),
		StudentID:        l.studentID,
		Course:           course,
		RegistrationType: regType,
		AddedAt:          now,
	}
	l.selections = append(l.selections, selection)
	l.lastSavedAt = &now

	if err := l.persistSelections(ctx); err != nil {
		return &selection, err
	}
	return &selection, nil
}

// Drop removes a course. Dropping a course that is not selected is a no-op.
func (l *Ledger) Drop(ctx context.Context, courseID string) error {
	if l.frozen() {
		return appErrors.Clone(appErrors.ErrLocked, "registration is locked after the submission deadline")
	}
	idx := l.indexOf(courseID)
	if idx < 0 {
		return nil
	}
	if _, err := l.seats.Release(ctx, courseID); err != nil {
		return err
	}

	l.selections = append(l.selections[:idx:idx], l.selections[idx+1:]...)
	now := l.now()
	l.lastSavedAt = &now

	return l.persistSelections(ctx)
}

// SetRegistrationType changes the type of an existing selection. It has no
// effect on seats or credits and is a no-op for unselected courses.
func (l *Ledger) SetRegistrationType(ctx context.Context, courseID string, regType models.RegistrationType) error {
	if l.frozen() {
		return appErrors.Clone(appErrors.ErrLocked, "registration is locked after the submission deadline")
	}
	if !regType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown registration type %q", regType))
	}
	idx := l.indexOf(courseID)
	if idx < 0 || l.selections[idx].RegistrationType == regType {
		return nil
	}
	l.selections[idx].RegistrationType = regType
	now := l.now()
	l.lastSavedAt = &now

	return l.persistSelections(ctx)
}

// SaveDraft writes a snapshot of the current selections to the draft key.
// The submitted flag is untouched.
func (l *Ledger) SaveDraft(ctx context.Context) error {
	if l.frozen() {
		return appErrors.Clone(appErrors.ErrLocked, "registration is locked after the submission deadline")
	}
	now := l.now()
	l.lastSavedAt = &now

	payload, err := json.Marshal(l.selections)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := l.store.Set(ctx, l.key(KeyDraft), string(payload)); err != nil {
		return l.persistFailure(err)
	}
	if err := l.store.Set(ctx, l.key(KeyLastSaved), now.Format(LastSavedLayout)); err != nil {
		return l.persistFailure(err)
	}
	return nil
}

// Submit marks the ledger as submitted. Credit bounds are not validated here:
// the maximum is enforced on Add and the minimum is only a warning.
func (l *Ledger) Submit(ctx context.Context) error {
	if l.frozen() {
		return appErrors.Clone(appErrors.ErrLocked, "registration is locked after the submission deadline")
	}
	if len(l.selections) == 0 {
		return appErrors.Clone(appErrors.ErrEmptySelection, "select at least one course before submitting")
	}
	if l.submitted {
		return nil
	}
	l.submitted = true
	if err := l.store.Set(ctx, l.key(KeySubmitted), "true"); err != nil {
		return l.persistFailure(err)
	}
	return nil
}

// SetDeadline moves the submission deadline. A ledger that is already locked
// stays locked.
func (l *Ledger) SetDeadline(ctx context.Context, deadline time.Time) error {
	if l.frozen() {
		return appErrors.Clone(appErrors.ErrLocked, "registration is already locked")
	}
	l.deadline = deadline
	if err := l.store.Set(ctx, l.key(KeyDeadline), deadline.UTC().Format(DeadlineLayout)); err != nil {
		return l.persistFailure(err)
	}
	return nil
}

// Flush rewrites every persisted key from memory. It is used to retry after a
// failed write.
func (l *Ledger) Flush(ctx context.Context) error {
	if err := l.persistSelections(ctx); err != nil {
		return err
	}
	if l.submitted {
		if err := l.store.Set(ctx, l.key(KeySubmitted), "true"); err != nil {
			return l.persistFailure(err)
		}
	}
	return nil
}

// TotalCredits sums the credits of all selections.
func (l *Ledger) TotalCredits() int {
	total := 0
	for _, s := range l.selections {
		total += s.Credits()
	}
	return total
}

// IsBelowMinimum reports the soft warning shown while drafting.
func (l *Ledger) IsBelowMinimum() bool {
	total := l.TotalCredits()
	return total > 0 && total < l.rules.Min && !l.submitted
}

// ProgressFraction is the share of the maximum load already selected, capped at 1.
func (l *Ledger) ProgressFraction() float64 {
	if l.rules.Max <= 0 {
		return 0
	}
	fraction := float64(l.TotalCredits()) / float64(l.rules.Max)
	if fraction > 1 {
		return 1
	}
	return fraction
}

// Status derives the ledger state. The clock alone moves a submitted ledger
// from editable to locked.
func (l *Ledger) Status() models.LedgerStatus {
	switch {
	case l.frozen():
		return models.LedgerSubmittedLocked
	case l.submitted:
		return models.LedgerSubmittedEditable
	case len(l.selections) > 0:
		return models.LedgerDraftInProgress
	default:
		return models.LedgerNotStarted
	}
}

// Selections returns a copy of the selections in insertion order.
func (l *Ledger) Selections() []models.Selection {
	out := make([]models.Selection, len(l.selections))
	copy(out, l.selections)
	return out
}

// Submitted reports whether the ledger has been submitted.
func (l *Ledger) Submitted() bool {
	return l.submitted
}

// Deadline returns the submission deadline.
func (l *Ledger) Deadline() time.Time {
	return l.deadline
}

// View returns a snapshot suitable for rendering.
func (l *Ledger) View() models.LedgerView {
	view := models.LedgerView{
		StudentID:    l.studentID,
		Selections:   l.Selections(),
		Submitted:    l.submitted,
		Deadline:     l.deadline,
		TotalCredits: l.TotalCredits(),
		BelowMinimum: l.IsBelowMinimum(),
		Progress:     l.ProgressFraction(),
		Status:       l.Status(),
		Rules:        l.rules,
	}
	if l.lastSavedAt != nil {
		ts := *l.lastSavedAt
		view.LastSavedAt = &ts
	}
	return view
}

func (l *Ledger) frozen() bool {
	return l.submitted && l.now().After(l.deadline)
}

func (l *Ledger) indexOf(courseID string) int {
	for i, s := range l.selections {
		if s.Course.ID == courseID {
			return i
		}
	}
	return -1
}

func (l *Ledger) key(name string) string {
	return Key(l.studentID, name)
}

// persistSelections writes through after the in-memory mutation. A failed
// write leaves memory as-is and is reported as ErrPersistence.
func (l *Ledger) persistSelections(ctx context.Context) error {
	payload, err := json.Marshal(l.selections)
	if err != nil {
		return fmt.Errorf("encode registered courses: %w", err)
	}
	if err := l.store.Set(ctx, l.key(KeyRegisteredCourses), string(payload)); err != nil {
		return l.persistFailure(err)
	}
	if l.lastSavedAt != nil {
		if err := l.store.Set(ctx, l.key(KeyLastSaved), l.lastSavedAt.Format(LastSavedLayout)); err != nil {
			return l.persistFailure(err)
		}
	}
	return nil
}

func (l *Ledger) persistFailure(err error) error {
	if errors.Is(err, context.Canceled) {
		l.logger.Info("registration write cancelled", zap.Error(err))
	} else {
		l.logger.Error("registration write failed", zap.Error(err))
	}
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
}
