package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aims-registration-api/internal/dto"
	"github.com/noah-isme/aims-registration-api/internal/ledger"
	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
	"github.com/noah-isme/aims-registration-api/pkg/jobs"
)

// PersistJobType labels background flush jobs.
const PersistJobType = "registration.flush"

// Ledger operation names used in metrics and logs.
const (
	OpAdd         = "add"
	OpDrop        = "drop"
	OpSetType     = "set_type"
	OpSaveDraft   = "save_draft"
	OpSubmit      = "submit"
	OpSetDeadline = "set_deadline"
)

type retryDispatcher interface {
	Enqueue(job jobs.Job) (bool, error)
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type catalogInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// RegistrationConfig holds the ledger defaults applied to every student.
type RegistrationConfig struct {
	Rules    models.CreditRules
	Deadline time.Time
	Clock    func() time.Time
}

// RegistrationService owns the per-student ledgers. Operations on one student
// are serialised; different students proceed in parallel and meet only at the
// shared seat counter.
type RegistrationService struct {
	seats     ledger.SeatCounter
	store     ledger.Store
	students  studentDirectory
	catalog   catalogInvalidator
	queue     retryDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RegistrationConfig

	mu      sync.Mutex
	ledgers map[string]*ledgerEntry
}

type ledgerEntry struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
}

// NewRegistrationService constructs a RegistrationService. students, catalog,
// queue and metrics are optional.
func NewRegistrationService(
	seats ledger.SeatCounter,
	store ledger.Store,
	students studentDirectory,
	catalog catalogInvalidator,
	queue retryDispatcher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RegistrationConfig,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &RegistrationService{
		seats:     seats,
		store:     store,
		students:  students,
		catalog:   catalog,
		queue:     queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		ledgers:   make(map[string]*ledgerEntry),
	}
}

// View returns the student's current ledger.
func (s *RegistrationService) View(ctx context.Context, studentID string) (*models.LedgerView, error) {
	return s.withLedger(ctx, studentID, "", func(l *ledger.Ledger) error { return nil })
}

// AddCourse selects a course for the student.
func (s *RegistrationService) AddCourse(ctx context.Context, studentID string, req dto.AddCourseRequest) (*models.LedgerView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course selection payload")
	}
	regType, err := models.ParseRegistrationType(req.RegistrationType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	courseID := strings.TrimSpace(req.CourseID)

	return s.withLedger(ctx, studentID, OpAdd, func(l *ledger.Ledger) error {
		selection, err := l.Add(ctx, courseID, regType)
		if selection != nil {
			s.seatsChanged(ctx, selection.Course)
		}
		return err
	})
}

// DropCourse removes a course. Dropping an unselected course succeeds.
func (s *RegistrationService) DropCourse(ctx context.Context, studentID, courseID string) (*models.LedgerView, error) {
	courseID = strings.TrimSpace(courseID)
	return s.withLedger(ctx, studentID, OpDrop, func(l *ledger.Ledger) error {
		before := len(l.Selections())
		err := l.Drop(ctx, courseID)
		if len(l.Selections()) < before {
			if course, lookupErr := s.seats.Lookup(ctx, courseID); lookupErr == nil {
				s.seatsChanged(ctx, course)
			}
		}
		return err
	})
}

// UpdateRegistrationType changes the type of a selected course.
func (s *RegistrationService) UpdateRegistrationType(ctx context.Context, studentID, courseID string, req dto.UpdateRegistrationTypeRequest) (*models.LedgerView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration type payload")
	}
	regType, err := models.ParseRegistrationType(req.RegistrationType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return s.withLedger(ctx, studentID, OpSetType, func(l *ledger.Ledger) error {
		return l.SetRegistrationType(ctx, strings.TrimSpace(courseID), regType)
	})
}

// SaveDraft snapshots the student's selections.
func (s *RegistrationService) SaveDraft(ctx context.Context, studentID string) (*models.LedgerView, error) {
	return s.withLedger(ctx, studentID, OpSaveDraft, func(l *ledger.Ledger) error {
		return l.SaveDraft(ctx)
	})
}

// Submit marks the student's ledger as submitted.
func (s *RegistrationService) Submit(ctx context.Context, studentID string) (*models.LedgerView, error) {
	return s.withLedger(ctx, studentID, OpSubmit, func(l *ledger.Ledger) error {
		return l.Submit(ctx)
	})
}

// SetDeadline moves a student's submission deadline. Unknown students are
// rejected when a directory is configured.
func (s *RegistrationService) SetDeadline(ctx context.Context, studentID string, req dto.SetDeadlineRequest) (*models.LedgerView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deadline payload")
	}
	deadline, err := ledger.ParseDeadline(strings.TrimSpace(req.Deadline))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "deadline must be an ISO-8601 timestamp")
	}
	if s.students != nil {
		user, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if user.Role != models.RoleStudent {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
	}
	return s.withLedger(ctx, studentID, OpSetDeadline, func(l *ledger.Ledger) error {
		return l.SetDeadline(ctx, deadline)
	})
}

// HandlePersistRetry is the queue handler that rewrites a student's ledger
// after an earlier write failed.
func (s *RegistrationService) HandlePersistRetry(ctx context.Context, job jobs.Job) error {
	studentID, _ := job.Payload.(string)
	s.mu.Lock()
	entry, ok := s.ledgers[studentID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ledger == nil {
		return nil
	}
	if err := entry.ledger.Flush(ctx); err != nil {
		s.metrics.RecordPersistRetry("failed")
		return err
	}
	s.metrics.RecordPersistRetry(ResultOK)
	s.logger.Info("registration flushed after retry", zap.String("student_id", studentID), zap.Int("attempt", job.Attempt))
	return nil
}

// PersistRetryExhausted logs a flush that will not be retried again. The
// ledger still holds the state in memory and the next mutation writes it.
func (s *RegistrationService) PersistRetryExhausted(job jobs.Job, err error) {
	s.metrics.RecordPersistRetry("exhausted")
	studentID, _ := job.Payload.(string)
	s.logger.Error("registration flush abandoned", zap.String("student_id", studentID), zap.Error(err))
}

// ActiveLedgers returns the number of ledgers held in memory.
func (s *RegistrationService) ActiveLedgers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledgers)
}

func (s *RegistrationService) withLedger(ctx context.Context, studentID, op string, fn func(*ledger.Ledger) error) (*models.LedgerView, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student identity required")
	}
	entry := s.entry(studentID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.ledger == nil {
		l, err := ledger.Load(ctx, ledger.Config{
			StudentID: studentID,
			Seats:     s.seats,
			Store:     s.store,
			Rules:     s.cfg.Rules,
			Deadline:  s.cfg.Deadline,
			Clock:     s.cfg.Clock,
			Logger:    s.logger,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
		}
		entry.ledger = l
	}

	err := fn(entry.ledger)
	if op != "" {
		s.metrics.RecordOperation(op, resultLabel(err))
	}
	if err != nil {
		if errors.Is(err, appErrors.ErrPersistence) {
			s.scheduleFlush(studentID)
		}
		return nil, err
	}
	if op != "" {
		s.logger.Debug("registration updated", zap.String("student_id", studentID), zap.String("op", op))
	}
	view := entry.ledger.View()
	return &view, nil
}

func (s *RegistrationService) entry(studentID string) *ledgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.ledgers[studentID]
	if !ok {
		entry = &ledgerEntry{}
		s.ledgers[studentID] = entry
		s.metrics.SetActiveLedgers(len(s.ledgers))
	}
	return entry
}

func (s *RegistrationService) scheduleFlush(studentID string) {
	if s.queue == nil {
		return
	}
	accepted, err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Key:     studentID,
		Type:    PersistJobType,
		Payload: studentID,
	})
	if err != nil {
		s.logger.Error("failed to schedule registration flush", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if accepted {
		s.logger.Warn("registration flush scheduled", zap.String("student_id", studentID))
	}
}

func (s *RegistrationService) seatsChanged(ctx context.Context, course models.CourseOffering) {
	s.metrics.ObserveSeatFill(course)
	if s.catalog != nil {
		s.catalog.InvalidateCache(ctx)
	}
}

func resultLabel(err error) string {
	if err == nil {
		return ResultOK
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}
