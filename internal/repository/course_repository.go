package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

const courseColumns = `id, name, faculty, credits, semester, category, total_seats, filled_seats, registration_opens, registration_closes, drop_deadline`

// CourseRepository keeps offerings in PostgreSQL. Seat changes are single
// conditional UPDATE statements, so the row is the authoritative counter.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Seed inserts offerings that do not exist yet; existing fill counts are kept.
func (r *CourseRepository) Seed(ctx context.Context, offerings []models.CourseOffering) error {
	if len(offerings) == 0 {
		return nil
	}
	const query = `INSERT INTO course_offerings (` + courseColumns + `)
        VALUES (:id, :name, :faculty, :credits, :semester, :category, :total_seats, :filled_seats, :registration_opens, :registration_closes, :drop_deadline)
        ON CONFLICT (id) DO NOTHING`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed catalog: %w", err)
	}
	for i := range offerings {
		if _, err := tx.NamedExecContext(ctx, query, &offerings[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("seed course %s: %w", offerings[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed catalog: %w", err)
	}
	return nil
}

// List returns every offering ordered by semester then id.
func (r *CourseRepository) List(ctx context.Context) ([]models.CourseOffering, error) {
	query := `SELECT ` + courseColumns + ` FROM course_offerings ORDER BY semester, id`
	var offerings []models.CourseOffering
	if err := r.db.SelectContext(ctx, &offerings, query); err != nil {
		return nil, fmt.Errorf("list course offerings: %w", err)
	}
	return offerings, nil
}

// Lookup returns a single offering.
func (r *CourseRepository) Lookup(ctx context.Context, courseID string) (models.CourseOffering, error) {
	query := `SELECT ` + courseColumns + ` FROM course_offerings WHERE id = $1`
	var course models.CourseOffering
	if err := r.db.GetContext(ctx, &course, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseID))
		}
		return course, fmt.Errorf("find course offering: %w", err)
	}
	return course, nil
}

// Reserve increments filled_seats only while below capacity.
func (r *CourseRepository) Reserve(ctx context.Context, courseID string) (int, error) {
	const query = `UPDATE course_offerings SET filled_seats = filled_seats + 1
        WHERE id = $1 AND filled_seats < total_seats RETURNING filled_seats`
	var filled int
	if err := r.db.GetContext(ctx, &filled, query, courseID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("reserve seat: %w", err)
		}
		// No row updated: either the course is unknown or it is full.
		course, lookupErr := r.Lookup(ctx, courseID)
		if lookupErr != nil {
			return 0, lookupErr
		}
		return course.FilledSeats, appErrors.Clone(appErrors.ErrSeatsFull, fmt.Sprintf("course %s has no seats available", courseID))
	}
	return filled, nil
}

// Release decrements filled_seats, flooring at zero.
func (r *CourseRepository) Release(ctx context.Context, courseID string) (int, error) {
	const query = `UPDATE course_offerings SET filled_seats = GREATEST(filled_seats - 1, 0)
        WHERE id = $1 RETURNING filled_seats`
	var filled int
	if err := r.db.GetContext(ctx, &filled, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseID))
		}
		return 0, fmt.Errorf("release seat: %w", err)
	}
	return filled, nil
}
