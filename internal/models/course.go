package models

import (
	"strings"
	"time"
)

// CourseCategory classifies an offering within the curriculum.
type CourseCategory string

// Supported course categories.
const (
	CategoryDepartmentalCore CourseCategory = "Departmental Core"
	CategoryElective         CourseCategory = "Elective"
	CategoryLiberalArts      CourseCategory = "Liberal Arts"
)

// Valid reports whether the category is one of the known values.
func (c CourseCategory) Valid() bool {
	switch c {
	case CategoryDepartmentalCore, CategoryElective, CategoryLiberalArts:
		return true
	}
	return false
}

// CourseOffering is a catalog entry. FilledSeats is the only field that
// changes after the catalog is loaded.
type CourseOffering struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	Faculty            string         `db:"faculty" json:"faculty"`
	Credits            int            `db:"credits" json:"credits"`
	Semester           int            `db:"semester" json:"semester"`
	Category           CourseCategory `db:"category" json:"category"`
	TotalSeats         int            `db:"total_seats" json:"total_seats"`
	FilledSeats        int            `db:"filled_seats" json:"filled_seats"`
	RegistrationOpens  time.Time      `db:"registration_opens" json:"registration_opens"`
	RegistrationCloses time.Time      `db:"registration_closes" json:"registration_closes"`
	DropDeadline       time.Time      `db:"drop_deadline" json:"drop_deadline"`
}

// SeatsAvailable returns the number of unfilled seats, never negative.
func (c CourseOffering) SeatsAvailable() int {
	if c.FilledSeats >= c.TotalSeats {
		return 0
	}
	return c.TotalSeats - c.FilledSeats
}

// IsFull reports whether every seat is taken.
func (c CourseOffering) IsFull() bool {
	return c.FilledSeats >= c.TotalSeats
}

// DropDeadlineFor derives the drop deadline: registration close plus one week per credit.
func DropDeadlineFor(closes time.Time, credits int) time.Time {
	return closes.AddDate(0, 0, 7*credits)
}

// CatalogFilter narrows the catalog view. Zero values match everything.
type CatalogFilter struct {
	Category CourseCategory
	Semester int
	Credits  int
	Search   string
}

// Matches reports whether the offering passes the filter.
func (f CatalogFilter) Matches(c CourseOffering) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Semester > 0 && c.Semester != f.Semester {
		return false
	}
	if f.Credits > 0 && c.Credits != f.Credits {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.ID), search) || strings.Contains(strings.ToLower(c.Name), search)
}

// CatalogPage is the filtered catalog returned to clients.
type CatalogPage struct {
	Courses    []CourseOffering `json:"courses"`
	Categories []CourseCategory `json:"categories"`
	TotalCount int              `json:"total_count"`
}
