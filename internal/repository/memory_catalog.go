package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

// MemoryCatalog keeps offerings and their fill counts in process memory.
type MemoryCatalog struct {
	mu      sync.RWMutex
	order   []string
	courses map[string]models.CourseOffering
}

// NewMemoryCatalog copies the given offerings into a new catalog.
func NewMemoryCatalog(offerings []models.CourseOffering) *MemoryCatalog {
	c := &MemoryCatalog{
		order:   make([]string, 0, len(offerings)),
		courses: make(map[string]models.CourseOffering, len(offerings)),
	}
	for _, o := range offerings {
		if _, exists := c.courses[o.ID]; !exists {
			c.order = append(c.order, o.ID)
		}
		c.courses[o.ID] = o
	}
	return c
}

// List returns all offerings in catalog order.
func (c *MemoryCatalog) List(ctx context.Context) ([]models.CourseOffering, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.CourseOffering, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.courses[id])
	}
	return out, nil
}

// Lookup returns a single offering.
func (c *MemoryCatalog) Lookup(ctx context.Context, courseID string) (models.CourseOffering, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[courseID]
	if !ok {
		return models.CourseOffering{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseID))
	}
	return course, nil
}

// Reserve takes one seat if any remain.
func (c *MemoryCatalog) Reserve(ctx context.Context, courseID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[courseID]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseID))
	}
	if course.FilledSeats >= course.TotalSeats {
		return course.FilledSeats, appErrors.Clone(appErrors.ErrSeatsFull, fmt.Sprintf("course %s has no seats available", courseID))
	}
	course.FilledSeats++
	c.courses[courseID] = course
	return course.FilledSeats, nil
}

// Release gives one seat back, flooring the count at zero.
func (c *MemoryCatalog) Release(ctx context.Context, courseID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[courseID]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseID))
	}
	if course.FilledSeats > 0 {
		course.FilledSeats--
	}
	c.courses[courseID] = course
	return course.FilledSeats, nil
}
