package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

func TestMemoryCatalogReserveStopsAtCapacity(t *testing.T) {
	catalog := NewMemoryCatalog([]models.CourseOffering{{ID: "CS101", Credits: 3, TotalSeats: 60, FilledSeats: 59}})
	ctx := context.Background()

	filled, err := catalog.Reserve(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 60, filled)

	_, err = catalog.Reserve(ctx, "CS101")
	assert.True(t, errors.Is(err, appErrors.ErrSeatsFull))

	course, err := catalog.Lookup(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 60, course.FilledSeats)
}

func TestMemoryCatalogReleaseFloorsAtZero(t *testing.T) {
	catalog := NewMemoryCatalog([]models.CourseOffering{{ID: "HS101", TotalSeats: 70}})
	filled, err := catalog.Release(context.Background(), "HS101")
	require.NoError(t, err)
	assert.Equal(t, 0, filled)
}

func TestMemoryCatalogUnknownCourse(t *testing.T) {
	catalog := NewMemoryCatalog(nil)
	_, err := catalog.Lookup(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = catalog.Reserve(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMemoryCatalogConcurrentReservations(t *testing.T) {
	catalog := NewMemoryCatalog([]models.CourseOffering{{ID: "CS301", TotalSeats: 55, FilledSeats: 40}})
	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := catalog.Reserve(context.Background(), "CS301"); err == nil {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(15), granted)
	course, err := catalog.Lookup(context.Background(), "CS301")
	require.NoError(t, err)
	assert.Equal(t, 55, course.FilledSeats)
}

func TestMemoryCatalogListKeepsOrder(t *testing.T) {
	catalog := NewMemoryCatalog([]models.CourseOffering{{ID: "B"}, {ID: "A"}, {ID: "C"}})
	list, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{list[0].ID, list[1].ID, list[2].ID})
}
