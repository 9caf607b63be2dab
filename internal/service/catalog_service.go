package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

// CatalogCachePattern matches every cached catalog page.
const CatalogCachePattern = "catalog:*"

type catalogSource interface {
	List(ctx context.Context) ([]models.CourseOffering, error)
	Lookup(ctx context.Context, courseID string) (models.CourseOffering, error)
}

// CatalogService serves filtered views of the course catalog.
type CatalogService struct {
	source catalogSource
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(source catalogSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{source: source, cache: cache, ttl: ttl, logger: logger}
}

// List returns the offerings passing filter, in catalog order. Categories
// lists every category present in the unfiltered catalog.
func (s *CatalogService) List(ctx context.Context, filter models.CatalogFilter) (*models.CatalogPage, bool, error) {
	key := catalogCacheKey(filter)
	var cached models.CatalogPage
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	all, err := s.source.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}

	page := &models.CatalogPage{Courses: make([]models.CourseOffering, 0, len(all))}
	seen := make(map[models.CourseCategory]struct{})
	for _, course := range all {
		if _, ok := seen[course.Category]; !ok {
			seen[course.Category] = struct{}{}
			page.Categories = append(page.Categories, course.Category)
		}
		if filter.Matches(course) {
			page.Courses = append(page.Courses, course)
		}
	}
	page.TotalCount = len(page.Courses)

	s.cache.Set(ctx, key, page, s.ttl)
	return page, false, nil
}

// Get returns a single offering with its live fill count.
func (s *CatalogService) Get(ctx context.Context, courseID string) (*models.CourseOffering, error) {
	course, err := s.source.Lookup(ctx, strings.TrimSpace(courseID))
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// InvalidateCache drops cached catalog pages after a seat count changes.
func (s *CatalogService) InvalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, CatalogCachePattern); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func catalogCacheKey(f models.CatalogFilter) string {
	return fmt.Sprintf("catalog:c=%s:s=%d:cr=%d:q=%s",
		strings.ToLower(string(f.Category)), f.Semester, f.Credits, strings.ToLower(strings.TrimSpace(f.Search)))
}
