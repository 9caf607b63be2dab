package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

// reserveSeatScript increments the fill count only while it is below capacity.
// KEYS[1] fill counter, ARGV[1] capacity, ARGV[2] seed fill used when the key is absent.
var reserveSeatScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or ARGV[2])
if current >= tonumber(ARGV[1]) then
  return -1
end
current = current + 1
redis.call('SET', KEYS[1], current)
return current
`)

// releaseSeatScript decrements the fill count, flooring at zero.
// KEYS[1] fill counter, ARGV[1] seed fill used when the key is absent.
var releaseSeatScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or ARGV[1])
if current > 0 then
  current = current - 1
end
redis.call('SET', KEYS[1], current)
return current
`)

// RedisCatalog serves static offering metadata from memory and keeps the
// shared fill counters in Redis, so every API instance sees the same seats.
type RedisCatalog struct {
	client  *redis.Client
	prefix  string
	catalog *MemoryCatalog
}

// NewRedisCatalog constructs a Redis-backed seat counter over the offerings.
func NewRedisCatalog(client *redis.Client, offerings []models.CourseOffering) *RedisCatalog {
	return &RedisCatalog{client: client, prefix: "seats:", catalog: NewMemoryCatalog(offerings)}
}

// Seed initialises fill counters that do not exist yet.
func (r *RedisCatalog) Seed(ctx context.Context) error {
	offerings, _ := r.catalog.List(ctx)
	for _, o := range offerings {
		if err := r.client.SetNX(ctx, r.key(o.ID), o.FilledSeats, 0).Err(); err != nil {
			return fmt.Errorf("redis seed seats %s: %w", o.ID, err)
		}
	}
	return nil
}

// List returns all offerings with live fill counts.
func (r *RedisCatalog) List(ctx context.Context) ([]models.CourseOffering, error) {
	offerings, _ := r.catalog.List(ctx)
	if len(offerings) == 0 {
		return offerings, nil
	}
	keys := make([]string, len(offerings))
	for i, o := range offerings {
		keys[i] = r.key(o.ID)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget seats: %w", err)
	}
	for i, v := range values {
		if filled, ok := parseFill(v); ok {
			offerings[i].FilledSeats = filled
		}
	}
	return offerings, nil
}

// Lookup returns one offering with its live fill count.
func (r *RedisCatalog) Lookup(ctx context.Context, courseID string) (models.CourseOffering, error) {
	course, err := r.catalog.Lookup(ctx, courseID)
	if err != nil {
		return course, err
	}
	raw, err := r.client.Get(ctx, r.key(courseID)).Result()
	if err != nil {
		if err == redis.Nil {
			return course, nil
		}
		return course, fmt.Errorf("redis get seats %s: %w", courseID, err)
	}
	if filled, ok := parseFill(raw); ok {
		course.FilledSeats = filled
	}
	return course, nil
}

// Reserve atomically takes a seat.
func (r *RedisCatalog) Reserve(ctx context.Context, courseID string) (int, error) {
	course, err := r.catalog.Lookup(ctx, courseID)
	if err != nil {
		return 0, err
	}
	filled, err := reserveSeatScript.Run(ctx, r.client, []string{r.key(courseID)}, course.TotalSeats, course.FilledSeats).Int()
	if err != nil {
		return 0, fmt.Errorf("redis reserve seat %s: %w", courseID, err)
	}
	if filled < 0 {
		return course.TotalSeats, appErrors.Clone(appErrors.ErrSeatsFull, fmt.Sprintf("course %s has no seats available", courseID))
	}
	return filled, nil
}

// Release atomically returns a seat.
func (r *RedisCatalog) Release(ctx context.Context, courseID string) (int, error) {
	course, err := r.catalog.Lookup(ctx, courseID)
	if err != nil {
		return 0, err
	}
	filled, err := releaseSeatScript.Run(ctx, r.client, []string{r.key(courseID)}, course.FilledSeats).Int()
	if err != nil {
		return 0, fmt.Errorf("redis release seat %s: %w", courseID, err)
	}
	return filled, nil
}

func (r *RedisCatalog) key(courseID string) string {
	return r.prefix + courseID
}

func parseFill(v interface{}) (int, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
