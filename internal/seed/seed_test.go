package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aims-registration-api/internal/models"
)

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	require.Len(t, catalog.Courses, 36)
	assert.Equal(t, models.CreditRules{Min: 12, Max: 30}, catalog.Rules)

	first := catalog.Courses[0]
	assert.Equal(t, "CS101", first.ID)
	assert.Equal(t, 60, first.TotalSeats)
	assert.Equal(t, 45, first.FilledSeats)
	assert.Equal(t, models.CategoryDepartmentalCore, first.Category)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), first.RegistrationOpens)
	// 2025-08-15 plus three weeks
	assert.Equal(t, time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC), first.DropDeadline)
}

func TestParseCatalogRejectsOverfilledCourse(t *testing.T) {
	raw := []byte(`
window: {opens: "2025-08-01", closes: "2025-08-15"}
rules: {min_credits: 12, max_credits: 30}
courses:
  - {id: X1, name: X, faculty: Y, credits: 3, semester: 1, category: Elective, total_seats: 10, filled_seats: 11}
`)
	_, err := ParseCatalog(raw)
	require.Error(t, err)
}

func TestParseCatalogRejectsInvalidRules(t *testing.T) {
	raw := []byte(`
window: {opens: "2025-08-01", closes: "2025-08-15"}
rules: {min_credits: 20, max_credits: 10}
courses:
  - {id: X1, name: X, faculty: Y, credits: 3, semester: 1, category: Elective, total_seats: 10, filled_seats: 1}
`)
	_, err := ParseCatalog(raw)
	require.Error(t, err)
}

func TestCatalogCreditRulesOverrides(t *testing.T) {
	catalog := &Catalog{Rules: models.CreditRules{Min: 12, Max: 30}}

	rules, err := catalog.CreditRules(0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.CreditRules{Min: 12, Max: 30}, rules)

	rules, err = catalog.CreditRules(15, 0)
	require.NoError(t, err)
	assert.Equal(t, models.CreditRules{Min: 15, Max: 30}, rules)

	rules, err = catalog.CreditRules(0, 24)
	require.NoError(t, err)
	assert.Equal(t, models.CreditRules{Min: 12, Max: 24}, rules)

	_, err = catalog.CreditRules(40, 0)
	assert.Error(t, err)
	assert.Equal(t, models.CreditRules{Min: 12, Max: 30}, catalog.Rules)
}

func TestParseCatalogRejectsUnknownCategory(t *testing.T) {
	raw := []byte(`
window: {opens: "2025-08-01", closes: "2025-08-15"}
courses:
  - {id: X1, name: X, faculty: Y, credits: 3, semester: 1, category: Sports, total_seats: 10, filled_seats: 1}
`)
	_, err := ParseCatalog(raw)
	require.Error(t, err)
}

func TestLoadRoster(t *testing.T) {
	roster, err := LoadRoster()
	require.NoError(t, err)
	require.NotEmpty(t, roster)
	for _, entry := range roster {
		assert.True(t, entry.User.Active)
		assert.NotEmpty(t, entry.Password)
	}
}
