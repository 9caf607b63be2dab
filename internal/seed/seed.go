// Package seed loads the static course catalog and demo roster shipped with
// the service.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/aims-registration-api/internal/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

//go:embed roster.yaml
var rosterYAML []byte

const dateLayout = "2006-01-02"

type catalogFile struct {
	Window struct {
		Opens  string `yaml:"opens"`
		Closes string `yaml:"closes"`
	} `yaml:"window"`
	Rules struct {
		MinCredits int `yaml:"min_credits"`
		MaxCredits int `yaml:"max_credits"`
	} `yaml:"rules"`
	Courses []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Faculty     string `yaml:"faculty"`
		Credits     int    `yaml:"credits"`
		Semester    int    `yaml:"semester"`
		Category    string `yaml:"category"`
		TotalSeats  int    `yaml:"total_seats"`
		FilledSeats int    `yaml:"filled_seats"`
	} `yaml:"courses"`
}

type rosterFile struct {
	Users []struct {
		ID       string `yaml:"id"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		FullName string `yaml:"full_name"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
}

// Catalog is the parsed course catalog together with its default credit rules.
type Catalog struct {
	Courses []models.CourseOffering
	Rules   models.CreditRules
}

// RosterEntry is a demo account with its plain-text password.
type RosterEntry struct {
	User     models.User
	Password string
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses catalog YAML, deriving registration windows and drop
// deadlines for every offering.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	opens, err := time.Parse(dateLayout, file.Window.Opens)
	if err != nil {
		return nil, fmt.Errorf("parse registration window open: %w", err)
	}
	closes, err := time.Parse(dateLayout, file.Window.Closes)
	if err != nil {
		return nil, fmt.Errorf("parse registration window close: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Courses))
	courses := make([]models.CourseOffering, 0, len(file.Courses))
	for _, c := range file.Courses {
		if c.ID == "" {
			return nil, fmt.Errorf("catalog entry without id")
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("duplicate course %s", c.ID)
		}
		seen[c.ID] = struct{}{}
		category := models.CourseCategory(c.Category)
		if !category.Valid() {
			return nil, fmt.Errorf("course %s: unknown category %q", c.ID, c.Category)
		}
		if c.Credits <= 0 {
			return nil, fmt.Errorf("course %s: credits must be positive", c.ID)
		}
		if c.FilledSeats < 0 || c.FilledSeats > c.TotalSeats {
			return nil, fmt.Errorf("course %s: filled seats %d outside [0,%d]", c.ID, c.FilledSeats, c.TotalSeats)
		}
		courses = append(courses, models.CourseOffering{
			ID:                 c.ID,
			Name:               c.Name,
			Faculty:            c.Faculty,
			Credits:            c.Credits,
			Semester:           c.Semester,
			Category:           category,
			TotalSeats:         c.TotalSeats,
			FilledSeats:        c.FilledSeats,
			RegistrationOpens:  opens,
			RegistrationCloses: closes,
			DropDeadline:       models.DropDeadlineFor(closes, c.Credits),
		})
	}

	catalog := &Catalog{
		Courses: courses,
		Rules:   models.CreditRules{Min: file.Rules.MinCredits, Max: file.Rules.MaxCredits},
	}
	if _, err := catalog.CreditRules(0, 0); err != nil {
		return nil, err
	}
	return catalog, nil
}

// CreditRules returns the catalog's credit rules with any positive override
// applied.
func (c *Catalog) CreditRules(minCredits, maxCredits int) (models.CreditRules, error) {
	rules := c.Rules
	if minCredits > 0 {
		rules.Min = minCredits
	}
	if maxCredits > 0 {
		rules.Max = maxCredits
	}
	if rules.Max <= 0 || rules.Min < 0 || rules.Min > rules.Max {
		return models.CreditRules{}, fmt.Errorf("invalid credit rules %d..%d", rules.Min, rules.Max)
	}
	return rules, nil
}

// LoadRoster parses the embedded demo roster.
func LoadRoster() ([]RosterEntry, error) {
	var file rosterFile
	if err := yaml.Unmarshal(rosterYAML, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	entries := make([]RosterEntry, 0, len(file.Users))
	for _, u := range file.Users {
		role := models.UserRole(u.Role)
		if role != models.RoleAdmin && role != models.RoleStudent {
			return nil, fmt.Errorf("user %s: unknown role %q", u.ID, u.Role)
		}
		entries = append(entries, RosterEntry{
			User: models.User{
				ID:       u.ID,
				Email:    u.Email,
				FullName: u.FullName,
				Role:     role,
				Active:   true,
			},
			Password: u.Password,
		})
	}
	return entries, nil
}
