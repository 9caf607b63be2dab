package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

// User is a demo account. For students, ID is the student identifier used
// by the registration ledger.
type User struct {
	ID           string   `json:"id" yaml:"id"`
	Email        string   `json:"email" yaml:"email"`
	PasswordHash string   `json:"-" yaml:"-"`
	FullName     string   `json:"full_name" yaml:"full_name"`
	Role         UserRole `json:"role" yaml:"role"`
	Active       bool     `json:"active" yaml:"-"`
}
