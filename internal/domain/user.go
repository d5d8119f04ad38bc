package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	Name         string
	Lastname     string
	PasswordHash string
	CreatedAt    time.Time
}

// MaxNameLength bounds the name and lastname fields, in runes.
const MaxNameLength = 100

// ApplyProfile replaces the name and lastname. Blank values keep the current
// ones.
func (u *User) ApplyProfile(name, lastname string) {
	if v := strings.TrimSpace(name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(lastname); v != "" {
		u.Lastname = v
	}
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Lastname)
}

// NormalizeIdentifier lower-cases and trims a username or email so lookups are
// case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
