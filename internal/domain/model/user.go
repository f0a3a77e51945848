package model

import (
	"strings"
	"time"
)

// User represents a registered taxpayer account. Login is stored normalized.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}

// NormalizeLogin trims and lowercases login so that accounts match case-insensitively.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// MaskLogin keeps only the first character of login for log output.
func MaskLogin(login string) string {
	if login == "" {
		return ""
	}
	r := []rune(login)
	return string(r[0]) + "***"
}
