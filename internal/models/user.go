package models

import "strings"

// UserType is the coarse actor kind carried by bearer tokens.
type UserType string

const (
	UserTypeSuperAdmin UserType = "superadmin"
	UserTypeAdmin      UserType = "admin"
	UserTypeBDE        UserType = "bde"
	UserTypeStudent    UserType = "student"
)

// NormalizeUserType lowercases and trims a raw user type.
func NormalizeUserType(raw string) UserType {
	return UserType(strings.ToLower(strings.TrimSpace(raw)))
}

