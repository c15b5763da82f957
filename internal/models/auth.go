package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the bearer token payload issued by the auth service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	UserType UserType `json:"userType"`
	Location string   `json:"location,omitempty"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID   string
	UserType UserType
	Location string
}
