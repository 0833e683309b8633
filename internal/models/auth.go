package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens. ProfileID is the
// prof_id or student_id matching Role; admins carry zero.
type JWTClaims struct {
	AccountID int64    `json:"account_id"`
	ProfileID int64    `json:"profile_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}
