package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

// AuthConfig defines how bearer tokens are verified.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
}

// AuthService verifies access tokens issued by the identity provider.
type AuthService struct {
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(config AuthConfig) *AuthService {
	return &AuthService{config: config}
}

// ValidateToken parses and validates an HS256 access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleProfessor, models.RoleStudent:
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token role")
	}
	if claims.AccountID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token subject")
	}

	return claims, nil
}
