package jwt

import (
	"errors"
	"fmt"
	"lodge/config"
	"lodge/shared/timezone"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingHeader = errors.New("authorization header is required")
	ErrInvalidHeader = errors.New("authorization header must start with 'Bearer '")
)

const bearerPrefix = "Bearer "

// Claims carries the identity issued by the upstream auth service.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

type JWT interface {
	Generate(userID, email, role string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type Service struct {
	config *config.Config
}

func New(cfg *config.Config) JWT {
	return &Service{
		config: cfg,
	}
}

// Generate signs an access token. Tokens are normally issued by the identity
// service sharing JWT_ACCESS_SECRET; this is used by tooling and tests.
func (s *Service) Generate(userID, email, role string) (string, error) {
	issuedAt := timezone.Now()
	expiresAt := issuedAt.Add(time.Duration(s.config.JWT.AccessExpireMin) * time.Minute)
	tokenID := uuid.NewString()

	claims := Claims{
		UserID:  userID,
		Email:   email,
		Role:    role,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Issuer:    s.config.App.Name,
			Subject:   userID,
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWT.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(s.config.JWT.AccessSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}

		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ExtractTokenFromHeader strips the Bearer prefix.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidHeader
	}

	return strings.TrimPrefix(authHeader, bearerPrefix), nil
}
