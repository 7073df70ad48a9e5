package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"omnihook/internal/platform/config"
)

type Claims struct {
	Subject string   `json:"sub_name"`
	Scopes  []string `json:"scp"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the bearer tokens that protect the
// admin read API. There is no user store; tokens are minted out of band.
type TokenService struct {
	config config.AdminConfig
}

func NewTokenService(cfg config.AdminConfig) *TokenService {
	return &TokenService{config: cfg}
}

func (s *TokenService) GenerateAccessToken(subject string, scopes []string) (string, error) {
	ttl := s.config.AccessTokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	claims := Claims{
		Subject: subject,
		Scopes:  scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "omnihook",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
