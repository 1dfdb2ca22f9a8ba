package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
)

var ErrInvalidHeader = errors.New("invalid authorization header")

// Claims identifies the acting account of a request
type Claims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	IsStaff   bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the explicit actor handed to services
func (c *Claims) Actor() (*common.Actor, error) {
	id, err := uuid.Parse(c.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id in token: %w", err)
	}
	return &common.Actor{ID: id, IsStaff: c.IsStaff}, nil
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "bienestar-api"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Generate signs an HS256 token for the account
func (tm *TokenManager) Generate(acc *account.Account) (string, error) {
	if acc == nil || acc.ID == uuid.Nil {
		return "", fmt.Errorf("account id required")
	}
	now := tm.now()
	claims := Claims{
		AccountID: acc.ID.String(),
		Username:  acc.Username,
		IsStaff:   acc.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Parse validates signature, issuer and expiry
func (tm *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExtractToken pulls the token out of an "Authorization: Bearer <token>" header
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidHeader
	}
	return parts[1], nil
}
