package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrWrongTokenUse = errors.New("token cannot be used for this purpose")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims are the application claims carried by access and refresh tokens
type Claims struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     domain.UserRole `json:"role"`
	TokenUse string          `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a token manager from auth configuration
func NewTokenManager(cfg *config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenDuration(),
		refreshTTL: cfg.RefreshTokenDuration(),
		now:        time.Now,
	}
}

// SetClock replaces the time source used for issuing and validating tokens
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}

// IssuePair returns a fresh access and refresh token for user
func (m *TokenManager) IssuePair(user *domain.User) (access string, refresh string, err error) {
	access, err = m.sign(user.ID, user.Email, displayName(user), user.Role, tokenUseAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.sign(user.ID, user.Email, displayName(user), user.Role, tokenUseRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ValidateAccess parses an access token into a user context
func (m *TokenManager) ValidateAccess(tokenString string) (*UserContext, error) {
	claims, err := m.parse(tokenString, tokenUseAccess)
	if err != nil {
		return nil, err
	}
	return claimsToUser(claims)
}

// Refresh exchanges a valid refresh token for a new access token
func (m *TokenManager) Refresh(refreshToken string) (string, error) {
	claims, err := m.parse(refreshToken, tokenUseRefresh)
	if err != nil {
		return "", err
	}
	user, err := claimsToUser(claims)
	if err != nil {
		return "", err
	}
	return m.sign(user.UserID, user.Email, user.DisplayName, user.Role, tokenUseAccess, m.accessTTL)
}

func (m *TokenManager) sign(userID uint, email, name string, role domain.UserRole, use string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Email:    email,
		Name:     name,
		Role:     role,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(tokenString, use string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

func claimsToUser(c *Claims) (*UserContext, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &UserContext{
		UserID:      uint(id),
		Email:       c.Email,
		DisplayName: c.Name,
		Role:        c.Role,
	}, nil
}

func displayName(u *domain.User) string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
