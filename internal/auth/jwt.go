package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

// Claims carries the operator's Discord identity and guild permissions.
// Tokens are minted by whatever fronts the operator API; the broker only
// verifies them.
type Claims struct {
	UserID      string `json:"user_id"`
	ScopeID     string `json:"scope_id"`
	DisplayName string `json:"display_name,omitempty"`
	CanManage   bool   `json:"can_manage,omitempty"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
	IsOwner     bool   `json:"is_owner,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts the claims into the lifecycle caller.
func (c *Claims) Caller() domain.Caller {
	caller := domain.Caller{
		UserID:            c.UserID,
		ScopeID:           c.ScopeID,
		DisplayName:       c.DisplayName,
		CanManageChannels: c.CanManage,
		IsAdministrator:   c.IsAdmin,
	}
	if c.IsOwner {
		caller.ScopeOwnerID = c.UserID
	}
	return caller
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// GenerateToken creates a signed access token for the given claims. Expiry
// and subject are filled in from the manager's TTL and the user id.
func (tm *TokenManager) GenerateToken(claims Claims) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Subject:   claims.UserID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.UserID == "" || claims.ScopeID == "" {
		return nil, errors.New("token is missing user or scope")
	}

	return claims, nil
}
