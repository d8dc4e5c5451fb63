package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"carpool/internal/domain"
)

const identityKey = "identity"

var (
	ErrMissingToken = errors.New("authorization bearer token missing")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the identity token payload. Subject carries the user ID as a UUID.
type Claims struct {
	Role domain.Role `json:"role"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// SignToken issues an HS256 token for the identity.
func SignToken(secret string, identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Role: identity.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies the signature and standard claims of tokenString.
func ParseToken(secret, tokenString string) (domain.Identity, error) {
	parser := jwtlib.NewParser(jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	switch claims.Role {
	case domain.RolePassenger, domain.RoleDriver, domain.RoleAdmin:
	default:
		return domain.Identity{}, ErrInvalidToken
	}
	// User IDs are UUIDs in storage.
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return domain.Identity{}, ErrInvalidToken
	}

	return domain.Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// caller identity on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error()})
			return
		}

		identity, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// SetIdentity stores the caller identity on the context.
func SetIdentity(c *gin.Context, identity domain.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the caller identity stored by AuthMiddleware.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
