package cancel

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

// InvokerClaims are the JWT claims identifying who drives a cancellation.
type InvokerClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the user ID
func (c *InvokerClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Invoker converts the claims into an Invoker.
func (c *InvokerClaims) Invoker() (Invoker, error) {
	id, err := strconv.ParseInt(c.UserID(), 10, 64)
	if err != nil || id <= AnonymousAccountID {
		return Invoker{}, ErrUnauthorized
	}
	return Invoker{ID: id, Role: UserRole(c.UserRole)}, nil
}

// SignInvokerToken mints an HS256 session token for invoker.
func SignInvokerToken(signingKey []byte, invoker Invoker, ttl time.Duration) (string, error) {
	now := time.Now()
	uid := strconv.FormatInt(invoker.ID, 10)
	claims := &InvokerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      uid,
		UserRole: string(invoker.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

// InvokerResolver extracts the invoker from an incoming request.
type InvokerResolver func(ctx router.Context) (Invoker, error)

// JWTInvokerResolver resolves the invoker from an "Authorization: Bearer" token
// signed with signingKey, see InvokerSigningKey.
func JWTInvokerResolver(signingKey []byte) InvokerResolver {
	return func(ctx router.Context) (Invoker, error) {
		header := ctx.GetString(router.HeaderAuthorization, "")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return Invoker{}, ErrUnauthorized
		}

		claims := &InvokerClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return Invoker{}, ErrUnauthorized
		}

		return claims.Invoker()
	}
}
