package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/orders"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carried by POS access tokens.
type Claims struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for the given user. Used by tooling and tests.
func (a *Authenticator) Issue(userID string, role domain.Role, ttl time.Duration) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses the Authorization header value and returns the caller.
func (a *Authenticator) Verify(header string) (domain.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Actor{}, ErrMissingToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return domain.Actor{}, fmt.Errorf("%w: missing userId claim", ErrInvalidToken)
	}

	role := domain.Role(strings.ToLower(string(claims.Role)))
	if role != domain.RoleManager {
		role = domain.RoleUser
	}
	return domain.Actor{ID: claims.UserID, Role: role}, nil
}

// Middleware rejects unauthenticated requests and replaces any client supplied
// identity headers with the verified caller.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.Verify(r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pos"`)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		r.Header.Del(orders.HeaderActorID)
		r.Header.Del(orders.HeaderActorRole)
		r.Header.Set(orders.HeaderActorID, actor.ID)
		r.Header.Set(orders.HeaderActorRole, string(actor.Role))
		next.ServeHTTP(w, r)
	})
}
