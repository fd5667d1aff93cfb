package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"digital-checkout/internal/infra/logging"
)

type ctxKey struct{}

// UserIDFrom returns the authenticated caller, "" outside Authenticate.
func UserIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// Authenticator resolves the caller from a bearer JWT whose subject is the
// user id, or from X-User-ID when header identity is allowed.
type Authenticator struct {
	secret      []byte
	allowHeader bool
}

func NewAuthenticator(secret string, allowUserHeader bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), allowHeader: allowUserHeader}
}

// Mint signs a token for userID. Used by the seed tool and tests.
func (a *Authenticator) Mint(userID string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) userID(r *http.Request) (string, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if !strings.HasPrefix(strings.ToLower(hdr), "bearer ") || len(a.secret) == 0 {
			return "", errors.New("unsupported authorization")
		}
		return a.parse(strings.TrimSpace(hdr[7:]))
	}
	if a.allowHeader {
		if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
			return id, nil
		}
	}
	return "", errors.New("missing credentials")
}

func (a *Authenticator) parse(tok string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := a.userID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, uid)
		ctx = logging.WithUserID(ctx, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
