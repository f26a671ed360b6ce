package postgrest

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL = 10 * time.Minute
	refreshSkew     = 30 * time.Second
)

// Claims is the payload PostgREST reads to pick the database role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner mints HS256 tokens with the project's JWT secret and caches the
// current one until it is close to expiry.
type TokenSigner struct {
	secret []byte
	role   string
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

func NewTokenSigner(secret, role string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenSigner{
		secret: []byte(secret),
		role:   role,
		issuer: "storefront",
		ttl:    ttl,
		now:    time.Now,
	}
}

func (t *TokenSigner) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.cached != "" && now.Add(refreshSkew).Before(t.expires) {
		return t.cached, nil
	}

	exp := now.Add(t.ttl)
	claims := Claims{
		Role: t.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", err
	}

	t.cached, t.expires = tok, exp
	return tok, nil
}

// Parse verifies a token minted with the same secret.
func (t *TokenSigner) Parse(tokenStr string) (Claims, error) {
	var c Claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || token == nil || !token.Valid {
		return Claims{}, errors.New("invalid token")
	}

	if c.Issuer != "" && c.Issuer != t.issuer {
		return Claims{}, errors.New("invalid issuer")
	}

	return c, nil
}
