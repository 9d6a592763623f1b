// Package auth issues and verifies JWTs and resolves who owns a request: a signed-in user or
// a guest identified by the session cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoSession    = errors.New("no session")
)

// Identity is what gets signed into a token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, issuer string) *Tokens {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

func (t *Tokens) Secret() []byte { return t.secret }

// Issue signs an HS256 token carrying user_id, email, role, exp and iss.
func (t *Tokens) Issue(id Identity) (string, time.Time, error) {
	exp := t.now().Add(t.ttl)
	claims := jwt.MapClaims{
		"user_id": id.UserID,
		"email":   id.Email,
		"role":    id.Role,
		"exp":     exp.Unix(),
		"iat":     t.now().Unix(),
	}
	if t.issuer != "" {
		claims["iss"] = t.issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, algorithm, expiry and issuer.
func (t *Tokens) Parse(raw string) (*jwt.Token, error) {
	tok, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid || !t.issuedHere(tok) {
		return nil, ErrUnauthorized
	}
	return tok, nil
}

func (t *Tokens) issuedHere(tok *jwt.Token) bool {
	if tok == nil {
		return false
	}
	if t.issuer == "" {
		return true
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	return ok && claims.VerifyIssuer(t.issuer, true)
}
