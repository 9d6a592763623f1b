package auth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// UserLocal holds the *jwt.Token, same key jwtware uses.
	UserLocal       = "user"
	sessionLocal    = "sid"
	SessionCookie   = "sid"
	sessionLifetime = 30 * 24 * time.Hour
)

type Middleware struct {
	tokens        *Tokens
	secureCookies bool
}

func NewMiddleware(tokens *Tokens, secureCookies bool) *Middleware {
	return &Middleware{tokens: tokens, secureCookies: secureCookies}
}

// Required rejects requests without a valid bearer token from this issuer.
func (m *Middleware) Required() fiber.Handler {
	unauthorized := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	return jwtware.New(jwtware.Config{
		SigningKey:    m.tokens.Secret(),
		SigningMethod: "HS256",
		ContextKey:    UserLocal,
		SuccessHandler: func(c *fiber.Ctx) error {
			tok, _ := c.Locals(UserLocal).(*jwt.Token)
			if !m.tokens.issuedHere(tok) {
				return unauthorized(c)
			}
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

// Optional stores the token when a valid one is present and otherwise lets the request through
// as a guest.
func (m *Middleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(UserLocal).(*jwt.Token); ok {
			return c.Next()
		}
		if raw := bearer(c); raw != "" {
			if tok, err := m.tokens.Parse(raw); err == nil {
				c.Locals(UserLocal, tok)
			}
		}
		return c.Next()
	}
}

// Session makes sure every request carries a guest session id, issuing the cookie on first
// visit.
func (m *Middleware) Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := utils.CopyString(c.Cookies(SessionCookie))
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				Expires:  time.Now().Add(sessionLifetime),
				HTTPOnly: true,
				Secure:   m.secureCookies,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(sessionLocal, sid)
		return c.Next()
	}
}

// AdminGuard lets through only admin tokens. Browsers asking for HTML are redirected instead
// of receiving JSON errors.
func (m *Middleware) AdminGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, ok := c.Locals(UserLocal).(*jwt.Token)
		if !ok {
			if raw := bearer(c); raw != "" {
				if parsed, err := m.tokens.Parse(raw); err == nil {
					tok, ok = parsed, true
					c.Locals(UserLocal, tok)
				}
			}
		}
		if !ok {
			if wantsHTML(c) {
				return c.Redirect("/login?callbackUrl="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		if claimString(tok, "role") != RoleAdmin {
			if wantsHTML(c) {
				return c.Redirect("/", fiber.StatusFound)
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
		}
		return c.Next()
	}
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func wantsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}

// UserID extracts the user_id claim from the token in locals.
func UserID(c *fiber.Ctx) (string, error) {
	tok, ok := c.Locals(UserLocal).(*jwt.Token)
	if !ok {
		return "", ErrUnauthorized
	}
	id := claimString(tok, "user_id")
	if id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}

// Role returns the role claim, or "" for guests.
func Role(c *fiber.Ctx) string {
	tok, ok := c.Locals(UserLocal).(*jwt.Token)
	if !ok {
		return ""
	}
	return claimString(tok, "role")
}

// Email returns the email claim, or "" for guests.
func Email(c *fiber.Ctx) string {
	tok, ok := c.Locals(UserLocal).(*jwt.Token)
	if !ok {
		return ""
	}
	return claimString(tok, "email")
}

// GuestOwner returns "guest:<sid>" for the session cookie, whether or not a user is signed in.
func GuestOwner(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionLocal).(string)
	if sid == "" {
		sid = utils.CopyString(c.Cookies(SessionCookie))
		if _, err := uuid.Parse(sid); err != nil {
			return ""
		}
	}
	return "guest:" + sid
}

// Owner resolves the cart/wishlist owner: the signed-in user, else the guest session.
func Owner(c *fiber.Ctx) (string, error) {
	if id, err := UserID(c); err == nil {
		return UserOwner(id), nil
	}
	if g := GuestOwner(c); g != "" {
		return g, nil
	}
	return "", ErrNoSession
}

func UserOwner(userID string) string { return "user:" + userID }

// UserIDFromOwner returns the user id inside a "user:" owner.
func UserIDFromOwner(owner string) (string, bool) {
	if strings.HasPrefix(owner, "user:") {
		return strings.TrimPrefix(owner, "user:"), true
	}
	return "", false
}

func claimString(tok *jwt.Token, name string) string {
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
