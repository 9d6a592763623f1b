// Package i18n negotiates the request locale.
package i18n

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

const (
	localsKey  = "locale"
	CookieName = "locale"
	QueryParam = "locale"
)

type Negotiator struct {
	supported []string
	tags      []language.Tag
	matcher   language.Matcher
}

// NewNegotiator builds a matcher over locales; the default locale is tried first so it wins
// ties and is returned when nothing matches.
func NewNegotiator(defaultLocale string, locales []string) *Negotiator {
	ordered := []string{defaultLocale}
	for _, l := range locales {
		if l != defaultLocale {
			ordered = append(ordered, l)
		}
	}
	n := &Negotiator{supported: ordered}
	for _, l := range ordered {
		n.tags = append(n.tags, language.Make(l))
	}
	n.matcher = language.NewMatcher(n.tags)
	return n
}

func (n *Negotiator) Default() string { return n.supported[0] }

func (n *Negotiator) Supported() []string {
	out := make([]string, len(n.supported))
	copy(out, n.supported)
	return out
}

// Lookup returns the supported locale equal to s ignoring case, or "".
func (n *Negotiator) Lookup(s string) string {
	s = strings.TrimSpace(s)
	for _, l := range n.supported {
		if strings.EqualFold(l, s) {
			return l
		}
	}
	return ""
}

// Match resolves an Accept-Language header to a supported locale.
func (n *Negotiator) Match(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return n.Default()
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return n.Default()
	}
	_, idx, conf := n.matcher.Match(prefs...)
	if conf == language.No {
		return n.Default()
	}
	return n.supported[idx]
}

// Middleware stores the resolved locale in locals and sets Content-Language. A supported
// ?locale= value is remembered in a cookie.
func (n *Negotiator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		locale := ""
		if q := n.Lookup(c.Query(QueryParam)); q != "" {
			locale = q
			c.Cookie(&fiber.Cookie{
				Name:     CookieName,
				Value:    q,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		if locale == "" {
			locale = n.Lookup(c.Cookies(CookieName))
		}
		if locale == "" {
			locale = n.Match(c.Get(fiber.HeaderAcceptLanguage))
		}
		c.Locals(localsKey, locale)
		c.Set(fiber.HeaderContentLanguage, locale)
		return c.Next()
	}
}

// Locale returns the locale stored by Middleware, or fallback when the middleware did not run.
func Locale(c *fiber.Ctx, fallback string) string {
	if v, ok := c.Locals(localsKey).(string); ok && v != "" {
		return v
	}
	return fallback
}
