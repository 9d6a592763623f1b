package auth

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func TestTokens_IssueParse(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, "storefront")
	raw, exp, err := tokens.Issue(Identity{UserID: "u1", Email: "a@example.com", Role: RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	tok, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claimString(tok, "user_id"))
	assert.Equal(t, RoleAdmin, claimString(tok, "role"))

	_, err = NewTokens("another-secret-another-secret-xx", time.Hour, "storefront").Parse(raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewTokens(testSecret, time.Hour, "someone-else").Parse(raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired := NewTokens(testSecret, time.Hour, "storefront")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func newApp(m *Middleware) *fiber.App {
	app := fiber.New(fiber.Config{Immutable: true})
	app.Use(m.Session(), m.Optional())
	app.Get("/owner", func(c *fiber.Ctx) error {
		owner, err := Owner(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		return c.SendString(owner)
	})
	app.Get("/me", m.Required(), func(c *fiber.Ctx) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.SendString(id)
	})
	app.Get("/admin/orders", m.AdminGuard(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func bearerFor(t *testing.T, tokens *Tokens, role string) string {
	raw, _, err := tokens.Issue(Identity{UserID: "42", Email: "x@example.com", Role: role})
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestOwner_GuestThenUser(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, "")
	app := newApp(NewMiddleware(tokens, false))

	res, err := app.Test(httptest.NewRequest("GET", "/owner", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	assert.True(t, strings.HasPrefix(string(body), "guest:"))

	var sid string
	for _, ck := range res.Cookies() {
		if ck.Name == SessionCookie {
			sid = ck.Value
			assert.True(t, ck.HttpOnly)
		}
	}
	require.NotEmpty(t, sid)
	assert.Equal(t, "guest:"+sid, string(body))

	req := httptest.NewRequest("GET", "/owner", nil)
	req.Header.Set("Cookie", SessionCookie+"="+sid)
	res, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	assert.Equal(t, "guest:"+sid, string(body))
	assert.Empty(t, res.Cookies(), "existing session must not be reissued")

	req = httptest.NewRequest("GET", "/owner", nil)
	req.Header.Set("Authorization", bearerFor(t, tokens, RoleCustomer))
	res, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	assert.Equal(t, "user:42", string(body))
}

func TestRequired(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, "")
	app := newApp(NewMiddleware(tokens, false))

	res, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", bearerFor(t, tokens, RoleCustomer))
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestAdminGuard(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, "")
	app := newApp(NewMiddleware(tokens, false))

	cases := []struct {
		name     string
		auth     string
		accept   string
		status   int
		location string
	}{
		{name: "no session json", status: fiber.StatusUnauthorized},
		{name: "no session html", accept: "text/html,application/xhtml+xml", status: fiber.StatusFound, location: "/login?callbackUrl=%2Fadmin%2Forders"},
		{name: "customer json", auth: bearerFor(t, tokens, RoleCustomer), status: fiber.StatusForbidden},
		{name: "customer html", auth: bearerFor(t, tokens, RoleCustomer), accept: "text/html", status: fiber.StatusFound, location: "/"},
		{name: "admin", auth: bearerFor(t, tokens, RoleAdmin), status: fiber.StatusOK},
		{name: "garbage token", auth: "Bearer nope", status: fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/orders", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode)
			if tc.location != "" {
				assert.Equal(t, tc.location, res.Header.Get("Location"))
			}
		})
	}
}

func TestClaimString_NumericUserID(t *testing.T) {
	tok := &jwt.Token{Claims: jwt.MapClaims{"user_id": float64(7)}}
	assert.Equal(t, "7", claimString(tok, "user_id"))
	tok = &jwt.Token{Claims: jwt.MapClaims{"user_id": 9}}
	assert.Equal(t, "9", claimString(tok, "user_id"))
}

func TestUserIDFromOwner(t *testing.T) {
	id, ok := UserIDFromOwner("user:abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
	_, ok = UserIDFromOwner("guest:abc")
	assert.False(t, ok)
}

func TestRequired_RejectsForeignIssuer(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour, "storefront")
	app := newApp(NewMiddleware(tokens, false))

	cases := map[string]*Tokens{
		"other issuer": NewTokens(testSecret, time.Hour, "back-office"),
		"no issuer":    NewTokens(testSecret, time.Hour, ""),
	}
	for name, issuer := range cases {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", bearerFor(t, issuer, RoleCustomer))
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode, name)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", bearerFor(t, tokens, RoleCustomer))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}
