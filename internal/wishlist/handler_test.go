package wishlist

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func makeApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{Immutable: true})
	// inject a token when the test sends X-User-ID
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User-ID"); id != "" {
			c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": id}})
		}
		return c.Next()
	})
	h.RegisterRoutes(app.Group("/api/v1"))
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func TestWishlistRoutes_Guest(t *testing.T) {
	s, _ := newTestService(t)
	app := makeApp(NewHandler(s, "en", zap.NewNop()))
	guest := map[string]string{"Cookie": "sid=" + uuid.NewString()}

	status, _ := send(t, app, "GET", "/api/v1/wishlist/count", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}

	status, _ = send(t, app, "POST", "/api/v1/wishlist", `{"productId":"p1"}`, guest)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 on first add, got %d", status)
	}
	status, _ = send(t, app, "POST", "/api/v1/wishlist", `{"productId":"p1"}`, guest)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on repeated add, got %d", status)
	}
	status, _ = send(t, app, "POST", "/api/v1/wishlist", `{"productId":"nope"}`, guest)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", status)
	}
	status, _ = send(t, app, "POST", "/api/v1/wishlist", `{}`, guest)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without productId, got %d", status)
	}

	status, body := send(t, app, "GET", "/api/v1/wishlist/count", "", guest)
	if status != fiber.StatusOK || !strings.Contains(body, `"count":1`) {
		t.Fatalf("unexpected count %d: %s", status, body)
	}

	status, body = send(t, app, "GET", "/api/v1/wishlist/p1", "", guest)
	if status != fiber.StatusOK || !strings.Contains(body, `"inWishlist":true`) {
		t.Fatalf("unexpected membership %d: %s", status, body)
	}

	status, body = send(t, app, "POST", "/api/v1/wishlist/toggle", `{"productId":"p2"}`, guest)
	if status != fiber.StatusOK || !strings.Contains(body, `"inWishlist":true`) {
		t.Fatalf("unexpected toggle %d: %s", status, body)
	}

	status, body = send(t, app, "GET", "/api/v1/wishlist", "", guest)
	if status != fiber.StatusOK || !strings.Contains(body, `"count":2`) || !strings.Contains(body, "Mouse") {
		t.Fatalf("unexpected list %d: %s", status, body)
	}

	status, _ = send(t, app, "DELETE", "/api/v1/wishlist/p3", "", guest)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 removing absent item, got %d", status)
	}
	status, _ = send(t, app, "DELETE", "/api/v1/wishlist/p1", "", guest)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 removing item, got %d", status)
	}

	status, _ = send(t, app, "DELETE", "/api/v1/wishlist", "", guest)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 clearing, got %d", status)
	}
	_, body = send(t, app, "GET", "/api/v1/wishlist/count", "", guest)
	if !strings.Contains(body, `"count":0`) {
		t.Fatalf("expected empty wishlist, got %s", body)
	}
}

func TestWishlistSync_RequiresUser(t *testing.T) {
	s, _ := newTestService(t)
	app := makeApp(NewHandler(s, "en", nil))

	status, _ := send(t, app, "POST", "/api/v1/wishlist/sync", `{"productIds":["p1"]}`,
		map[string]string{"Cookie": "sid=" + uuid.NewString()})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for guest sync, got %d", status)
	}

	status, body := send(t, app, "POST", "/api/v1/wishlist/sync", `{"productIds":["p1","p3","zzz"]}`,
		map[string]string{"X-User-ID": "7"})
	if status != fiber.StatusOK || !strings.Contains(body, `"count":2`) {
		t.Fatalf("unexpected sync %d: %s", status, body)
	}
}
