package order

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

func makeApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{Immutable: true})
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User-ID"); id != "" {
			c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": id, "email": id + "@example.com"}})
		}
		return c.Next()
	})
	api := app.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterAdminRoutes(api.Group("/admin"))
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, []byte) {
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
	return res.StatusCode, b
}

const checkoutBody = `{"email":"guest@example.com","address":{"name":"Somchai","line1":"1 Sukhumvit Rd","city":"Bangkok","postalCode":"10110","country":"TH"}}`

func TestOrderRoutes(t *testing.T) {
	f := newFixture()
	app := makeApp(NewHandler(f.svc, "en", nil))
	sid := uuid.NewString()
	guest := map[string]string{"Cookie": "sid=" + sid}

	if status, _ := send(t, app, "POST", "/api/v1/checkout", checkoutBody, nil); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}
	if status, _ := send(t, app, "POST", "/api/v1/checkout", checkoutBody, guest); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty cart, got %d", status)
	}
	if status, b := send(t, app, "POST", "/api/v1/checkout", `{"email":"nope"}`, guest); status != fiber.StatusBadRequest || !strings.Contains(string(b), "email") {
		t.Fatalf("expected 400 with email error, got %d %s", status, b)
	}

	f.fill(t, "guest:"+sid, map[string]int{"p1": 1})
	status, b := send(t, app, "POST", "/api/v1/checkout", checkoutBody, guest)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, b)
	}
	var o Order
	if err := json.Unmarshal(b, &o); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if o.Number != 1001 || o.Status != StatusPending {
		t.Fatalf("unexpected order %+v", o)
	}

	if status, _ := send(t, app, "GET", "/api/v1/orders/"+o.ID, "", guest); status != fiber.StatusOK {
		t.Fatalf("expected 200 for own order, got %d", status)
	}
	other := map[string]string{"Cookie": "sid=" + uuid.NewString()}
	if status, _ := send(t, app, "GET", "/api/v1/orders/"+o.ID, "", other); status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for another session, got %d", status)
	}

	status, b = send(t, app, "GET", "/api/v1/orders", "", guest)
	if status != fiber.StatusOK || !strings.Contains(string(b), `"total":1`) {
		t.Fatalf("unexpected list %d: %s", status, b)
	}

	if status, _ := send(t, app, "PATCH", "/api/v1/admin/orders/"+o.ID+"/status", `{"status":"lost"}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", status)
	}
	if status, _ := send(t, app, "PATCH", "/api/v1/admin/orders/"+o.ID+"/status", `{"status":"shipped"}`, nil); status != fiber.StatusConflict {
		t.Fatalf("expected 409 for pending -> shipped, got %d", status)
	}
	if status, _ := send(t, app, "PATCH", "/api/v1/admin/orders/"+o.ID+"/status", `{"status":"paid"}`, nil); status != fiber.StatusOK {
		t.Fatalf("expected 200 for pending -> paid, got %d", status)
	}

	status, b = send(t, app, "POST", "/api/v1/orders/"+o.ID+"/cancel", "", guest)
	if status != fiber.StatusOK || !strings.Contains(string(b), `"status":"cancelled"`) {
		t.Fatalf("unexpected cancel %d: %s", status, b)
	}

	status, b = send(t, app, "GET", "/api/v1/admin/orders?status=cancelled", "", nil)
	if status != fiber.StatusOK || !strings.Contains(string(b), o.ID) {
		t.Fatalf("unexpected admin list %d: %s", status, b)
	}
}

func TestCheckoutUsesTokenEmail(t *testing.T) {
	f := newFixture()
	app := makeApp(NewHandler(f.svc, "en", nil))
	f.fill(t, "user:9", map[string]int{"p2": 1})

	body := `{"address":{"name":"A","line1":"B","city":"C","postalCode":"1","country":"TH"}}`
	status, b := send(t, app, "POST", "/api/v1/checkout", body, map[string]string{"X-User-ID": "9"})
	if status != fiber.StatusCreated || !strings.Contains(string(b), `"email":"9@example.com"`) {
		t.Fatalf("unexpected checkout %d: %s", status, b)
	}
}
