package contact

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/mailer"
	"github.com/wichananm65/storefront-backend/internal/setting"
)

type outbox struct {
	sent []mailer.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

type staticSettings struct{ s setting.Settings }

func (s staticSettings) Get(context.Context) (setting.Settings, error) { return s.s, nil }

func makeApp(s *Service) *fiber.App {
	app := fiber.New(fiber.Config{Immutable: true})
	NewHandler(s, nil).RegisterRoutes(app.Group("/api/v1"))
	return app
}

func post(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return res.StatusCode
}

const validMessage = `{"name":"Jenny","email":"jenny@example.com","subject":"Order question","message":"Where is my parcel?"}`

func TestContact_SendsToSiteInbox(t *testing.T) {
	box := &outbox{}
	st := setting.Settings{Site: setting.Site{Name: "Pet Shop", ContactEmail: "hello@shop.test"}}
	app := makeApp(NewService(box, staticSettings{st}, "fallback@shop.test", nil))

	if status := post(t, app, validMessage); status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if len(box.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(box.sent))
	}
	msg := box.sent[0]
	if msg.To[0] != "hello@shop.test" || msg.ReplyTo != "jenny@example.com" {
		t.Fatalf("unexpected routing %+v", msg)
	}
	if msg.Subject != "[Pet Shop] Order question" || !strings.Contains(msg.Body, "Where is my parcel?") {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestContact_FallbackAndErrors(t *testing.T) {
	box := &outbox{}
	app := makeApp(NewService(box, nil, "fallback@shop.test", nil))
	if status := post(t, app, validMessage); status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if box.sent[0].To[0] != "fallback@shop.test" {
		t.Fatalf("expected fallback inbox, got %v", box.sent[0].To)
	}

	if status := post(t, app, `{"name":"Jenny","email":"not-an-email"}`); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}

	app = makeApp(NewService(box, nil, "", nil))
	if status := post(t, app, validMessage); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 without an inbox, got %d", status)
	}

	app = makeApp(NewService(&outbox{err: errors.New("smtp down")}, nil, "fallback@shop.test", nil))
	if status := post(t, app, validMessage); status != fiber.StatusBadGateway {
		t.Fatalf("expected 502 when delivery fails, got %d", status)
	}
}
