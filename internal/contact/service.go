package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/mailer"
	"github.com/wichananm65/storefront-backend/internal/setting"
)

var ErrNoInbox = errors.New("no contact inbox configured")

type Settings interface {
	Get(ctx context.Context) (setting.Settings, error)
}

type Service struct {
	mailer   mailer.Mailer
	settings Settings
	fallback string
	log      *zap.Logger
}

// NewService sends to the site's contact email, or to fallback when none is set.
func NewService(m mailer.Mailer, settings Settings, fallback string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{mailer: m, settings: settings, fallback: fallback, log: log}
}

func (s *Service) inbox(ctx context.Context) (string, string, error) {
	to, site := s.fallback, ""
	if s.settings != nil {
		st, err := s.settings.Get(ctx)
		if err != nil {
			return "", "", fmt.Errorf("load settings: %w", err)
		}
		site = st.Site.Name
		if st.Site.ContactEmail != "" {
			to = st.Site.ContactEmail
		}
	}
	if to == "" {
		return "", "", ErrNoInbox
	}
	return to, site, nil
}

func (s *Service) Send(ctx context.Context, in Input) error {
	to, site, err := s.inbox(ctx)
	if err != nil {
		return err
	}
	subject := strings.TrimSpace(in.Subject)
	if site != "" {
		subject = "[" + site + "] " + subject
	}
	msg := mailer.Message{
		To:      []string{to},
		ReplyTo: in.Email,
		Subject: subject,
		Body:    body(in),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send contact message: %w", err)
	}
	s.log.Info("contact message sent", zap.String("from", in.Email))
	return nil
}

func body(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", in.Name, in.Email)
	if in.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", in.Phone)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(in.Message))
	b.WriteString("\n")
	return b.String()
}
