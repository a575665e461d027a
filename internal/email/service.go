package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/carebook/internal/config"
)

type Service interface {
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// Dialer is the part of gomail.Dialer the SMTP service needs.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer Dialer
	from   string
}

// NewService returns an SMTP sender, or a logging no-op when no host is
// configured.
func NewService(cfg config.EmailConfig) Service {
	if cfg.Host == "" {
		return NewNoopService()
	}
	return NewSMTPService(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewSMTPService(dialer Dialer, from string) Service {
	return &smtpService{dialer: dialer, from: from}
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if to == "" {
		return fmt.Errorf("missing recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Ctx(ctx).Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

type noopService struct{}

func NewNoopService() Service {
	return noopService{}
}

func (noopService) SendCustom(ctx context.Context, to string, subject string, _ string) error {
	log.Ctx(ctx).Info().Str("to", to).Str("subject", subject).Msg("smtp not configured, email skipped")
	return nil
}
