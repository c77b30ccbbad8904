// Package email envía correos por SMTP con gomail.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/fletes-api/internal/application/billing"
	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/pkg/config"
)

const msgNotConfigured = "Servidor SMTP no configurado. Verifica las variables de entorno SMTP_HOST, SMTP_USER, SMTP_PASS."

var _ billing.Mailer = (*SMTPMailer)(nil)

// SMTPMailer implementa billing.Mailer. Abre una conexión por envío.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	dial func() (gomail.SendCloser, error)
	log  zerolog.Logger
}

// NewSMTPMailer configura el dialer. Los certificados del servidor no se verifican.
func NewSMTPMailer(cfg config.SMTPConfig, log zerolog.Logger) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Secure
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true} //nolint:gosec
	log = log.With().Str("component", "smtp").Logger()
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Bool("secure", cfg.Secure).Str("user", cfg.User).
		Bool("configurado", cfg.Configured()).Msg("configuración SMTP")
	return &SMTPMailer{cfg: cfg, dial: d.Dial, log: log}
}

// Send arma el mensaje MIME y lo entrega. Devuelve el Message-ID generado.
func (m *SMTPMailer) Send(ctx context.Context, msg billing.Email) (string, error) {
	if !m.cfg.Configured() {
		return "", domain.Configuration(msgNotConfigured)
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(m.cfg.User, m.cfg.Host))
	gm := m.build(msg, messageID)

	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.log.Info().Str("to", msg.To).Str("smtp", fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)).Msg("intentando enviar correo")
	done := make(chan error, 1)
	go func() { done <- m.deliver(gm) }()

	select {
	case err := <-done:
		if err != nil {
			m.log.Error().Err(err).Str("to", msg.To).Msg("error enviando correo")
			return "", domain.Upstream(err, "%s", err.Error())
		}
	case <-ctx.Done():
		m.log.Error().Err(ctx.Err()).Str("to", msg.To).Msg("timeout enviando correo")
		return "", domain.Upstream(ctx.Err(), "Timeout de conexión con el servidor SMTP %s:%d", m.cfg.Host, m.cfg.Port)
	}
	m.log.Info().Str("to", msg.To).Str("message_id", messageID).Msg("correo enviado")
	return messageID, nil
}

func (m *SMTPMailer) deliver(gm *gomail.Message) error {
	s, err := m.dial()
	if err != nil {
		return err
	}
	defer s.Close()
	return gomail.Send(s, gm)
}

func (m *SMTPMailer) build(msg billing.Email, messageID string) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.cfg.User, m.cfg.FromName)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetHeader("Message-ID", messageID)
	gm.SetBody("text/html", msg.HTML)
	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		gm.Attach(a.Filename, settings...)
	}
	return gm
}

// domainOf toma el dominio del remitente para el Message-ID.
func domainOf(user, host string) string {
	if i := strings.LastIndex(user, "@"); i >= 0 && i < len(user)-1 {
		return user[i+1:]
	}
	return host
}
