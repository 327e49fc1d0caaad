package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"seatwatch/internal/domain"
)

// Transport delivers composed messages. *gomail.Client satisfies it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	MaxPerSec float64
	Timeout   time.Duration
}

// SMTPSender delivers seat alerts over SMTP with STARTTLS (implicit TLS on
// 465) and PLAIN auth. Sends are paced by a token bucket shared across
// goroutines.
type SMTPSender struct {
	cfg       SMTPConfig
	renderer  *Renderer
	limiter   *rate.Limiter
	transport Transport
}

func NewSMTPSender(cfg SMTPConfig, r *Renderer) (*SMTPSender, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.MaxPerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.MaxPerSec), 1)
	}
	return &SMTPSender{cfg: cfg, renderer: r, limiter: lim, transport: client}, nil
}

// WithTransport swaps the SMTP client; used by tests.
func (s *SMTPSender) WithTransport(t Transport) *SMTPSender {
	s.transport = t
	return s
}

func (s *SMTPSender) SendSeatAlert(ctx context.Context, a domain.SeatAlert) error {
	msg, err := s.renderer.Render(a)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	m, err := s.compose(msg)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.transport.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// compose builds a multipart/alternative message: plain text first, HTML as
// the preferred alternative.
func (s *SMTPSender) compose(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, err
	}
	if err := m.To(msg.To); err != nil {
		return nil, err
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}
