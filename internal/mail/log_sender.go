package mail

import (
	"context"

	"seatwatch/internal/domain"
	applog "seatwatch/internal/log"
)

// LogSender stands in when SMTP is not configured: every alert is rendered
// and logged, and counts as delivered.
type LogSender struct {
	renderer *Renderer
}

func NewLogSender(r *Renderer) *LogSender { return &LogSender{renderer: r} }

func (s *LogSender) SendSeatAlert(ctx context.Context, a domain.SeatAlert) error {
	subject := Subject(a)
	if s.renderer != nil {
		msg, err := s.renderer.Render(a)
		if err != nil {
			return err
		}
		subject = msg.Subject
	}
	applog.PassFrom(ctx).Info("mail.log.send", map[string]any{
		"to":              a.Recipient,
		"subject":         subject,
		"available_seats": a.AvailableSeats,
	})
	return nil
}
