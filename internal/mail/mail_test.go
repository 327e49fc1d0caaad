package mail_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	gomail "github.com/wneessen/go-mail"

	"seatwatch/internal/domain"
	"seatwatch/internal/mail"
)

func alert() domain.SeatAlert {
	return domain.SeatAlert{
		AlertID:        "a1",
		Recipient:      "student@example.com",
		CourseCode:     "CSE110",
		SectionName:    "01",
		AvailableSeats: 1,
		Capacity:       40,
		RoomName:       "UB1001",
		Faculties:      "ABC",
		Schedule: domain.Schedule{
			ClassSchedules: []domain.ClassSchedule{{Day: "SUNDAY", StartTime: "08:00", EndTime: "09:20"}},
			FinalExamDate:  "2025-05-20",
			LabSection: &domain.LabSection{
				LabCourseCode: "CSE110L",
				LabRoomName:   "LAB1",
				LabSchedules:  domain.LabSchedules{ClassSchedules: []domain.ClassSchedule{{Day: "MONDAY", StartTime: "14:00", EndTime: "16:50"}}},
			},
		},
	}
}

func TestRenderer(t *testing.T) {
	r, err := mail.NewRenderer("https://seatz.example")
	if err != nil {
		t.Fatal(err)
	}
	m, err := r.Render(alert())
	if err != nil {
		t.Fatal(err)
	}
	if m.Subject != "Seat Available: CSE110 - 01" || m.To != "student@example.com" {
		t.Fatalf("header fields = %q %q", m.Subject, m.To)
	}
	for _, want := range []string{"CSE110", "1</strong> of 40 seat available", "UB1001", "Sunday 08:00 - 09:20", "Lab CSE110L", "LAB1", "2025-05-20", "https://seatz.example"} {
		if !strings.Contains(m.HTML, want) {
			t.Fatalf("html missing %q:\n%s", want, m.HTML)
		}
	}
	if !strings.Contains(m.Text, "now has 1 of 40 seats available") || !strings.Contains(m.Text, "Lab CSE110L in LAB1") {
		t.Fatalf("text part = %q", m.Text)
	}
}

type captureTransport struct {
	msgs []*gomail.Msg
	err  error
}

func (c *captureTransport) DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error {
	c.msgs = append(c.msgs, messages...)
	return c.err
}

func TestSMTPSender(t *testing.T) {
	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "pw",
	}, r)
	if err != nil {
		t.Fatal(err)
	}
	tr := &captureTransport{}
	s.WithTransport(tr)

	if err := s.SendSeatAlert(context.Background(), alert()); err != nil {
		t.Fatal(err)
	}
	if len(tr.msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(tr.msgs))
	}
	m := tr.msgs[0]
	from, err := m.GetSender(false)
	if err != nil || from != "bot@example.com" {
		t.Fatalf("sender = %q, %v", from, err)
	}
	to, err := m.GetRecipients()
	if err != nil || len(to) != 1 || to[0] != "student@example.com" {
		t.Fatalf("recipients = %v, %v", to, err)
	}
	if subj := m.GetGenHeader(gomail.HeaderSubject); len(subj) != 1 || subj[0] != "Seat Available: CSE110 - 01" {
		t.Fatalf("subject = %v", subj)
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.String()
	for _, want := range []string{"multipart/alternative", "text/plain", "text/html", "quoted-printable"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}

	boom := errors.New("421 try later")
	tr.err = boom
	if err := s.SendSeatAlert(context.Background(), alert()); !errors.Is(err, boom) {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestSMTPSenderHonoursCancel(t *testing.T) {
	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	s, err := mail.NewSMTPSender(mail.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "bot@example.com", MaxPerSec: 1}, r)
	if err != nil {
		t.Fatal(err)
	}
	tr := &captureTransport{}
	s.WithTransport(tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendSeatAlert(ctx, alert()); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(tr.msgs) != 0 {
		t.Fatalf("cancelled send reached the transport")
	}
}

func TestSMTPSenderRejectsBadConfig(t *testing.T) {
	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mail.NewSMTPSender(mail.SMTPConfig{Port: 587, From: "bot@example.com"}, r); err == nil {
		t.Fatal("empty host accepted")
	}
}

func TestLogSender(t *testing.T) {
	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	if err := mail.NewLogSender(r).SendSeatAlert(context.Background(), alert()); err != nil {
		t.Fatal(err)
	}
}
