package mail

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	html "github.com/gofiber/template/html/v2"

	"seatwatch/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const seatAvailableTmpl = "seat_available"

// Message is a rendered email ready for a transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Renderer turns seat alerts into messages using the embedded templates.
type Renderer struct {
	engine *html.Engine
	appURL string
}

func NewRenderer(appURL string) (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("title", title)
	engine.AddFunc("seats", func(n int) string {
		if n == 1 {
			return "seat"
		}
		return "seats"
	})
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return &Renderer{engine: engine, appURL: appURL}, nil
}

func Subject(a domain.SeatAlert) string {
	return fmt.Sprintf("Seat Available: %s - %s", a.CourseCode, a.SectionName)
}

type seatAlertData struct {
	domain.SeatAlert
	AppURL string
}

func (r *Renderer) Render(a domain.SeatAlert) (Message, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, seatAvailableTmpl, seatAlertData{SeatAlert: a, AppURL: r.appURL}); err != nil {
		return Message{}, err
	}
	return Message{To: a.Recipient, Subject: Subject(a), HTML: buf.String(), Text: plainText(a, r.appURL)}, nil
}

func plainText(a domain.SeatAlert, appURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s section %s now has %d of %d seats available.\n", a.CourseCode, a.SectionName, a.AvailableSeats, a.Capacity)
	if a.RoomName != "" {
		fmt.Fprintf(&b, "Room: %s\n", a.RoomName)
	}
	if a.Faculties != "" {
		fmt.Fprintf(&b, "Faculty: %s\n", a.Faculties)
	}
	for _, cs := range a.Schedule.ClassSchedules {
		fmt.Fprintf(&b, "  %s %s - %s\n", title(cs.Day), cs.StartTime, cs.EndTime)
	}
	if lab := a.Schedule.LabSection; lab != nil {
		fmt.Fprintf(&b, "Lab %s", lab.LabCourseCode)
		if lab.LabRoomName != "" {
			fmt.Fprintf(&b, " in %s", lab.LabRoomName)
		}
		b.WriteString("\n")
		for _, cs := range lab.LabSchedules.ClassSchedules {
			fmt.Fprintf(&b, "  %s %s - %s\n", title(cs.Day), cs.StartTime, cs.EndTime)
		}
	}
	if a.Schedule.FinalExamDate != "" {
		fmt.Fprintf(&b, "Final exam: %s\n", a.Schedule.FinalExamDate)
	}
	if appURL != "" {
		fmt.Fprintf(&b, "\nManage your alerts: %s\n", appURL)
	}
	return b.String()
}

// title turns feed day names like "SUNDAY" into "Sunday".
func title(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
