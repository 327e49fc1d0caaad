package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/crypto/bcrypt"

	"seatwatch/internal/config"
	"seatwatch/internal/domain"
	"seatwatch/internal/http/handlers"
	"seatwatch/internal/repos"
)

const adminKey = "s3cret-admin-key"

type stubFeed struct {
	mu   sync.Mutex
	recs []domain.RawRecord
	err  error
}

func (f *stubFeed) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs, f.err
}

func (f *stubFeed) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type captureSender struct {
	mu   sync.Mutex
	sent []domain.SeatAlert
}

func (s *captureSender) SendSeatAlert(ctx context.Context, a domain.SeatAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, a)
	return nil
}

type testApp struct {
	app  *fiber.App
	deps *handlers.Deps
	feed *stubFeed
	mail *captureSender
}

// newTestApp wires the real handlers over an in-memory catalog. keyHash ""
// uses a hash of adminKey.
func newTestApp(t *testing.T, keyHash string) testApp {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if keyHash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		keyHash = string(h)
	}
	cfg := config.Config{AdminKeyHash: keyHash, DispatchGroupSize: 10}

	feed := &stubFeed{recs: []domain.RawRecord{
		{"sectionId": json.Number("1"), "courseCode": "CSE110", "sectionType": "LECTURE", "sectionName": "01", "capacity": json.Number("40"), "consumedSeat": json.Number("35")},
		{"sectionId": json.Number("2"), "courseCode": "CSE110", "sectionType": "LECTURE", "sectionName": "02", "capacity": json.Number("40"), "consumedSeat": json.Number("40")},
		{"sectionId": json.Number("3"), "courseCode": "CSE110L", "sectionType": "LAB", "sectionName": "01", "capacity": json.Number("20"), "roomName": "LAB1"},
	}}
	sender := &captureSender{}
	deps := handlers.NewDeps(db, cfg, feed, sender)
	deps.SyncHandler.Go = func(fn func()) { fn() }

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	deps.Mount(app)
	return testApp{app: app, deps: deps, feed: feed, mail: sender}
}

// call sends a JSON request and decodes the JSON response into out (if set).
func (a testApp) call(t *testing.T, method, path string, body any, admin bool, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set(handlers.AdminKeyHeader, adminKey)
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
