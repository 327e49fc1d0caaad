package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	applog "seatwatch/internal/log"
)

type line struct {
	Level  string         `json:"level"`
	Op     string         `json:"op"`
	Run    string         `json:"run"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

func capture(t *testing.T, fn func()) []line {
	t.Helper()
	var buf bytes.Buffer
	oldW, oldFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var out []line
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var l line
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("not a JSON line %q: %v", raw, err)
		}
		out = append(out, l)
	}
	return out
}

func TestPassTagsEveryEvent(t *testing.T) {
	lines := capture(t, func() {
		ctx, pass := applog.StartPass(context.Background(), "sync")
		pass.Warn("sync.lab.orphan", errors.New("no parent"), map[string]any{"section_id": 3})
		applog.PassFrom(ctx).Error("sync.record.fail", errors.New("boom"), nil)
		pass.Done("sync.done", map[string]any{"added": 2})
	})
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got %d", len(lines))
	}
	run := lines[0].Run
	if run == "" {
		t.Fatal("pass events carry no run id")
	}
	for _, l := range lines {
		if l.Op != "sync" || l.Run != run {
			t.Fatalf("event outside the pass: %+v", l)
		}
	}
	if lines[0].Level != "warn" || lines[0].Err != "no parent" {
		t.Fatalf("warn line = %+v", lines[0])
	}
	if lines[1].Level != "error" || lines[1].Action != "sync.record.fail" {
		t.Fatalf("context-carried pass lost: %+v", lines[1])
	}
}

func TestSeparatePassesGetSeparateRuns(t *testing.T) {
	lines := capture(t, func() {
		_, a := applog.StartPass(context.Background(), "notify")
		_, b := applog.StartPass(context.Background(), "notify")
		a.Info("notify.none", nil)
		b.Info("notify.none", nil)
	})
	if lines[0].Run == lines[1].Run {
		t.Fatalf("two passes share run id %q", lines[0].Run)
	}
}

func TestUntaggedOutsideAPass(t *testing.T) {
	lines := capture(t, func() {
		applog.PassFrom(context.Background()).Info("mail.log.send", map[string]any{"to": "a@example.com"})
		applog.Audit(nil, "users.create", nil)
	})
	for _, l := range lines {
		if l.Op != "" || l.Run != "" {
			t.Fatalf("unexpected pass tags: %+v", l)
		}
	}
	if lines[1].Level != "audit" {
		t.Fatalf("audit level = %q", lines[1].Level)
	}
}
