package log

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Op        string         `json:"op,omitempty"`
	Run       string         `json:"run,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func emit(e entry, err error) {
	e.TS = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

// c may be nil for events outside a request.
func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{Level: level, Action: action, Fields: fields}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
	}
	emit(e, err)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}
func Warn(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("warn", c, action, err, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}

// Pass tags every event of one background run (a sync or notify pass) with
// the operation name and a run id. The zero Pass logs untagged events.
type Pass struct {
	Op    string
	ID    string
	Start time.Time
}

type passKey struct{}

// StartPass opens a pass for op and stores it on the returned context.
func StartPass(ctx context.Context, op string) (context.Context, Pass) {
	p := Pass{Op: op, ID: uuid.NewString(), Start: time.Now()}
	return context.WithValue(ctx, passKey{}, p), p
}

// PassFrom returns the pass carried by ctx, or the zero Pass.
func PassFrom(ctx context.Context) Pass {
	p, _ := ctx.Value(passKey{}).(Pass)
	return p
}

func (p Pass) write(level, action string, err error, fields map[string]any) {
	emit(entry{Level: level, Op: p.Op, Run: p.ID, Action: action, Fields: fields}, err)
}

func (p Pass) Info(action string, fields map[string]any) { p.write("info", action, nil, fields) }
func (p Pass) Warn(action string, err error, fields map[string]any) {
	p.write("warn", action, err, fields)
}
func (p Pass) Error(action string, err error, fields map[string]any) {
	p.write("error", action, err, fields)
}

// Done closes the pass with its wall time.
func (p Pass) Done(action string, fields map[string]any) {
	e := entry{Level: "info", Op: p.Op, Run: p.ID, Action: action, Fields: fields}
	if !p.Start.IsZero() {
		e.ElapsedMS = time.Since(p.Start).Milliseconds()
	}
	emit(e, nil)
}
