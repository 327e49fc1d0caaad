package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"seatwatch/internal/domain"
)

const DefaultTimeout = 30 * time.Second

// HTTPFetcher reads the schedule feed over HTTP with fiber's client.
type HTTPFetcher struct {
	URL     string
	Timeout time.Duration
}

func NewHTTPFetcher(baseURL, path string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{URL: strings.TrimRight(baseURL, "/") + path, Timeout: timeout}
}

type fetchResult struct {
	code int
	body []byte
	errs []error
}

// Fetch returns the parsed records. Every failure wraps domain.ErrFetchFailure.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}

	done := make(chan fetchResult, 1)
	go func() {
		a := fiber.Get(f.URL).
			Timeout(f.Timeout).
			Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
		code, body, errs := a.Bytes()
		done <- fetchResult{code: code, body: body, errs: errs}
	}()

	var res fetchResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, ctx.Err())
	case res = <-done:
	}

	if len(res.errs) > 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, res.errs[0])
	}
	if res.code < 200 || res.code > 299 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailure, res.code)
	}
	return DecodeFeed(res.body)
}

// DecodeFeed accepts a top-level array of records or an object carrying the
// records under "data". Numbers stay json.Number so ids keep full precision.
// Array entries that are not objects become empty records and fail
// normalization later.
func DecodeFeed(body []byte) ([]domain.RawRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := decode(body, &items); err != nil {
			return nil, err
		}
	case '{':
		var wrapped struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := decode(body, &wrapped); err != nil {
			return nil, err
		}
		items = wrapped.Data
	default:
		return nil, fmt.Errorf("%w: unexpected payload", domain.ErrFetchFailure)
	}

	out := make([]domain.RawRecord, 0, len(items))
	for _, it := range items {
		rec := domain.RawRecord{}
		if t := bytes.TrimSpace(it); len(t) > 0 && t[0] == '{' {
			if err := decode(t, &rec); err != nil {
				rec = domain.RawRecord{}
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %v", domain.ErrFetchFailure, err)
	}
	return nil
}
