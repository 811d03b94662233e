// Package remote talks to a youth-hoops-tracker server over HTTP. Its Client is a
// repository.StatEventStore, so the tracker can use a hosted server as its source of truth.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
	"github.com/maxviazov/youth-hoops-tracker/pkg/response"
)

const apiPrefix = "/api/v1"

// StatusError is returned for any non-2xx answer. It unwraps to the matching repository or
// service sentinel, so callers keep using errors.Is.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Payload response.ErrorPayload
}

func (e *StatusError) Error() string {
	msg := e.Payload.Error
	if e.Payload.Message != "" {
		msg += ": " + e.Payload.Message
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, msg)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusBadRequest:
		if err := service.NewInvalidInputError(e.Payload.FieldErrors); err != nil {
			return err
		}
		return service.ErrInvalidInput
	case e.Code == http.StatusNotFound:
		return repository.ErrNotFound
	case e.Code == http.StatusConflict:
		if e.Payload.Error == "already_exists" {
			return repository.ErrAlreadyExists
		}
		return repository.ErrConflict
	case e.Code == http.StatusTooManyRequests, e.Code >= http.StatusInternalServerError:
		return repository.ErrUnavailable
	default:
		return nil
	}
}

type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 30s overall timeout.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("module", "remote").Logger() }
}

// New builds a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute http(s)", baseURL)
	}
	c := &Client{base: u.String(), http: &http.Client{Timeout: 30 * time.Second}, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	var out model.StatEvent
	err := c.do(ctx, http.MethodPost, "/events", in, &out)
	return out, err
}

// Delete treats 404 as success: the event is gone either way.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// ListByGame walks every page of the game's events. An unknown game yields an empty slice.
func (c *Client) ListByGame(ctx context.Context, gameID int64) ([]model.StatEvent, error) {
	out := []model.StatEvent{}
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(repository.MaxPageLimit))
		q.Set("offset", strconv.Itoa(len(out)))
		var page repository.PageResult[model.StatEvent]
		err := c.do(ctx, http.MethodGet, fmt.Sprintf("/games/%d/events?%s", gameID, q.Encode()), nil, &page)
		if errors.Is(err, repository.ErrNotFound) {
			return []model.StatEvent{}, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) == 0 || len(out) >= page.Total {
			return out, nil
		}
	}
}

func (c *Client) GameTotals(ctx context.Context, gameID int64) (model.GameTotals, error) {
	var out model.GameTotals
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/games/%d/totals", gameID), nil, &out)
	return out, err
}

// Ping checks the server's readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health/ready", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+apiPrefix+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", repository.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		// a non-JSON error body (a proxy page, say) still yields a usable StatusError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&se.Payload)
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

var (
	_ repository.StatEventStore = (*Client)(nil)
	_ repository.Pinger         = (*Client)(nil)
)
