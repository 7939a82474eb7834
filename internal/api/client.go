// Package api is the HTTP client for the CRM REST API.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadboard/internal/model"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "leadboard/internal/api"

// IdempotencyHeader carries a fresh key on every move request.
const IdempotencyHeader = "Idempotency-Key"

// Error is a non-2xx response. Message is the server's "message" field, or the status text.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	tracer  trace.Tracer
	log     logrus.FieldLogger
	newKey  func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing api base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.Tracer(tracerName),
		log:     l,
		newKey:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListWorkspaces(ctx context.Context, page, size int) (model.Page[model.Workspace], error) {
	var out model.Page[model.Workspace]
	err := c.do(ctx, "workspace.list", http.MethodGet, "/workspace", pageQuery(page, size), nil, nil, &out)
	return out, err
}

// GetWorkspace returns the workspace and its boards, in column order. Board leads are not filled.
func (c *Client) GetWorkspace(ctx context.Context, id string) (model.Workspace, error) {
	var out model.Workspace
	err := c.do(ctx, "workspace.get", http.MethodGet, "/workspace/"+url.PathEscape(id), nil, nil, nil, &out)
	return out, err
}

func (c *Client) CreateWorkspace(ctx context.Context, req model.CreateWorkspaceRequest) (model.Workspace, error) {
	var out model.Workspace
	err := c.do(ctx, "workspace.create", http.MethodPost, "/workspace", nil, nil, req, &out)
	return out, err
}

func (c *Client) CreateBoard(ctx context.Context, req model.CreateBoardRequest) (model.Board, error) {
	var out model.Board
	err := c.do(ctx, "board.create", http.MethodPost, "/board", nil, nil, req, &out)
	return out, err
}

func (c *Client) UpdateBoard(ctx context.Context, id string, req model.UpdateBoardRequest) (model.Board, error) {
	var out model.Board
	err := c.do(ctx, "board.update", http.MethodPut, "/board/"+url.PathEscape(id), nil, nil, req, &out)
	return out, err
}

func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	return c.do(ctx, "board.delete", http.MethodDelete, "/board/"+url.PathEscape(id), nil, nil, nil, nil)
}

// FetchLeadsPage returns one 1-indexed page of a board's leads.
func (c *Client) FetchLeadsPage(ctx context.Context, boardID string, page, size int) (model.LeadPage, error) {
	q := pageQuery(page, size)
	q.Set("boardId", boardID)
	var out model.LeadPage
	err := c.do(ctx, "lead.page", http.MethodGet, "/lead/"+url.PathEscape(boardID), q, nil, nil, &out)
	return out, err
}

func (c *Client) CreateLead(ctx context.Context, req model.CreateLeadRequest) (model.Lead, error) {
	var out model.Lead
	err := c.do(ctx, "lead.create", http.MethodPost, "/lead", nil, nil, req, &out)
	return out, err
}

func (c *Client) UpdateLead(ctx context.Context, id string, req model.UpdateLeadRequest) (model.Lead, error) {
	var out model.Lead
	err := c.do(ctx, "lead.update", http.MethodPut, "/lead/"+url.PathEscape(id), nil, nil, req, &out)
	return out, err
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, "lead.delete", http.MethodDelete, "/lead/"+url.PathEscape(id), nil, nil, nil, nil)
}

// MoveLead issues the authoritative reorder/move call.
func (c *Client) MoveLead(ctx context.Context, req model.MoveLeadRequest) error {
	h := http.Header{}
	h.Set(IdempotencyHeader, c.newKey())
	return c.do(ctx, "lead.move", http.MethodPut, "/lead/move", nil, h, req, nil)
}

func pageQuery(page, size int) url.Values {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, header http.Header, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "api."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)
	start := time.Now()
	status := 0
	defer func() {
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		c.log.WithFields(logrus.Fields{
			"op":       op,
			"method":   method,
			"path":     path,
			"status":   status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("api request")
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(data, &body); err == nil {
		msg = strings.TrimSpace(body.Message)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return &Error{Status: status, Message: msg}
}
