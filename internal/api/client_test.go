package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"leadboard/internal/devserver"
	"leadboard/internal/model"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *devserver.Server, model.Workspace) {
	t.Helper()
	st := devserver.NewState()
	ws, err := st.Seed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := devserver.New(st, devserver.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	c, err := New(ts.URL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv, ws
}

func TestClient_WorkspaceAndLeadPages(t *testing.T) {
	c, _, seeded := newTestClient(t)
	ctx := context.Background()

	list, err := c.ListWorkspaces(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list workspaces: %v", err)
	}
	if list.AllElements != 1 || len(list.Data) != 1 || list.Data[0].ID != seeded.ID {
		t.Fatalf("unexpected workspace list: %+v", list)
	}
	ws, err := c.GetWorkspace(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("get workspace: %v", err)
	}
	if len(ws.Boards) != 4 || ws.Boards[0].Name != "New" {
		t.Fatalf("unexpected boards: %+v", ws.Boards)
	}

	page, err := c.FetchLeadsPage(ctx, ws.Boards[0].ID, 1, 3)
	if err != nil {
		t.Fatalf("fetch leads: %v", err)
	}
	if len(page.Data) != 3 || page.AllPages != 2 || page.AllElements != 4 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestClient_LeadCRUDAndMove(t *testing.T) {
	c, srv, ws := newTestClient(t)
	ctx := context.Background()
	treated := ws.Boards[3].ID

	l, err := c.CreateLead(ctx, model.CreateLeadRequest{Name: "Nina", Phone: "+1", BoardID: treated})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	date := "2025-08-01"
	up, err := c.UpdateLead(ctx, l.ID, model.UpdateLeadRequest{Name: "Nina R", Note: "vip", Date: &date})
	if err != nil || up.Name != "Nina R" || up.Date == nil {
		t.Fatalf("update lead: %+v %v", up, err)
	}
	if err := c.MoveLead(ctx, model.MoveLeadRequest{LeadID: l.ID, BoardID: ws.Boards[0].ID, SortOrder: 0}); err != nil {
		t.Fatalf("move lead: %v", err)
	}
	page, _ := srv.State().LeadsPage(ws.Boards[0].ID, 1, 10)
	if page.Data[0].ID != l.ID {
		t.Fatalf("expected moved lead first, got %+v", page.Data)
	}
	if err := c.DeleteLead(ctx, l.ID); err != nil {
		t.Fatalf("delete lead: %v", err)
	}
	b, err := c.CreateBoard(ctx, model.CreateBoardRequest{Name: "Lost", WorkspaceID: ws.ID})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if _, err := c.UpdateBoard(ctx, b.ID, model.UpdateBoardRequest{Name: "Archived"}); err != nil {
		t.Fatalf("rename board: %v", err)
	}
	if err := c.DeleteBoard(ctx, b.ID); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if _, err := c.CreateWorkspace(ctx, model.CreateWorkspaceRequest{Name: "Second"}); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
}

func TestClient_ErrorCarriesServerMessage(t *testing.T) {
	c, srv, ws := newTestClient(t)
	srv.FailMoves("board is locked")
	page, _ := srv.State().LeadsPage(ws.Boards[0].ID, 1, 10)

	err := c.MoveLead(context.Background(), model.MoveLeadRequest{LeadID: page.Data[0].ID, BoardID: ws.Boards[1].ID})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "board is locked" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestClient_ErrorFallsBackToStatusText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>gateway</html>"))
	}))
	t.Cleanup(ts.Close)
	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.FetchLeadsPage(context.Background(), "b", 1, 10)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("expected status text message, got %v", err)
	}
}

func TestClient_SendsTokenAndIdempotencyKey(t *testing.T) {
	var (
		mu      sync.Mutex
		auth    []string
		keys    []string
		queries []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	c, err := New(ts.URL+"/", WithToken("secret"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()
	req := model.MoveLeadRequest{LeadID: "l", BoardID: "b"}
	if err := c.MoveLead(ctx, req); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := c.MoveLead(ctx, req); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := c.FetchLeadsPage(ctx, "b", 2, 5); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, a := range auth {
		if a != "Bearer secret" {
			t.Fatalf("unexpected authorization header %q", a)
		}
	}
	if keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("expected distinct idempotency keys, got %q %q", keys[0], keys[1])
	}
	if keys[2] != "" {
		t.Fatalf("expected no idempotency key on reads, got %q", keys[2])
	}
	if queries[2] != "boardId=b&page=2&size=5" {
		t.Fatalf("unexpected query %q", queries[2])
	}
}

func TestClient_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, srv, ws := newTestClient(t, WithTracerProvider(tp))
	srv.FailMoves("nope")
	ctx := context.Background()
	if _, err := c.FetchLeadsPage(ctx, ws.Boards[0].ID, 1, 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	_ = c.MoveLead(ctx, model.MoveLeadRequest{LeadID: "x", BoardID: ws.Boards[0].ID})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "api.lead.page" || spans[0].Status.Code != codes.Ok {
		t.Fatalf("unexpected first span: %s %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Name != "api.lead.move" || spans[1].Status.Code != codes.Error {
		t.Fatalf("unexpected second span: %s %v", spans[1].Name, spans[1].Status)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[1].Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs["http.status_code"].AsInt64() != http.StatusConflict {
		t.Fatalf("expected 409 status attribute, got %v", attrs["http.status_code"])
	}
}

func TestLogTracerProvider_LogsFinishedSpans(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	tp := NewLogTracerProvider(logger)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, srv, ws := newTestClient(t, WithTracerProvider(tp))
	ctx := context.Background()
	if _, err := c.FetchLeadsPage(ctx, ws.Boards[0].ID, 1, 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	srv.FailMoves("board is locked")
	_ = c.MoveLead(ctx, model.MoveLeadRequest{LeadID: "x", BoardID: ws.Boards[0].ID})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 span entries, got %d", len(entries))
	}
	first := entries[0]
	if first.Message != "api.span" || first.Level != logrus.InfoLevel || first.Data["span"] != "api.lead.page" {
		t.Fatalf("unexpected first entry: %s %v %v", first.Message, first.Level, first.Data)
	}
	if first.Data["http.status_code"] != int64(http.StatusOK) {
		t.Fatalf("expected 200 status field, got %#v", first.Data["http.status_code"])
	}
	second := entries[1]
	if second.Level != logrus.WarnLevel || second.Data["span"] != "api.lead.move" || second.Data["error"] == "" {
		t.Fatalf("unexpected second entry: %v %v", second.Level, second.Data)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
