package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"leadboard/internal/model"
)

type sample struct {
	ID    string   `json:"id"`
	Order int      `json:"sortOrder"`
	Date  *string  `json:"date"`
	Tags  []string `json:"tags"`
}

func TestWrite_JSONAndEDN(t *testing.T) {
	v := Envelope{Data: []sample{{ID: "l-1", Order: 2, Tags: []string{"vip"}}}}

	var js bytes.Buffer
	if err := Write(&js, v, "json", false); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got := strings.TrimSpace(js.String()); got != `{"data":[{"id":"l-1","sortOrder":2,"date":null,"tags":["vip"]}]}` {
		t.Fatalf("unexpected json: %s", got)
	}

	var edn bytes.Buffer
	if err := Write(&edn, v, "edn", false); err != nil {
		t.Fatalf("edn: %v", err)
	}
	if got := strings.TrimSpace(edn.String()); got != `{:data [{:id "l-1" :date nil :sort-order 2 :tags ["vip"]}]}` {
		t.Fatalf("unexpected edn: %s", got)
	}

	if err := Write(&bytes.Buffer{}, v, "yaml", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestWriteJSON_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"a": 1}, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected pretty output: %q", buf.String())
	}
}

func TestWriteEDN_LeadInstantsAndKeywords(t *testing.T) {
	date := "2025-04-01"
	lead := model.Lead{
		ID:        "6f1c2b2e-8f0a-4a43-9d0e-1f6f2f8e9a01",
		Name:      "Anna Petrova",
		Date:      &date,
		BoardID:   "b-1",
		SortOrder: 0,
		CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := WriteEDN(&buf, lead, false); err != nil {
		t.Fatalf("edn: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `{:id "6f1c2b2e-8f0a-4a43-9d0e-1f6f2f8e9a01" :name "Anna Petrova" :board-id "b-1" :created-at #inst "2025-03-01T09:30:00Z" :date #inst "2025-04-01" :disease "" :note "" :phone "" :sort-order 0}`
	if got != want {
		t.Fatalf("unexpected edn:\n got %s\nwant %s", got, want)
	}
}

func TestWriteEDN_NonInstantStringsStayPlain(t *testing.T) {
	var buf bytes.Buffer
	rec := map[string]any{"at": "soon", "fromBoardId": "2025-04-01", "ok": true}
	if err := WriteEDN(&buf, rec, false); err != nil {
		t.Fatalf("edn: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{:at "soon" :from-board-id "2025-04-01" :ok true}` {
		t.Fatalf("unexpected edn: %s", got)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	var buf bytes.Buffer
	v := Envelope{Data: []int{1, 2}, Meta: map[string]any{}}
	if err := WriteEDN(&buf, v, true); err != nil {
		t.Fatalf("edn: %v", err)
	}
	want := "{\n  :data [\n    1\n    2\n  ]\n}\n"
	if buf.String() != want {
		t.Fatalf("unexpected pretty edn: %q", buf.String())
	}
}
