package tui

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"leadboard/internal/api"
	"leadboard/internal/board"
	"leadboard/internal/devserver"
	"leadboard/internal/model"
	"leadboard/internal/notify"

	tea "github.com/charmbracelet/bubbletea"
)

type harness struct {
	srv    *devserver.Server
	client *api.Client
	eng    *board.Engine
}

func newHarness(t *testing.T) (Model, *harness) {
	t.Helper()
	st := devserver.NewState()
	ws, err := st.Seed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := devserver.New(st, devserver.Options{})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	client, err := api.New(hs.URL)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	q := &notify.Queue{}
	eng := board.New(board.Config{Fetcher: client, Mover: client, Notifier: q, PageSize: 10})
	ctx := context.Background()
	if err := eng.Load(ctx, ws); err != nil {
		t.Fatalf("Load: %v", err)
	}

	m := New(ctx, eng, ws, Options{Leads: client, Toasts: q})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, &harness{srv: srv, client: client, eng: eng}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return mm, cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press sends keys in order and ignores returned commands.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = send(t, m, keyMsg(k))
	}
	return m
}

// pressRun sends one key and runs the command it returns synchronously.
func pressRun(t *testing.T, m Model, k string) Model {
	t.Helper()
	m, cmd := send(t, m, keyMsg(k))
	if cmd == nil {
		t.Fatalf("expected a command for key %q", k)
	}
	m, _ = send(t, m, cmd())
	return m
}

func names(m Model, boardName string) []string {
	for _, b := range m.eng.Renderable().Workspace.Boards {
		if b.Name != boardName {
			continue
		}
		out := make([]string, 0, len(b.Leads))
		for _, l := range b.Leads {
			out = append(out, l.Name)
		}
		return out
	}
	return nil
}

func assertNames(t *testing.T, m Model, boardName string, want ...string) {
	t.Helper()
	got := names(m, boardName)
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("board %s: expected %v, got %v", boardName, want, got)
	}
}

func lastFlash(t *testing.T, m Model) notify.Toast {
	t.Helper()
	if len(m.flashes) == 0 {
		t.Fatalf("expected a toast")
	}
	return m.flashes[len(m.flashes)-1].toast
}

func serverNames(t *testing.T, h *harness, boardName string) []string {
	t.Helper()
	for _, b := range h.eng.Renderable().Workspace.Boards {
		if b.Name != boardName {
			continue
		}
		page, err := h.client.FetchLeadsPage(context.Background(), b.ID, 1, 50)
		if err != nil {
			t.Fatalf("FetchLeadsPage: %v", err)
		}
		out := make([]string, 0, len(page.Data))
		for _, l := range page.Data {
			out = append(out, l.Name)
		}
		return out
	}
	t.Fatalf("board %s not found", boardName)
	return nil
}

func TestDrag_ToOtherBoardBackgroundAppends(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, "space", "l")
	if m.mode != modeDrag {
		t.Fatalf("expected drag mode")
	}
	// The preview shows the lead in the hovered board before anything is sent.
	assertNames(t, m, "Contacted", "Sergey Volkov", "Elena Morozova", "Anna Petrova")
	if !strings.Contains(m.View(), "moving Anna Petrova") {
		t.Fatalf("expected drag header in view")
	}

	m = pressRun(t, m, "enter")
	if m.mode != modeBrowse {
		t.Fatalf("expected browse mode after drop")
	}
	assertNames(t, m, "New", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")
	assertNames(t, m, "Contacted", "Sergey Volkov", "Elena Morozova", "Anna Petrova")
	if got := serverNames(t, h, "Contacted"); !reflect.DeepEqual(got, []string{"Sergey Volkov", "Elena Morozova", "Anna Petrova"}) {
		t.Fatalf("server state: %v", got)
	}
	if m.sel != (cursor{Col: 1, Lead: 2}) {
		t.Fatalf("expected selection to follow the moved lead, got %+v", m.sel)
	}
	if f := lastFlash(t, m); f.Level != notify.LevelSuccess || f.Message != "Anna Petrova moved to Contacted" {
		t.Fatalf("unexpected toast %+v", f)
	}
}

func TestDrag_OntoLeadInsertsBeforeIt(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, "space", "l", "j")
	m = pressRun(t, m, "enter")

	assertNames(t, m, "Contacted", "Anna Petrova", "Sergey Volkov", "Elena Morozova")
	if got := serverNames(t, h, "Contacted"); !reflect.DeepEqual(got, []string{"Anna Petrova", "Sergey Volkov", "Elena Morozova"}) {
		t.Fatalf("server state: %v", got)
	}
}

func TestDrag_ReorderWithinBoard(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, "j", "j", "j", "space", "k", "k", "k")
	m = pressRun(t, m, "enter")

	assertNames(t, m, "New", "Oleg Kim", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva")
	if got := serverNames(t, h, "New"); !reflect.DeepEqual(got, []string{"Oleg Kim", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva"}) {
		t.Fatalf("server state: %v", got)
	}
	if f := lastFlash(t, m); f.Message != "Oleg Kim reordered" {
		t.Fatalf("unexpected toast %+v", f)
	}
}

func TestDrag_CancelRestoresBoards(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, "space", "l", "l")
	assertNames(t, m, "Appointment", "Dmitry Orlov", "Anna Petrova")

	m, cmd := send(t, m, keyMsg("esc"))
	if cmd != nil {
		t.Fatalf("expected no command on cancel")
	}
	if m.mode != modeBrowse || h.eng.HasSnapshot() {
		t.Fatalf("expected drag to be discarded")
	}
	assertNames(t, m, "New", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")
	assertNames(t, m, "Appointment", "Dmitry Orlov")
}

func TestDrag_DropInPlaceSendsNothing(t *testing.T) {
	m, _ := newHarness(t)

	m = press(t, m, "space")
	m = pressRun(t, m, "enter")

	assertNames(t, m, "New", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")
	if len(m.flashes) != 0 {
		t.Fatalf("expected no toast for a no-op drop, got %+v", m.flashes)
	}
}

func TestDrag_RejectedMoveShowsServerMessage(t *testing.T) {
	m, h := newHarness(t)
	h.srv.FailMoves("board is locked")

	m = press(t, m, "space", "l")
	m = pressRun(t, m, "enter")

	assertNames(t, m, "New", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")
	assertNames(t, m, "Contacted", "Sergey Volkov", "Elena Morozova")
	if f := lastFlash(t, m); f.Level != notify.LevelError || f.Message != "board is locked" {
		t.Fatalf("unexpected toast %+v", f)
	}
}

func TestCreateLead_AppendsAndSelects(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, "l", "n")
	if m.mode != modeCreate {
		t.Fatalf("expected create mode")
	}
	m = press(t, m, "Zoe Park")
	m = pressRun(t, m, "enter")

	assertNames(t, m, "Contacted", "Sergey Volkov", "Elena Morozova", "Zoe Park")
	if got := serverNames(t, h, "Contacted"); len(got) != 3 || got[2] != "Zoe Park" {
		t.Fatalf("server state: %v", got)
	}
	if m.sel != (cursor{Col: 1, Lead: 2}) {
		t.Fatalf("expected new lead selected, got %+v", m.sel)
	}
	if f := lastFlash(t, m); f.Message != "Zoe Park created" {
		t.Fatalf("unexpected toast %+v", f)
	}
}

func TestCreateLead_EscapeCancels(t *testing.T) {
	m, _ := newHarness(t)

	m = press(t, m, "n", "Zoe", "esc")
	if m.mode != modeBrowse {
		t.Fatalf("expected browse mode")
	}
	assertNames(t, m, "New", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")
}

func TestDeleteLead_RequiresConfirmation(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, "x")
	if m.mode != modeConfirmDelete {
		t.Fatalf("expected confirm mode")
	}
	// Cancel has focus first.
	m, cmd := send(t, m, keyMsg("enter"))
	if cmd != nil || m.mode != modeBrowse {
		t.Fatalf("expected enter on cancel to close the modal without deleting")
	}

	m = press(t, m, "x", "tab")
	m = pressRun(t, m, "enter")

	assertNames(t, m, "New", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")
	if got := serverNames(t, h, "New"); len(got) != 3 {
		t.Fatalf("server state: %v", got)
	}
	if f := lastFlash(t, m); f.Message != "Anna Petrova deleted" {
		t.Fatalf("unexpected toast %+v", f)
	}
}

func TestRefresh_PicksUpServerChanges(t *testing.T) {
	m, h := newHarness(t)

	var newID string
	for _, b := range h.eng.Renderable().Workspace.Boards {
		if b.Name == "New" {
			newID = b.ID
		}
	}
	if _, err := h.client.CreateLead(context.Background(), model.CreateLeadRequest{Name: "Walk In", BoardID: newID}); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	assertNames(t, m, "New", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim")

	m = pressRun(t, m, "r")
	assertNames(t, m, "New", "Anna Petrova", "Ivan Sokolov", "Maria Lebedeva", "Oleg Kim", "Walk In")

	m = pressRun(t, m, "R")
	assertNames(t, m, "Treated")
}

func TestNavigation_ClampsToBoards(t *testing.T) {
	m, _ := newHarness(t)

	m = press(t, m, "h", "k")
	if m.sel != (cursor{Col: 0, Lead: 0}) {
		t.Fatalf("expected selection clamped at origin, got %+v", m.sel)
	}
	m = press(t, m, "l", "l", "l", "l", "l")
	if m.sel.Col != 3 || m.sel.Lead != -1 {
		t.Fatalf("expected last (empty) board selected, got %+v", m.sel)
	}
	// Nothing to grab on an empty board.
	m = press(t, m, "space")
	if m.mode != modeBrowse {
		t.Fatalf("expected browse mode")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newHarness(t)
	_, cmd := send(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestToasts_ExpireOnTick(t *testing.T) {
	m, _ := newHarness(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.pushFlash(notify.LevelSuccess, "saved")

	m, _ = send(t, m, toastTickMsg(now))
	if len(m.flashes) != 1 {
		t.Fatalf("expected toast to survive the first tick")
	}
	now = now.Add(5 * time.Second)
	m, _ = send(t, m, toastTickMsg(now))
	if len(m.flashes) != 0 {
		t.Fatalf("expected toast to expire, got %+v", m.flashes)
	}
}

func TestView_ShowsBoardsAndDetail(t *testing.T) {
	m, _ := newHarness(t)

	out := m.View()
	for _, want := range []string{"Clinic", "New (4)", "Contacted (2)", "Anna Petrova", "(empty)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}

	m = press(t, m, "i")
	if !strings.Contains(m.View(), "Migraine") {
		t.Fatalf("expected detail pane to show the selected lead")
	}
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&api.Error{Status: 409, Message: "board is locked"}, "board is locked"},
		{&board.StaleReferenceError{Kind: "board", ID: "b-9"}, "board b-9 no longer exists"},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		if got := errorMessage(tc.err); got != tc.want {
			t.Fatalf("errorMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
