package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"leadboard/internal/api"
	"leadboard/internal/board"
	"leadboard/internal/model"
	"leadboard/internal/notify"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// LeadService is the lead CRUD surface the board needs. *api.Client satisfies it.
type LeadService interface {
	CreateLead(ctx context.Context, req model.CreateLeadRequest) (model.Lead, error)
	DeleteLead(ctx context.Context, id string) error
}

type Options struct {
	Leads LeadService
	// Toasts must be the engine's notification sink for move results to show up.
	Toasts *notify.Queue
	Logger logrus.FieldLogger
	// ToastTTL defaults to 4s.
	ToastTTL time.Duration
}

type viewMode int

const (
	modeBrowse viewMode = iota
	modeDrag
	modeCreate
	modeConfirmDelete
)

type flash struct {
	toast notify.Toast
	until time.Time
}

type (
	loadedMsg    struct{ err error }
	committedMsg struct {
		leadID string
		out    board.Outcome
	}
	refreshedMsg struct{ err error }
	loadedMoreMsg struct {
		boardID string
		err     error
	}
	leadCreatedMsg struct {
		boardID string
		lead    model.Lead
		err     error
	}
	leadDeletedMsg struct {
		boardID string
		name    string
		err     error
	}
	toastTickMsg time.Time
)

// Model is the bubbletea model of one workspace board.
type Model struct {
	ctx    context.Context
	eng    *board.Engine
	ws     model.Workspace
	leads  LeadService
	toasts *notify.Queue
	log    logrus.FieldLogger
	ttl    time.Duration
	now    func() time.Time

	keys keyMap
	help help.Model
	spin spinner.Model

	width  int
	height int

	mode viewMode
	sel  cursor
	// selID keeps the selection on the same lead across refetches.
	selID string

	drag       cursor
	dragLeadID string

	input        textinput.Model
	confirmFocus confirmModalFocus
	pendingDel   *model.Lead

	showDetail bool
	flashes    []flash
}

func New(ctx context.Context, eng *board.Engine, ws model.Workspace, opts Options) Model {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	ttl := opts.ToastTTL
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	toasts := opts.Toasts
	if toasts == nil {
		toasts = &notify.Queue{}
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	in := textinput.New()
	in.Placeholder = "Lead name"
	in.CharLimit = 120
	in.Prompt = ""

	return Model{
		ctx:    ctx,
		eng:    eng,
		ws:     ws,
		leads:  opts.Leads,
		toasts: toasts,
		log:    log,
		ttl:    ttl,
		now:    time.Now,
		keys:   defaultKeyMap(),
		help:   help.New(),
		spin:   sp,
		input:  in,
		width:  100,
		height: 30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spin.Tick, toastTick())
}

func toastTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return toastTickMsg(t) })
}

func (m Model) loadCmd() tea.Cmd {
	eng, ctx, ws := m.eng, m.ctx, m.ws
	return func() tea.Msg {
		return loadedMsg{err: eng.Load(ctx, ws)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case spinner.TickMsg:
		m.spin, cmd = m.spin.Update(msg)
	case toastTickMsg:
		m.expireFlashes()
		cmd = toastTick()
	case loadedMsg:
		if msg.err != nil {
			m.flashError(msg.err)
		}
	case committedMsg:
		m.handleCommitted(msg)
	case refreshedMsg:
		if msg.err != nil {
			m.flashError(msg.err)
		}
	case loadedMoreMsg:
		if msg.err != nil && !board.IsStale(msg.err) {
			m.flashError(msg.err)
		}
	case leadCreatedMsg:
		if msg.err != nil {
			m.flashError(msg.err)
			break
		}
		m.selID = msg.lead.ID
		m.pushFlash(notify.LevelSuccess, fmt.Sprintf("%s created", msg.lead.Name))
	case leadDeletedMsg:
		if msg.err != nil {
			m.flashError(msg.err)
			break
		}
		m.pushFlash(notify.LevelSuccess, fmt.Sprintf("%s deleted", msg.name))
	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)
	}
	m.drainToasts()
	m.syncSelection()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeDrag:
		return m.handleDragKey(msg)
	case modeCreate:
		return m.handleCreateKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	}

	view := m.eng.Renderable().Workspace
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		if m.sel.Col > 0 {
			m.sel.Col--
			m.selID = ""
		}
	case key.Matches(msg, m.keys.Right):
		if m.sel.Col < len(view.Boards)-1 {
			m.sel.Col++
			m.selID = ""
		}
	case key.Matches(msg, m.keys.Up):
		if m.sel.Lead > 0 {
			m.sel.Lead--
			m.selID = ""
		}
	case key.Matches(msg, m.keys.Down):
		b, ok := boardAt(view, m.sel.Col)
		if !ok {
			break
		}
		if m.sel.Lead < len(b.Leads)-1 {
			m.sel.Lead++
			m.selID = ""
			break
		}
		// At the bottom: pull the next page if the server has one.
		if st := m.eng.Renderable().Status[b.ID]; st.HasMore && !st.Pending {
			return m, m.loadMoreCmd(b.ID)
		}
	case key.Matches(msg, m.keys.More):
		if b, ok := boardAt(view, m.sel.Col); ok {
			return m, m.loadMoreCmd(b.ID)
		}
	case key.Matches(msg, m.keys.Refresh):
		if b, ok := boardAt(view, m.sel.Col); ok {
			return m, m.refreshCmd(b.ID)
		}
	case key.Matches(msg, m.keys.Reload):
		return m, m.refreshAllCmd()
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
	case key.Matches(msg, m.keys.Grab):
		l, ok := leadAt(view, m.sel)
		if !ok {
			break
		}
		if m.eng.MoveInFlight(l.ID) {
			m.log.WithField("lead", l.ID).Debug("grab ignored: move in flight")
			break
		}
		if m.eng.StartDrag(l.ID) {
			m.mode = modeDrag
			m.dragLeadID = l.ID
			m.drag = m.sel
		}
	case key.Matches(msg, m.keys.New):
		if _, ok := boardAt(view, m.sel.Col); !ok || m.leads == nil {
			break
		}
		m.mode = modeCreate
		m.input.SetValue("")
		m.input.Width = modalBodyWidth(m.width) - 2
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Delete):
		l, ok := leadAt(view, m.sel)
		if !ok || m.leads == nil {
			break
		}
		m.pendingDel = &l
		m.confirmFocus = confirmFocusCancel
		m.mode = modeConfirmDelete
	}
	return m, nil
}

func (m Model) handleDragKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	view := m.eng.Renderable().Workspace
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.eng.CancelDrag()
		m.endDrag()
		return m, nil
	case key.Matches(msg, m.keys.Drop):
		target := m.dragTargetID(view)
		leadID := m.dragLeadID
		mv, ok := m.eng.ReleaseDrag(leadID, target)
		m.endDrag()
		m.selID = leadID
		if !ok {
			return m, nil
		}
		return m, m.commitCmd(mv)
	case key.Matches(msg, m.keys.Left):
		if m.drag.Col > 0 {
			m.drag = cursor{Col: m.drag.Col - 1, Lead: -1}
		}
	case key.Matches(msg, m.keys.Right):
		if m.drag.Col < len(view.Boards)-1 {
			m.drag = cursor{Col: m.drag.Col + 1, Lead: -1}
		}
	case key.Matches(msg, m.keys.Up):
		if m.drag.Lead >= 0 {
			m.drag.Lead--
		}
	case key.Matches(msg, m.keys.Down):
		if b, ok := boardAt(view, m.drag.Col); ok && m.drag.Lead < len(b.Leads)-1 {
			m.drag.Lead++
		}
	default:
		return m, nil
	}
	if target := m.dragTargetID(view); target != "" {
		m.eng.HoverOver(m.dragLeadID, target)
	}
	// The preview may have added or removed a card under the cursor.
	view = m.eng.Renderable().Workspace
	if b, ok := boardAt(view, m.drag.Col); ok && m.drag.Lead >= len(b.Leads) {
		m.drag.Lead = len(b.Leads) - 1
	}
	return m, nil
}

func (m *Model) endDrag() {
	m.mode = modeBrowse
	m.dragLeadID = ""
	m.drag = cursor{}
}

// dragTargetID is the board id when the cursor is on a column background, else the lead id.
func (m Model) dragTargetID(view model.Workspace) string {
	b, ok := boardAt(view, m.drag.Col)
	if !ok {
		return ""
	}
	if m.drag.Lead < 0 || m.drag.Lead >= len(b.Leads) {
		return b.ID
	}
	return b.Leads[m.drag.Lead].ID
}

func (m Model) handleCreateKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		m.mode = modeBrowse
		m.input.Blur()
		if name == "" {
			return m, nil
		}
		b, ok := boardAt(m.eng.Renderable().Workspace, m.sel.Col)
		if !ok {
			return m, nil
		}
		return m, m.createCmd(b.ID, name)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.pendingDel = nil
	case key.Matches(msg, m.keys.FocusBtn):
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
	case msg.String() == "y":
		m.confirmFocus = confirmFocusConfirm
		return m.handleConfirmKey(tea.KeyMsg{Type: tea.KeyEnter})
	case key.Matches(msg, m.keys.Drop):
		l := m.pendingDel
		m.mode = modeBrowse
		m.pendingDel = nil
		if l == nil || m.confirmFocus != confirmFocusConfirm {
			return m, nil
		}
		return m, m.deleteCmd(*l)
	}
	return m, nil
}

func (m Model) commitCmd(mv board.Move) tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return committedMsg{leadID: mv.LeadID, out: eng.Commit(ctx, mv)}
	}
}

func (m Model) refreshCmd(boardID string) tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: eng.Refresh(ctx, boardID)}
	}
}

func (m Model) refreshAllCmd() tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: eng.RefreshAll(ctx)}
	}
}

func (m Model) loadMoreCmd(boardID string) tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return loadedMoreMsg{boardID: boardID, err: eng.LoadMore(ctx, boardID)}
	}
}

func (m Model) createCmd(boardID, name string) tea.Cmd {
	eng, ctx, leads := m.eng, m.ctx, m.leads
	return func() tea.Msg {
		l, err := leads.CreateLead(ctx, model.CreateLeadRequest{Name: name, BoardID: boardID})
		if err != nil {
			return leadCreatedMsg{boardID: boardID, err: err}
		}
		return leadCreatedMsg{boardID: boardID, lead: l, err: eng.Refresh(ctx, boardID)}
	}
}

func (m Model) deleteCmd(l model.Lead) tea.Cmd {
	eng, ctx, leads := m.eng, m.ctx, m.leads
	boardID := l.BoardID
	if _, id, ok := eng.Store().FindLead(l.ID); ok {
		boardID = id
	}
	return func() tea.Msg {
		if err := leads.DeleteLead(ctx, l.ID); err != nil {
			return leadDeletedMsg{boardID: boardID, name: l.Name, err: err}
		}
		return leadDeletedMsg{boardID: boardID, name: l.Name, err: eng.Refresh(ctx, boardID)}
	}
}

func (m *Model) handleCommitted(msg committedMsg) {
	// Busy and stale outcomes are logged only.
	m.log.WithFields(logrus.Fields{"lead": msg.leadID, "outcome": msg.out.Kind}).Debug("move finished")
	m.selID = msg.leadID
}

// syncSelection keeps the cursor inside the renderable view and on the tracked lead.
func (m *Model) syncSelection() {
	view := m.eng.Renderable().Workspace
	if m.selID != "" {
		for ci, b := range view.Boards {
			if li := model.IndexOfLead(b.Leads, m.selID); li >= 0 {
				m.sel = cursor{Col: ci, Lead: li}
				return
			}
		}
	}
	if m.sel.Col >= len(view.Boards) {
		m.sel.Col = len(view.Boards) - 1
	}
	if m.sel.Col < 0 {
		m.sel = cursor{}
		return
	}
	n := len(view.Boards[m.sel.Col].Leads)
	if m.sel.Lead >= n {
		m.sel.Lead = n - 1
	}
	if m.sel.Lead < 0 && n > 0 {
		m.sel.Lead = 0
	}
	m.selID = ""
	if l, ok := leadAt(view, m.sel); ok {
		m.selID = l.ID
	}
}

func (m *Model) drainToasts() {
	for _, t := range m.toasts.Drain() {
		m.flashes = append(m.flashes, flash{toast: t, until: m.now().Add(m.ttl)})
	}
}

func (m *Model) pushFlash(level notify.Level, msg string) {
	m.flashes = append(m.flashes, flash{toast: notify.Toast{Level: level, Message: msg}, until: m.now().Add(m.ttl)})
}

func (m *Model) flashError(err error) {
	m.pushFlash(notify.LevelError, errorMessage(err))
}

func (m *Model) expireFlashes() {
	now := m.now()
	kept := m.flashes[:0]
	for _, f := range m.flashes {
		if now.Before(f.until) {
			kept = append(kept, f)
		}
	}
	m.flashes = kept
}

// errorMessage prefers the server's message for API errors.
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	var stale *board.StaleReferenceError
	if errors.As(err, &stale) {
		return fmt.Sprintf("%s %s no longer exists", stale.Kind, stale.ID)
	}
	return err.Error()
}

func boardAt(view model.Workspace, col int) (model.Board, bool) {
	if col < 0 || col >= len(view.Boards) {
		return model.Board{}, false
	}
	return view.Boards[col], true
}

func leadAt(view model.Workspace, c cursor) (model.Lead, bool) {
	b, ok := boardAt(view, c.Col)
	if !ok || c.Lead < 0 || c.Lead >= len(b.Leads) {
		return model.Lead{}, false
	}
	return b.Leads[c.Lead], true
}

func (m Model) View() string {
	v := m.eng.Renderable()

	switch m.mode {
	case modeCreate:
		b, _ := boardAt(v.Workspace, m.sel.Col)
		body := renderInputLine(modalBodyWidth(m.width), m.input.View()) + "\n\n" +
			styleMuted().Render("enter: create   esc: cancel")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			renderModalBox(m.width, "New lead in "+b.Name, body))
	case modeConfirmDelete:
		name := ""
		if m.pendingDel != nil {
			name = m.pendingDel.Name
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			renderConfirmModal(m.width, "Delete lead", fmt.Sprintf("Delete %q?", name), "Delete", "Cancel", m.confirmFocus))
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg).Render(v.Workspace.Name)
	if m.mode == modeDrag && v.Session != nil {
		header += styleMuted().Render("  moving " + v.Session.ActiveLead.Name)
	}

	var helpView string
	if m.mode == modeDrag {
		helpView = m.help.View(dragHelp{m.keys})
	} else {
		helpView = m.help.View(browseHelp{m.keys})
	}
	toastView := m.renderFlashes()

	bodyH := m.height - 3
	if bodyH < columnChrome+cardHeight {
		bodyH = columnChrome + cardHeight
	}

	frame := columnsFrame{view: v, sel: m.sel, spinner: m.spin.View(), width: m.width, height: bodyH}
	if m.mode == modeDrag {
		d := m.drag
		frame.drag = &d
	}
	body := ""
	if m.showDetail {
		detailW := m.width / 3
		frame.width = m.width - detailW - columnGap
		var sel *model.Lead
		if l, ok := leadAt(v.Workspace, m.sel); ok {
			sel = &l
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			renderColumns(frame),
			normalizePane("", columnGap, bodyH),
			renderDetail(sel, detailW, bodyH),
		)
	} else {
		body = renderColumns(frame)
	}

	return strings.Join([]string{header, body, toastView, helpView}, "\n")
}

func (m Model) renderFlashes() string {
	if len(m.flashes) == 0 {
		return ""
	}
	f := m.flashes[len(m.flashes)-1]
	st := lipgloss.NewStyle().Foreground(colorToastOkFg)
	if f.toast.Level == notify.LevelError {
		st = lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorToastErrorBg).Padding(0, 1)
	}
	return st.Render(truncateText(f.toast.Message, m.width))
}
