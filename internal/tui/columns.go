package tui

import (
	"fmt"
	"strings"

	"leadboard/internal/board"
	"leadboard/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const (
	columnGap    = 2
	minColumnW   = 10
	cardHeight   = 2
	columnChrome = 3 // header, separator, footer
)

// cursor is a position in the renderable view. Lead < 0 means the column background.
type cursor struct {
	Col  int
	Lead int
}

type columnsFrame struct {
	view    board.View
	sel     cursor
	drag    *cursor
	spinner string
	width   int
	height  int
}

func columnWidth(width, n int) int {
	if n <= 0 {
		return width
	}
	colW := (width - columnGap*(n-1)) / n
	if colW < minColumnW {
		colW = minColumnW
	}
	return colW
}

func renderColumns(f columnsFrame) string {
	boards := f.view.Workspace.Boards
	if len(boards) == 0 {
		return normalizePane(styleMuted().Render("(no boards)"), f.width, f.height)
	}
	colW := columnWidth(f.width, len(boards))
	gap := normalizePane("", columnGap, f.height)

	cols := make([]string, 0, len(boards)*2)
	for i, b := range boards {
		if i > 0 {
			cols = append(cols, gap)
		}
		cols = append(cols, renderColumn(f, i, b, colW))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func renderColumn(f columnsFrame, ci int, b model.Board, colW int) string {
	st := f.view.Status[b.ID]

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
	if ci == f.sel.Col && f.drag == nil {
		headerStyle = headerStyle.Foreground(colorSelectedFg).Background(colorSelectedBg)
	}
	if f.drag != nil && f.drag.Col == ci && f.drag.Lead < 0 {
		headerStyle = headerStyle.Foreground(colorAccentFg).Background(colorDropBg)
	}

	title := fmt.Sprintf("%s (%d)", b.Name, countOf(b, st))
	if st.Pending {
		title = f.spinner + " " + title
	}
	if st.Err != nil {
		title += " !"
	}

	lines := []string{
		headerStyle.Width(colW).Render(truncateText(title, colW)),
		styleMuted().Render(strings.Repeat("─", colW)),
	}

	visible := (f.height - columnChrome) / cardHeight
	if visible < 1 {
		visible = 1
	}
	focus := -1
	if f.drag != nil && f.drag.Col == ci {
		focus = f.drag.Lead
	} else if f.drag == nil && f.sel.Col == ci {
		focus = f.sel.Lead
	}
	start := 0
	if focus >= visible {
		start = focus - visible + 1
	}

	activeID := ""
	if f.view.Session != nil {
		activeID = f.view.Session.ActiveLeadID
	}
	for li := start; li < len(b.Leads) && li < start+visible; li++ {
		lines = append(lines, renderCard(b.Leads[li], colW, cardState{
			selected: f.drag == nil && f.sel.Col == ci && f.sel.Lead == li,
			target:   f.drag != nil && f.drag.Col == ci && f.drag.Lead == li,
			active:   b.Leads[li].ID == activeID,
		}))
	}
	if len(b.Leads) == 0 && !st.Pending {
		lines = append(lines, styleMuted().Render("(empty)"))
	}

	body := strings.Join(lines, "\n")
	body = normalizePane(body, colW, f.height-1)

	footer := ""
	if st.HasMore {
		footer = styleMuted().Render(fmt.Sprintf("m: more (%d/%d)", len(b.Leads), st.Total))
	}
	return body + "\n" + normalizePane(footer, colW, 1)
}

// countOf prefers the server's total once a board has been fetched.
func countOf(b model.Board, st board.BoardStatus) int {
	if st.Total > len(b.Leads) {
		return st.Total
	}
	return len(b.Leads)
}

type cardState struct {
	selected bool
	target   bool
	active   bool
}

func renderCard(l model.Lead, colW int, s cardState) string {
	nameStyle := lipgloss.NewStyle().Foreground(colorSurfaceFg)
	metaStyle := faintIfDark(lipgloss.NewStyle().Foreground(colorCardMetaFg))
	switch {
	case s.active:
		nameStyle = nameStyle.Bold(true).Foreground(colorAccentFg).Background(colorAccent)
		metaStyle = metaStyle.Foreground(colorAccentFg).Background(colorAccent)
	case s.target:
		nameStyle = nameStyle.Foreground(colorAccentFg).Background(colorDropBg)
		metaStyle = metaStyle.Foreground(colorAccentFg).Background(colorDropBg)
	case s.selected:
		nameStyle = nameStyle.Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
		metaStyle = metaStyle.Background(colorSelectedBg)
	}

	name := truncateText(" "+l.Name, colW)
	meta := truncateText(" "+leadMeta(l), colW)
	return nameStyle.Width(colW).Render(name) + "\n" + metaStyle.Width(colW).Render(meta)
}

func leadMeta(l model.Lead) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(l.Phone); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(l.Disease); s != "" {
		parts = append(parts, s)
	}
	if l.Date != nil && strings.TrimSpace(*l.Date) != "" {
		parts = append(parts, *l.Date)
	}
	return strings.Join(parts, " · ")
}

// renderDetail is the side pane for the selected lead.
func renderDetail(l *model.Lead, width, height int) string {
	if l == nil {
		return normalizePane(styleMuted().Render("(no lead selected)"), width, height)
	}
	label := styleMuted()
	rows := []string{
		lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg).Render(truncateText(l.Name, width)),
		"",
		label.Render("phone   ") + l.Phone,
		label.Render("disease ") + l.Disease,
	}
	if l.Date != nil {
		rows = append(rows, label.Render("date    ")+*l.Date)
	}
	if !l.CreatedAt.IsZero() {
		rows = append(rows, label.Render("created ")+l.CreatedAt.Format("2006-01-02"))
	}
	if note := renderNote(l.Note, width); note != "" {
		rows = append(rows, "", note)
	}
	return normalizePane(strings.Join(rows, "\n"), width, height)
}
