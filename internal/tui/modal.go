package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

func modalWidth(width int) int {
	w := width * 2 / 3
	if w > 64 {
		w = 64
	}
	if w < 24 {
		w = 24
	}
	return w
}

// modalBodyWidth is the usable content width inside a modal of the given screen width.
func modalBodyWidth(width int) int {
	return modalWidth(width) - 4
}

func renderModalBox(width int, title string, content string) string {
	w := modalWidth(width)
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccentFg).
		Background(colorAccent).
		Padding(0, 1)
	box := lipgloss.NewStyle().
		Width(w).
		Padding(1, 2).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	return box.Render(titleStyle.Render(title) + "\n\n" + content)
}

func renderConfirmModal(width int, title string, body string, confirmLabel string, cancelLabel string, focus confirmModalFocus) string {
	// No borders: nested bordered components inside a modal background show artifacts in some terminals.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	}
	if focus == confirmFocusCancel {
		cancel = btnActive.Render(cancelLabel)
	}

	sep := lipgloss.NewStyle().Background(colorControlBg).Render(" ")
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, sep, cancel)

	bodyW := modalBodyWidth(width)
	help := styleMuted().Width(bodyW).Render("tab: focus   enter: select   esc: cancel")

	content := strings.Join([]string{
		body,
		"",
		controls,
		"",
		help,
	}, "\n")
	return renderModalBox(width, title, content)
}

func renderInputLine(bodyW int, inputView string) string {
	if bodyW < 10 {
		bodyW = 10
	}

	// A text input must stay on one visual line or typing looks like newline insertion.
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	inputView = strings.ReplaceAll(inputView, "\r", " ")

	line := lipgloss.PlaceHorizontal(
		bodyW,
		lipgloss.Left,
		" "+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > bodyW {
		line = xansi.Cut(line, 0, bodyW) + "\x1b[0m"
	}
	return line
}
