package tui

import (
	"context"

	"leadboard/internal/board"
	"leadboard/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the board for ws until the user quits. The engine is loaded by the model's Init.
func Run(ctx context.Context, eng *board.Engine, ws model.Workspace, opts Options) error {
	applyThemePreference()
	applyColorProfilePreference()

	m := New(ctx, eng, ws, opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
