package cli

import (
	"os"
	"path/filepath"

	"leadboard/internal/notify"
	"leadboard/internal/store"
	"leadboard/internal/tui"

	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, app *App) error {
	// The alt screen owns stdout/stderr; logs go to a file next to the config.
	dir, err := store.ConfigDir()
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return writeErr(cmd, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "leadboard.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer f.Close()

	ws, err := loadWorkspace(cmd, app, nil)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log.SetOutput(f)

	toasts := &notify.Queue{}
	rt, err := openRuntime(cmd.Context(), app, notify.Fanout{toasts, notify.Log{Logger: app.log}})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.Close()

	return tui.Run(cmd.Context(), rt.engine, ws, tui.Options{
		Leads:  rt.client,
		Toasts: toasts,
		Logger: app.log,
	})
}
