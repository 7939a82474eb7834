package cli

import (
	"strings"

	"leadboard/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.leadboard/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the config file (token redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg := *app.cfg
			if cfg.Token != "" {
				cfg.Token = "(set)"
			}
			return writeOut(cmd, app, map[string]any{
				"data": cfg,
				"meta": map[string]any{"path": path, "keys": store.ConfigKeys},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key (" + strings.Join(store.ConfigKeys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			if err := store.SetConfigValue(cfg, strings.TrimSpace(args[0]), args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"key": args[0], "ok": true}})
		},
	})

	return cmd
}
