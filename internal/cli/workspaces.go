package cli

import (
	"errors"
	"strings"

	"leadboard/internal/model"
	"leadboard/internal/store"

	"github.com/spf13/cobra"
)

func newWorkspacesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List, create and select workspaces",
	}

	cmd.AddCommand(newWorkspacesListCmd(app))
	cmd.AddCommand(newWorkspacesCreateCmd(app))
	cmd.AddCommand(newWorkspacesUseCmd(app))
	cmd.AddCommand(newWorkspacesShowCmd(app))

	return cmd
}

func newWorkspacesListCmd(app *App) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces (paginated)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := c.ListWorkspaces(cmd.Context(), page, size)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": p.Data,
				"meta": map[string]any{
					"page":        page,
					"allPages":    p.AllPages,
					"allElements": p.AllElements,
					"current":     app.Workspace,
				},
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-indexed)")
	cmd.Flags().IntVar(&size, "size", 10, "Page size")

	return cmd
}

func newWorkspacesCreateCmd(app *App) *cobra.Command {
	var name string
	var use bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return writeErr(cmd, errors.New("missing --name"))
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ws, err := c.CreateWorkspace(cmd.Context(), model.CreateWorkspaceRequest{Name: name})
			if err != nil {
				return writeErr(cmd, err)
			}
			if use {
				if err := saveCurrentWorkspace(app, ws.ID); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": ws})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workspace name")
	cmd.Flags().BoolVar(&use, "use", false, "Make it the current workspace")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newWorkspacesUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <workspace-id>",
		Short: "Set the current workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ws, err := c.GetWorkspace(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := saveCurrentWorkspace(app, ws.ID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": ws.ID, "name": ws.Name}})
		},
	}
}

func newWorkspacesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [workspace-id]",
		Short: "Show a workspace with its boards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, app, args)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ws})
		},
	}
}

// loadWorkspace fetches the workspace named by args[0] or the current one.
func loadWorkspace(cmd *cobra.Command, app *App, args []string) (model.Workspace, error) {
	id := ""
	if len(args) > 0 {
		id = strings.TrimSpace(args[0])
	}
	if id == "" {
		var err error
		if id, err = app.workspaceID(); err != nil {
			return model.Workspace{}, err
		}
	}
	c, err := app.client()
	if err != nil {
		return model.Workspace{}, err
	}
	return c.GetWorkspace(cmd.Context(), id)
}

func saveCurrentWorkspace(app *App, id string) error {
	cfg := app.cfg
	if cfg == nil {
		cfg = &store.GlobalConfig{}
	}
	cfg.CurrentWorkspace = id
	app.Workspace = id
	return store.SaveConfig(cfg)
}
