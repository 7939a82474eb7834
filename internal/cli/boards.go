package cli

import (
	"errors"
	"strings"

	"leadboard/internal/model"

	"github.com/spf13/cobra"
)

func newBoardsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "Boards (columns) of the current workspace",
	}

	cmd.AddCommand(newBoardsListCmd(app))
	cmd.AddCommand(newBoardsCreateCmd(app))
	cmd.AddCommand(newBoardsRenameCmd(app))
	cmd.AddCommand(newBoardsDeleteCmd(app))

	return cmd
}

type boardSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Leads int    `json:"leads"`
}

func newBoardsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List boards in column order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			out := make([]boardSummary, 0, len(ws.Boards))
			for _, b := range ws.Boards {
				// Page 1 of size 1 is enough to learn the total.
				p, err := c.FetchLeadsPage(cmd.Context(), b.ID, 1, 1)
				if err != nil {
					return writeErr(cmd, err)
				}
				out = append(out, boardSummary{ID: b.ID, Name: b.Name, Leads: p.AllElements})
			}
			return writeOut(cmd, app, map[string]any{
				"data": out,
				"meta": map[string]any{"workspace": ws.ID},
			})
		},
	}
}

func newBoardsCreateCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a board at the end of the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return writeErr(cmd, errors.New("missing --name"))
			}
			wsID, err := app.workspaceID()
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := c.CreateBoard(cmd.Context(), model.CreateBoardRequest{Name: name, WorkspaceID: wsID})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": b})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Board name")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newBoardsRenameCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename <board-id>",
		Short: "Rename a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return writeErr(cmd, errors.New("missing --name"))
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := c.UpdateBoard(cmd.Context(), strings.TrimSpace(args[0]), model.UpdateBoardRequest{Name: name})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": b})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New board name")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newBoardsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board and its leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteBoard(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
}
