package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadboard/internal/api"
	"leadboard/internal/board"
	"leadboard/internal/model"
	"leadboard/internal/notify"

	"github.com/spf13/cobra"
)

func newLeadsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Leads (cards) on boards",
	}

	cmd.AddCommand(newLeadsListCmd(app))
	cmd.AddCommand(newLeadsCreateCmd(app))
	cmd.AddCommand(newLeadsUpdateCmd(app))
	cmd.AddCommand(newLeadsDeleteCmd(app))
	cmd.AddCommand(newLeadsMoveCmd(app))

	return cmd
}

func newLeadsListCmd(app *App) *cobra.Command {
	var boardID string
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of a board's leads in sort order",
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID = strings.TrimSpace(boardID)
			if boardID == "" {
				return writeErr(cmd, errors.New("missing --board"))
			}
			if size <= 0 {
				size = app.pageSize()
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := c.FetchLeadsPage(cmd.Context(), boardID, page, size)
			if err != nil {
				return writeErr(cmd, err)
			}
			model.SortLeads(p.Data)
			return writeOut(cmd, app, map[string]any{
				"data": p.Data,
				"meta": map[string]any{
					"board":       boardID,
					"page":        page,
					"allPages":    p.AllPages,
					"allElements": p.AllElements,
				},
			})
		},
	}

	cmd.Flags().StringVar(&boardID, "board", "", "Board id")
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-indexed)")
	cmd.Flags().IntVar(&size, "size", 0, "Page size (default: pageSize from config, else 10)")
	_ = cmd.MarkFlagRequired("board")

	return cmd
}

func newLeadsCreateCmd(app *App) *cobra.Command {
	var req model.CreateLeadRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead at the end of a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = strings.TrimSpace(req.Name)
			req.BoardID = strings.TrimSpace(req.BoardID)
			if req.Name == "" {
				return writeErr(cmd, errors.New("missing --name"))
			}
			if req.BoardID == "" {
				return writeErr(cmd, errors.New("missing --board"))
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			l, err := c.CreateLead(cmd.Context(), req)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}

	cmd.Flags().StringVar(&req.BoardID, "board", "", "Board id")
	cmd.Flags().StringVar(&req.Name, "name", "", "Lead name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.Disease, "disease", "", "Disease / reason for contact")
	cmd.Flags().StringVar(&req.Note, "note", "", "Markdown note")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newLeadsUpdateCmd(app *App) *cobra.Command {
	var name, phone, disease, note, date string

	cmd := &cobra.Command{
		Use:   "update <lead-id>",
		Short: "Update lead fields (unset flags keep their current value)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			ws, err := loadWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			cur, err := findLead(cmd.Context(), c, ws, id, app.pageSize())
			if err != nil {
				return writeErr(cmd, err)
			}

			req := model.UpdateLeadRequest{
				Name:    cur.Name,
				Phone:   cur.Phone,
				Disease: cur.Disease,
				Note:    cur.Note,
				Date:    cur.Date,
			}
			f := cmd.Flags()
			if f.Changed("name") {
				req.Name = strings.TrimSpace(name)
			}
			if f.Changed("phone") {
				req.Phone = strings.TrimSpace(phone)
			}
			if f.Changed("disease") {
				req.Disease = strings.TrimSpace(disease)
			}
			if f.Changed("note") {
				req.Note = note
			}
			if f.Changed("date") {
				// An empty --date clears it.
				d := strings.TrimSpace(date)
				req.Date = &d
			}

			l, err := c.UpdateLead(cmd.Context(), id, req)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Lead name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&disease, "disease", "", "Disease / reason for contact")
	cmd.Flags().StringVar(&note, "note", "", "Markdown note")
	cmd.Flags().StringVar(&date, "date", "", "Follow-up date (YYYY-MM-DD; empty clears)")

	return cmd
}

func newLeadsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <lead-id>",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.DeleteLead(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
}

func newLeadsMoveCmd(app *App) *cobra.Command {
	var to string
	var position int

	cmd := &cobra.Command{
		Use:   "move <lead-id>",
		Short: "Move a lead to a board, optionally before the lead at --position",
		Long: strings.TrimSpace(`
Move a lead the same way a drag on the board does: the move is planned against the
current boards, one move call is sent, and the affected boards are re-fetched.

Without --position (or with a position past the end) the lead goes to the end of the
target board. Every issued call is recorded in the local move journal (see: leadboard moves).
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID := strings.TrimSpace(args[0])
			to = strings.TrimSpace(to)
			if to == "" {
				return writeErr(cmd, errors.New("missing --to"))
			}
			ws, err := loadWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := openRuntime(cmd.Context(), app, notify.Log{Logger: app.log})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			out, err := moveLead(cmd.Context(), rt.engine, ws, leadID, to, position)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"outcome": out.Kind,
					"request": out.Request,
					"boards":  rt.engine.Renderable().Workspace.Boards,
				},
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target board id")
	cmd.Flags().IntVar(&position, "position", -1, "Index in the target board to insert before (default: end)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// moveLead drives one drag gesture through the engine and commits it.
func moveLead(ctx context.Context, eng *board.Engine, ws model.Workspace, leadID, to string, position int) (board.Outcome, error) {
	if err := eng.Load(ctx, ws); err != nil {
		return board.Outcome{}, err
	}
	if _, ok := ws.FindBoard(to); !ok {
		return board.Outcome{}, errNotFound("board", to)
	}
	// The lead may live past page 1 of its board.
	for _, b := range ws.Boards {
		if err := loadAll(ctx, eng, b.ID); err != nil {
			return board.Outcome{}, err
		}
	}

	if !eng.StartDrag(leadID) {
		return board.Outcome{}, errNotFound("lead", leadID)
	}
	target := to
	if position >= 0 {
		if dest, ok := eng.Store().Workspace().FindBoard(to); ok && position < len(dest.Leads) {
			target = dest.Leads[position].ID
		}
	}
	eng.HoverOver(leadID, target)
	mv, ok := eng.ReleaseDrag(leadID, target)
	if !ok {
		return board.Outcome{}, errNotFound("board", to)
	}

	out := eng.Commit(ctx, mv)
	switch out.Kind {
	case board.OutcomeRejected, board.OutcomeBusy, board.OutcomeStale:
		return out, out.Err
	}
	return out, nil
}

// findLead pages through every board of ws until it finds id.
func findLead(ctx context.Context, c *api.Client, ws model.Workspace, id string, size int) (model.Lead, error) {
	for _, b := range ws.Boards {
		for page := 1; ; page++ {
			p, err := c.FetchLeadsPage(ctx, b.ID, page, size)
			if err != nil {
				return model.Lead{}, fmt.Errorf("fetch board %s: %w", b.ID, err)
			}
			for _, l := range p.Data {
				if l.ID == id {
					if l.BoardID == "" {
						l.BoardID = b.ID
					}
					return l, nil
				}
			}
			if page >= p.AllPages {
				break
			}
		}
	}
	return model.Lead{}, errNotFound("lead", id)
}
