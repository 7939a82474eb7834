package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"leadboard/internal/model"
)

// RecordMove appends one move attempt to the journal.
func (d *DB) RecordMove(ctx context.Context, rec model.MoveRecord) error {
	at := rec.At
	if at.IsZero() {
		at = d.now()
	}
	var errText sql.NullString
	if strings.TrimSpace(rec.Error) != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO moves
		(lead_id, from_board_id, to_board_id, sort_order, old_sort_order, ok, error, at_unixms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LeadID, rec.FromBoardID, rec.ToBoardID, rec.SortOrder, rec.OldSortOrder, boolToInt(rec.OK), errText, at.UnixMilli())
	return err
}

// ListMoves returns the most recent moves, newest first. leadID filters when non-empty.
func (d *DB) ListMoves(ctx context.Context, leadID string, limit int) ([]model.MoveRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, lead_id, from_board_id, to_board_id, sort_order, old_sort_order, ok, error, at_unixms FROM moves`
	args := []any{}
	if leadID = strings.TrimSpace(leadID); leadID != "" {
		q += ` WHERE lead_id = ?`
		args = append(args, leadID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MoveRecord{}
	for rows.Next() {
		var (
			rec     model.MoveRecord
			ok      int
			errText sql.NullString
			atMs    int64
		)
		if err := rows.Scan(&rec.ID, &rec.LeadID, &rec.FromBoardID, &rec.ToBoardID, &rec.SortOrder, &rec.OldSortOrder, &ok, &errText, &atMs); err != nil {
			return nil, err
		}
		rec.OK = ok != 0
		rec.Error = errText.String
		rec.At = time.UnixMilli(atMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
