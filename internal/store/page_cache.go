package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leadboard/internal/model"

	"github.com/goccy/go-json"
)

// PageCache persists lead pages in the lead_pages table so a restarted TUI paints immediately.
type PageCache struct {
	db  *DB
	ttl time.Duration
}

func (d *DB) PageCache(ttl time.Duration) *PageCache {
	if ttl < 0 {
		ttl = 0
	}
	return &PageCache{db: d, ttl: ttl}
}

func (c *PageCache) Get(ctx context.Context, boardID string, page, size int) (model.LeadPage, bool, error) {
	var (
		payload string
		expires sql.NullInt64
	)
	err := c.db.sql.QueryRowContext(ctx,
		`SELECT payload_json, expires_at_unixms FROM lead_pages WHERE board_id = ? AND page = ? AND size = ?`,
		boardID, page, size).Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LeadPage{}, false, nil
	}
	if err != nil {
		return model.LeadPage{}, false, err
	}
	if expires.Valid && c.db.now().UnixMilli() >= expires.Int64 {
		return model.LeadPage{}, false, nil
	}
	var lp model.LeadPage
	if err := json.Unmarshal([]byte(payload), &lp); err != nil {
		return model.LeadPage{}, false, nil
	}
	return lp, true, nil
}

func (c *PageCache) Put(ctx context.Context, boardID string, page, size int, lp model.LeadPage) error {
	b, err := json.Marshal(lp)
	if err != nil {
		return err
	}
	var expires sql.NullInt64
	if c.ttl > 0 {
		expires = sql.NullInt64{Int64: c.db.now().Add(c.ttl).UnixMilli(), Valid: true}
	}
	_, err = c.db.sql.ExecContext(ctx, `INSERT INTO lead_pages (board_id, page, size, payload_json, expires_at_unixms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(board_id, page, size) DO UPDATE SET payload_json = excluded.payload_json, expires_at_unixms = excluded.expires_at_unixms`,
		boardID, page, size, string(b), expires)
	return err
}

func (c *PageCache) EvictBoard(ctx context.Context, boardID string) error {
	_, err := c.db.sql.ExecContext(ctx, `DELETE FROM lead_pages WHERE board_id = ?`, boardID)
	return err
}
