package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const TypeAttemptSubmitted = "AttemptSubmitted"

// Page sizes for Since.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type Event struct {
	Offset    int64           `json:"offset"`
	SiteID    string          `json:"siteId"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
}

// Execer is satisfied by both *sql.DB and *sql.Tx, so events can be written
// inside the transaction that produced them.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// Append writes one event through ex. Pass a *sql.Tx to tie the event to
// the surrounding write.
func (r *EventRepo) Append(ctx context.Context, ex Execer, typ, key string, payload any) error {
	if ex == nil {
		ex = r.db
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(data), time.Now().UnixMilli())
	return err
}

// Since returns events with an offset greater than after, oldest first.
// limit defaults to DefaultLimit and is capped at MaxLimit.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at
		   FROM event_log WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
