package eventlog

import (
	"context"
	"fmt"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for device_event_log and the
// per-device watermark.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates an eventlog Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

// Insert attempts to insert an event row. It returns inserted=false without
// error when (device_id, event_id) already exists — the event is a
// duplicate and is dropped silently per spec §4.3 step 2.
func (r *Repo) Insert(ctx context.Context, e Entry) (inserted bool, err error) {
	tag, err := r.dbtx.Exec(ctx, `
		INSERT INTO device_event_log (org_id, store_id, device_id, event_id, seq, event_type, event_body, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (device_id, event_id) DO NOTHING`,
		e.OrgID, e.StoreID, e.DeviceID, e.EventID, e.Seq, e.EventType, e.EventBody, e.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
