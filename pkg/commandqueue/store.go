package commandqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for the per-device command queue.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates a commandqueue Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

const commandColumns = `id, org_id, store_id, device_id, command_type, body, status, sensitive, created_at, delivered_at, ack_result`

func scanCommand(row pgx.Row) (Command, error) {
	var c Command
	err := row.Scan(&c.ID, &c.OrgID, &c.StoreID, &c.DeviceID, &c.CommandType, &c.Body, &c.Status, &c.Sensitive,
		&c.CreatedAt, &c.DeliveredAt, &c.AckResult)
	return c, err
}

// Enqueue inserts a new command in "queued" status. sensitive commands must
// only be enqueued from the portal facade (spec §4.4); this method does not
// itself enforce that, since authorization happens at the handler layer.
func (r *Repo) Enqueue(ctx context.Context, orgID, storeID, deviceID uuid.UUID, commandType string, body []byte, sensitive bool) (Command, error) {
	query := `INSERT INTO device_command_queue (org_id, store_id, device_id, command_type, body, status, sensitive)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + commandColumns
	c, err := scanCommand(r.dbtx.QueryRow(ctx, query, orgID, storeID, deviceID, commandType, body, StatusQueued, sensitive))
	if err != nil {
		return Command{}, fmt.Errorf("enqueuing command: %w", err)
	}
	return c, nil
}

// FetchPending returns up to limit commands in {queued, delivered} status
// for a device, ordered by creation time, and transitions every queued row
// returned to delivered (delivered rows stay delivered). This is the
// at-least-once fetch contract: a device that crashes before acking sees
// the same command again next poll.
func (r *Repo) FetchPending(ctx context.Context, deviceID uuid.UUID, limit int) ([]Command, error) {
	rows, err := r.dbtx.Query(ctx, `
		SELECT `+commandColumns+`
		FROM device_command_queue
		WHERE device_id = $1 AND status IN ('queued', 'delivered')
		ORDER BY created_at ASC
		LIMIT $2`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching pending commands: %w", err)
	}
	var out []Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(out))
	for i, c := range out {
		if c.Status == StatusQueued {
			ids = append(ids, c.ID)
			out[i].Status = StatusDelivered
		}
	}
	if len(ids) > 0 {
		if _, err := r.dbtx.Exec(ctx,
			`UPDATE device_command_queue SET status = $1, delivered_at = now() WHERE id = ANY($2)`,
			StatusDelivered, ids,
		); err != nil {
			return nil, fmt.Errorf("marking commands delivered: %w", err)
		}
	}
	return out, nil
}

// Ack updates a command's status to acked or failed, only if it belongs to
// the given device and is currently queued or delivered. Returns false if
// no row matched (already terminal, wrong device, or unknown id) — the
// caller maps that to a 404 (spec §4.4 ack contract).
func (r *Repo) Ack(ctx context.Context, deviceID, commandID uuid.UUID, status string, result *string) (bool, error) {
	tag, err := r.dbtx.Exec(ctx, `
		UPDATE device_command_queue
		SET status = $1, ack_result = $2
		WHERE id = $3 AND device_id = $4 AND status IN ('queued', 'delivered')`,
		status, result, commandID, deviceID,
	)
	if err != nil {
		return false, fmt.Errorf("acking command: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireStale transitions queued commands older than olderThan to expired,
// and returns how many rows were affected. Only queued -> expired is a
// valid transition (invariant 3); a delivered command may only resolve to
// acked or failed, never expired, since a device has already seen it.
func (r *Repo) ExpireStale(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.dbtx.Exec(ctx, `
		UPDATE device_command_queue
		SET status = $1
		WHERE status = 'queued' AND created_at < $2`,
		StatusExpired, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("expiring stale commands: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByStore returns commands for a store, most recent first, for portal
// inspection/audit use.
func (r *Repo) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]Command, error) {
	rows, err := r.dbtx.Query(ctx,
		`SELECT `+commandColumns+` FROM device_command_queue WHERE store_id = $1 ORDER BY created_at DESC LIMIT $2`,
		storeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing commands: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
