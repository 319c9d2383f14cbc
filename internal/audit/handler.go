package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/db"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/portalauth"
)

// Handler provides HTTP handlers for the audit log read side, grounded
// verbatim on the teacher's internal/audit.Handler — offset pagination via
// internal/httpserver, scoped to the caller's organization.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

// NewHandler creates an audit log Handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger) *Handler {
	return &Handler{dbtx: dbtx, logger: logger}
}

// Routes returns a chi.Router with audit log routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Get("/", h.handleList)
	return r
}

type entryView struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	APIKeyID   *uuid.UUID      `json:"api_key_id,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID *uuid.UUID      `json:"resource_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	IPAddress  *string         `json:"ip_address,omitempty"`
	UserAgent  *string         `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := portalauth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondAppError(w, apperr.Unauthorized("authentication required"))
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	entries, total, err := h.list(r.Context(), id.OrgID, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(entries, params, total))
}

func (h *Handler) list(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]entryView, int, error) {
	var total int
	if err := h.dbtx.QueryRow(ctx, `SELECT count(*) FROM audit_log WHERE org_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := h.dbtx.Query(ctx, `
		SELECT id, user_id, api_key_id, action, resource, resource_id, detail, ip_address, user_agent, created_at
		FROM audit_log WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		orgID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []entryView
	for rows.Next() {
		var e entryView
		var resourceID *uuid.UUID
		var ip *netip.Addr
		if err := rows.Scan(&e.ID, &e.UserID, &e.APIKeyID, &e.Action, &e.Resource, &resourceID, &e.Detail, &ip, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.ResourceID = resourceID
		if ip != nil {
			s := ip.String()
			e.IPAddress = &s
		}
		out = append(out, e)
	}
	if out == nil {
		out = []entryView{}
	}
	return out, total, rows.Err()
}
