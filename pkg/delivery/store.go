package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for delivery integrations, orders, and
// their audit log.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates a delivery Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

const integrationColumns = `id, store_id, provider, provider_store_ref, api_key_ciphertext, client_id_ciphertext,
	client_secret_ciphertext, webhook_secret_ciphertext, status, last_sync_at, last_error_message, created_at, updated_at`

func scanIntegration(row pgx.Row) (Integration, error) {
	var in Integration
	err := row.Scan(&in.ID, &in.StoreID, &in.Provider, &in.ProviderStoreRef, &in.APIKeyCiphertext, &in.ClientIDCiphertext,
		&in.ClientSecretCiphertext, &in.WebhookSecretCiphertext, &in.Status, &in.LastSyncAt, &in.LastErrorMessage,
		&in.CreatedAt, &in.UpdatedAt)
	return in, err
}

// CreateIntegration inserts a new delivery integration for a store.
func (r *Repo) CreateIntegration(ctx context.Context, storeID uuid.UUID, provider, providerStoreRef string,
	apiKeyCT, clientIDCT, clientSecretCT, webhookSecretCT *string) (Integration, error) {
	query := `INSERT INTO delivery_integrations
		(store_id, provider, provider_store_ref, api_key_ciphertext, client_id_ciphertext, client_secret_ciphertext, webhook_secret_ciphertext, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + integrationColumns
	in, err := scanIntegration(r.dbtx.QueryRow(ctx, query, storeID, provider, providerStoreRef,
		apiKeyCT, clientIDCT, clientSecretCT, webhookSecretCT, StatusPending))
	if err != nil {
		return Integration{}, fmt.Errorf("inserting delivery integration: %w", err)
	}
	return in, nil
}

// GetByProviderRef looks up an integration by (provider, provider_store_ref)
// — the webhook ingress lookup (spec §4.6 step 2).
func (r *Repo) GetByProviderRef(ctx context.Context, provider, providerStoreRef string) (Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM delivery_integrations WHERE provider = $1 AND provider_store_ref = $2`
	in, err := scanIntegration(r.dbtx.QueryRow(ctx, query, provider, providerStoreRef))
	if err != nil {
		return Integration{}, fmt.Errorf("fetching delivery integration: %w", err)
	}
	return in, nil
}

// TouchLastSync updates last_sync_at and clears any error state on success
// (spec §4.6 step 8).
func (r *Repo) TouchLastSync(ctx context.Context, id uuid.UUID) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE delivery_integrations SET status = $2, last_sync_at = now(), last_error_message = NULL, updated_at = now() WHERE id = $1`,
		id, StatusConnected,
	)
	if err != nil {
		return fmt.Errorf("touching last sync: %w", err)
	}
	return nil
}

// SetError records a provider error against the integration.
func (r *Repo) SetError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE delivery_integrations SET status = $2, last_error_message = $3, updated_at = now() WHERE id = $1`,
		id, StatusError, message,
	)
	if err != nil {
		return fmt.Errorf("setting integration error: %w", err)
	}
	return nil
}

// UpsertOrder inserts or updates a delivery order keyed by (provider,
// provider_order_id), so replayed webhooks are idempotent (spec §4.6 step 6).
func (r *Repo) UpsertOrder(ctx context.Context, integrationID, storeID uuid.UUID, provider, providerOrderID string,
	payload []byte, status string, receivedAt interface{}) (Order, error) {
	query := `INSERT INTO delivery_orders (integration_id, store_id, provider, provider_order_id, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, provider_order_id) DO UPDATE
		SET payload = EXCLUDED.payload, status = EXCLUDED.status, updated_at = now()
		RETURNING id, integration_id, provider, provider_order_id, store_id, payload, status, received_at, created_at, updated_at`
	var o Order
	err := r.dbtx.QueryRow(ctx, query, integrationID, storeID, provider, providerOrderID, payload, status, receivedAt).
		Scan(&o.ID, &o.IntegrationID, &o.Provider, &o.ProviderOrderID, &o.StoreID, &o.Payload, &o.Status, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("upserting delivery order: %w", err)
	}
	return o, nil
}

// AppendLog records a webhook attempt, successful or not.
func (r *Repo) AppendLog(ctx context.Context, integrationID *uuid.UUID, provider, outcome, detail string) error {
	_, err := r.dbtx.Exec(ctx,
		`INSERT INTO delivery_integration_logs (integration_id, provider, outcome, detail) VALUES ($1, $2, $3, $4)`,
		integrationID, provider, outcome, detail,
	)
	if err != nil {
		return fmt.Errorf("appending integration log: %w", err)
	}
	return nil
}
