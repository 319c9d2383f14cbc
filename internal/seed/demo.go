package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/Chosen17/TraqrPOSCloud/internal/secretbox"
	"github.com/Chosen17/TraqrPOSCloud/pkg/commandqueue"
	"github.com/Chosen17/TraqrPOSCloud/pkg/delivery"
	"github.com/Chosen17/TraqrPOSCloud/pkg/entitlement"
	"github.com/Chosen17/TraqrPOSCloud/pkg/eventlog"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
	"github.com/Chosen17/TraqrPOSCloud/pkg/menu"
	"github.com/Chosen17/TraqrPOSCloud/pkg/order"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
	"github.com/Chosen17/TraqrPOSCloud/pkg/projector"
)

// DemoOwnerEmail and DemoOwnerPassword are the portal credentials seeded by
// RunDemo, separate from the single-store Run credentials in seed.go.
const (
	DemoOwnerEmail    = "owner@riverside-grill.example.com"
	DemoOwnerPassword = "traqr-demo-seed-do-not-use-in-production"
)

// RunDemo provisions a richer organization ("Riverside Grill") with two
// stores (a canonical and a non-canonical device at the first, one device
// at the second), a Deliveroo delivery integration, and a batch of synced
// events run through the real eventlog/projector pipeline so that orders,
// menu rows, a canonical-device conflict alert, and queued commands all
// exist afterward. It is idempotent: if the organization already exists it
// logs a message and returns nil. Grounded on the teacher's internal/seed
// demo-provisioning shape (see Run in seed.go), extended to exercise
// components E/F/G instead of inserting rows directly, so the synced demo
// data is produced the same way real device traffic would produce it. The
// delivery integration and its order are written directly through
// pkg/delivery.
func RunDemo(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	orgRepo := org.NewRepo(pool)

	if _, err := orgRepo.GetUserByEmail(ctx, DemoOwnerEmail); err == nil {
		logger.Info("seed-demo: organization owner already exists, skipping", "email", DemoOwnerEmail)
		return nil
	}

	organization, err := orgRepo.CreateOrganization(ctx, "Riverside Grill", "riverside-grill")
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}
	logger.Info("seed-demo: created organization", "id", organization.ID, "slug", organization.Slug)

	tzLondon := "Europe/London"
	storeA, err := orgRepo.CreateStore(ctx, organization.ID, "Riverside Grill — Riverside Walk", &tzLondon)
	if err != nil {
		return fmt.Errorf("creating store A: %w", err)
	}
	tzDublin := "Europe/Dublin"
	storeB, err := orgRepo.CreateStore(ctx, organization.ID, "Riverside Grill — Temple Bar", &tzDublin)
	if err != nil {
		return fmt.Errorf("creating store B: %w", err)
	}
	logger.Info("seed-demo: created stores", "count", 2)

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoOwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing owner password: %w", err)
	}
	hashStr := string(hash)
	owner, err := orgRepo.CreateUser(ctx, DemoOwnerEmail, "Riverside Grill Owner", &hashStr)
	if err != nil {
		return fmt.Errorf("creating owner user: %w", err)
	}
	if _, err := orgRepo.CreateMembership(ctx, owner.ID, organization.ID, nil, org.RoleAdmin); err != nil {
		return fmt.Errorf("creating owner membership: %w", err)
	}
	logger.Info("seed-demo: created portal owner", "email", owner.Email, "password", DemoOwnerPassword)

	entitlementRepo := entitlement.NewRepo(pool)
	entitlementSvc := entitlement.NewService(entitlementRepo)
	if err := entitlementSvc.Grant(ctx, organization.ID, identity.PlanCloudSync); err != nil {
		return fmt.Errorf("granting cloud_sync entitlement: %w", err)
	}
	logger.Info("seed-demo: granted cloud_sync entitlement", "org_id", organization.ID)

	identityRepo := identity.NewRepo(pool)
	identitySvc := identity.NewService(identityRepo, orgRepo, entitlementSvc, 30)

	activate := func(storeID uuid.UUID, name string, primary bool) identity.ActivateDeviceResult {
		expiresAt := time.Now().Add(30 * 24 * time.Hour)
		rawKey, _, err := identitySvc.IssueActivationKey(ctx, identity.IssueActivationKeyParams{
			OrgID:     organization.ID,
			Scope:     identity.ScopeStore,
			ScopeID:   &storeID,
			MaxUses:   1,
			ExpiresAt: &expiresAt,
		})
		if err != nil {
			panic(fmt.Sprintf("seed-demo: issuing activation key for %s: %v", name, err))
		}
		result, err := identitySvc.ActivateDevice(ctx, identity.ActivateDeviceParams{
			RawActivationKey: rawKey,
			DeviceName:       name,
			IsPrimary:        primary,
		})
		if err != nil {
			panic(fmt.Sprintf("seed-demo: activating device %s: %v", name, err))
		}
		return result
	}

	tillA1 := activate(storeA.ID, "Riverside Walk — Till 1", true)
	tillA2 := activate(storeA.ID, "Riverside Walk — Till 2 (kitchen display)", false)
	tillB1 := activate(storeB.ID, "Temple Bar — Till 1", true)
	logger.Info("seed-demo: activated devices", "count", 3)

	if err := orgRepo.SetCanonicalDevice(ctx, storeA.ID, tillA1.DeviceID); err != nil {
		return fmt.Errorf("setting canonical device for store A: %w", err)
	}

	// ── Wire the real event-log/projector pipeline, the same path device
	// traffic takes, so demo orders and menu rows are genuine projections.
	menuRepo := menu.NewRepo(pool)
	orderRepo := order.NewRepo(pool)
	eventlogRepo := eventlog.NewRepo(pool)
	canonical := projector.NewCanonicalChecker(orgRepo, identityRepo)
	menuProjector := projector.NewMenuProjector(menuRepo, canonical, logger)
	orderProjector := projector.NewOrderProjector(orderRepo)
	eventlogSvc := eventlog.NewService(eventlogRepo, identityRepo, menuProjector, orderProjector, logger)

	ingest := func(principal identity.Principal, events []eventlog.EventInput) {
		if _, err := eventlogSvc.Ingest(ctx, principal, nil, events); err != nil {
			panic(fmt.Sprintf("seed-demo: ingesting events for device %s: %v", principal.DeviceID, err))
		}
	}

	principalA1 := identity.Principal{DeviceID: tillA1.DeviceID, OrgID: organization.ID, StoreID: storeA.ID}
	principalA2 := identity.Principal{DeviceID: tillA2.DeviceID, OrgID: organization.ID, StoreID: storeA.ID}
	principalB1 := identity.Principal{DeviceID: tillB1.DeviceID, OrgID: organization.ID, StoreID: storeB.ID}

	now := time.Now().UTC()

	// Canonical device publishes the menu.
	ingest(principalA1, []eventlog.EventInput{
		{
			EventID: "evt-menu-cat-1", EventType: "menu_category_created",
			OccurredAt: now.Add(-2 * time.Hour).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"category_id":"cat-mains","name":"Mains"}`),
		},
		{
			EventID: "evt-menu-item-1", EventType: "menu_item_created",
			OccurredAt: now.Add(-2*time.Hour + time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"item_id":"item-burger","category_id":"cat-mains","name":"Riverside Burger"}`),
		},
		{
			EventID: "evt-dish-yield-1", EventType: "dish_yield_upserted",
			OccurredAt: now.Add(-2*time.Hour + 2*time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"menu_item_id":"item-burger","estimated_total":24}`),
		},
	})

	// Non-canonical device attempts a menu write: spec §4.5 canonical-device
	// guard skips it and records a device-config-alert.
	ingest(principalA2, []eventlog.EventInput{
		{
			EventID: "evt-menu-item-visibility-conflict", EventType: "menu_item_visibility",
			OccurredAt: now.Add(-90 * time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"item_id":"item-burger","active":false}`),
		},
	})

	// Orders, a transaction, and a receipt at store A.
	seqA := int64(1)
	ingest(principalA1, []eventlog.EventInput{
		{
			EventID: "evt-order-1001", Seq: &seqA, EventType: "order_created",
			OccurredAt: now.Add(-45 * time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"order_id":"1001","total_cents":2450,"items":[{"name":"Riverside Burger","quantity":2,"unit_price_cents":1225}]}`),
		},
	})
	seqA = 2
	ingest(principalA1, []eventlog.EventInput{
		{
			EventID: "evt-txn-1001", Seq: &seqA, EventType: "transaction_completed",
			OccurredAt: now.Add(-44 * time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"transaction_id":"txn-1001","order_id":"1001","amount_cents":2450,"method":"card"}`),
		},
	})
	seqA = 3
	ingest(principalA1, []eventlog.EventInput{
		{
			EventID: "evt-receipt-1001", Seq: &seqA, EventType: "receipt_created",
			OccurredAt: now.Add(-43 * time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"receipt_id":"rcpt-1001","order_id":"1001","transaction_id":"txn-1001"}`),
		},
	})

	// Second store, a floating-point total to exercise the cents rounding
	// rule (spec §4.5: "floating-point units are rounded x100").
	seqB := int64(1)
	ingest(principalB1, []eventlog.EventInput{
		{
			EventID: "evt-order-2001", Seq: &seqB, EventType: "order_created",
			OccurredAt: now.Add(-20 * time.Minute).Format(time.RFC3339),
			EventBody:  json.RawMessage(`{"order_id":"2001","total":18.50,"items":[{"name":"Fish & Chips","quantity":1,"unit_price":18.50}]}`),
		},
	})
	logger.Info("seed-demo: ingested demo events", "stores", 2, "devices", 3)

	// ── Command queue: a sensitive void issued by the (simulated) portal,
	// already fetched once to land in "delivered" so the demo shows the
	// at-least-once redelivery window described in spec §4.4.
	commandqueueRepo := commandqueue.NewRepo(pool)
	commandSvc := commandqueue.NewService(commandqueueRepo)
	if err := commandSvc.EnqueueSensitive(ctx, organization.ID, storeA.ID, tillA1.DeviceID,
		commandqueue.TypeVoidOrder, json.RawMessage(`{"local_order_id":"1001","reason":"customer walked out"}`)); err != nil {
		return fmt.Errorf("enqueueing demo void command: %w", err)
	}
	if _, err := commandSvc.Fetch(ctx, tillA1.DeviceID, 10); err != nil {
		return fmt.Errorf("fetching demo commands to mark delivered: %w", err)
	}
	logger.Info("seed-demo: enqueued and delivered a sensitive void command")

	// ── Delivery integration: a Deliveroo connection plus one normalized
	// order, written directly through pkg/delivery in the state a
	// successful webhook call leaves behind (spec §4.6).
	if err := seedDeliveryIntegration(ctx, pool, organization, storeB, tillB1, commandSvc, logger); err != nil {
		return fmt.Errorf("seeding delivery integration: %w", err)
	}

	logger.Info("seed-demo: completed",
		"organization", organization.Slug,
		"stores", 2,
		"devices", 3,
		"owners", 1,
	)
	return nil
}

// seedDeliveryIntegration creates a connected Deliveroo integration for
// storeB and upserts one normalized delivery order directly through
// pkg/delivery (the webhook HTTP path is exercised by pkg/webhook's own
// tests; this mirrors the state a successful webhook call leaves behind).
func seedDeliveryIntegration(ctx context.Context, pool *pgxpool.Pool, organization org.Organization, store org.StoreEntity, device identity.ActivateDeviceResult, commandSvc *commandqueue.Service, logger *slog.Logger) error {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return fmt.Errorf("generating demo secret box key: %w", err)
	}
	box, err := secretbox.New(base64.StdEncoding.EncodeToString(keyBytes))
	if err != nil {
		return fmt.Errorf("building demo secret box: %w", err)
	}
	webhookSecretCipher, err := box.Seal("demo-deliveroo-webhook-secret")
	if err != nil {
		return fmt.Errorf("sealing demo webhook secret: %w", err)
	}

	deliveryRepo := delivery.NewRepo(pool)
	integration, err := deliveryRepo.CreateIntegration(ctx, store.ID, delivery.ProviderDeliveroo, "demo-location-temple-bar",
		nil, nil, nil, &webhookSecretCipher)
	if err != nil {
		return fmt.Errorf("creating deliveroo integration: %w", err)
	}
	if err := deliveryRepo.TouchLastSync(ctx, integration.ID); err != nil {
		return fmt.Errorf("touching last sync: %w", err)
	}

	normalized := delivery.NormalizedOrder{
		Type:            "delivery_order",
		Provider:        delivery.ProviderDeliveroo,
		StoreID:         store.ID,
		BusinessID:      "demo-location-temple-bar",
		ExternalOrderID: "deliveroo-demo-9001",
		Status:          "accepted",
		Items: []delivery.OrderItem{
			{Name: "Fish & Chips", Quantity: 2, UnitPrice: 18.50},
		},
		Total:      37.00,
		ReceivedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshaling normalized demo order: %w", err)
	}
	if _, err := deliveryRepo.UpsertOrder(ctx, integration.ID, store.ID, delivery.ProviderDeliveroo, normalized.ExternalOrderID, payload, normalized.Status, normalized.ReceivedAt); err != nil {
		return fmt.Errorf("upserting demo delivery order: %w", err)
	}
	if err := deliveryRepo.AppendLog(ctx, &integration.ID, delivery.ProviderDeliveroo, delivery.LogOutcomeSuccess, "seed-demo webhook"); err != nil {
		return fmt.Errorf("appending demo integration log: %w", err)
	}
	if err := commandSvc.EnqueueDeliveryOrder(ctx, organization.ID, store.ID, device.DeviceID, payload); err != nil {
		return fmt.Errorf("enqueueing demo delivery_order command: %w", err)
	}

	logger.Info("seed-demo: connected deliveroo integration with one normalized order", "integration_id", integration.ID)
	return nil
}
