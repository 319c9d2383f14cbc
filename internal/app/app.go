package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chosen17/TraqrPOSCloud/internal/audit"
	"github.com/Chosen17/TraqrPOSCloud/internal/config"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/internal/platform"
	"github.com/Chosen17/TraqrPOSCloud/internal/secretbox"
	"github.com/Chosen17/TraqrPOSCloud/internal/seed"
	"github.com/Chosen17/TraqrPOSCloud/internal/telemetry"
	"github.com/Chosen17/TraqrPOSCloud/internal/version"
	"github.com/Chosen17/TraqrPOSCloud/pkg/billing"
	"github.com/Chosen17/TraqrPOSCloud/pkg/commandqueue"
	"github.com/Chosen17/TraqrPOSCloud/pkg/delivery"
	"github.com/Chosen17/TraqrPOSCloud/pkg/entitlement"
	"github.com/Chosen17/TraqrPOSCloud/pkg/eventlog"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
	"github.com/Chosen17/TraqrPOSCloud/pkg/menu"
	"github.com/Chosen17/TraqrPOSCloud/pkg/order"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
	"github.com/Chosen17/TraqrPOSCloud/pkg/portal"
	"github.com/Chosen17/TraqrPOSCloud/pkg/portalauth"
	"github.com/Chosen17/TraqrPOSCloud/pkg/projector"
	"github.com/Chosen17/TraqrPOSCloud/pkg/webhook"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api, worker, seed, or
// seed-demo).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting traqr",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "traqr", version.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db)
	case "seed":
		return seed.Run(ctx, db, logger)
	case "seed-demo":
		return seed.RunDemo(ctx, db, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	orgRepo := org.NewRepo(db)
	identityRepo := identity.NewRepo(db)
	entitlementRepo := entitlement.NewRepo(db)
	eventlogRepo := eventlog.NewRepo(db)
	commandqueueRepo := commandqueue.NewRepo(db)
	menuRepo := menu.NewRepo(db)
	orderRepo := order.NewRepo(db)
	deliveryRepo := delivery.NewRepo(db)

	entitlementSvc := entitlement.NewService(entitlementRepo)
	identitySvc := identity.NewService(identityRepo, orgRepo, entitlementSvc, cfg.DevicePollingIntervalSeconds)
	commandSvc := commandqueue.NewService(commandqueueRepo)
	canonical := projector.NewCanonicalChecker(orgRepo, identityRepo)
	menuProjector := projector.NewMenuProjector(menuRepo, canonical, logger)
	orderProjector := projector.NewOrderProjector(orderRepo)
	eventlogSvc := eventlog.NewService(eventlogRepo, identityRepo, menuProjector, orderProjector, logger)

	box, err := secretbox.New(cfg.SecretBoxKeyBase64)
	if err != nil {
		return fmt.Errorf("building secret box: %w", err)
	}
	webhookSvc := webhook.NewService(deliveryRepo, box, identityRepo, commandSvc, &webhook.HTTPOrderFetcher{}, cfg.UberEatsTokenURL, logger)
	billingSvc := billing.NewService(entitlementSvc, identity.PlanCloudSync, cfg.BillingWebhookSecret, logger)

	portalSvc := portal.NewService(orgRepo, identitySvc, identityRepo, entitlementSvc, menuRepo, canonical, commandSvc)

	// Portal operator auth.
	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		sessionSecret = portalauth.GenerateDevSecret()
		logger.Info("session: using auto-generated dev secret (set TRAQR_SESSION_SECRET in production)")
	}
	sessionMaxAge, err := time.ParseDuration(cfg.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("parsing session max age %q: %w", cfg.SessionMaxAge, err)
	}
	sessionMgr, err := portalauth.NewSessionManager(sessionSecret, sessionMaxAge)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	var oidcAuth *portalauth.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		oidcAuth, err = portalauth.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		logger.Info("OIDC authentication disabled (OIDC_ISSUER_URL not set)")
	}

	apikeyAuth := portalauth.NewAPIKeyAuthenticator(db)
	rateLimiter := portalauth.NewRateLimiter(rdb, 10, 15*time.Minute)
	secureCookie := strings.HasPrefix(cfg.PublicBaseURL, "https://")
	loginHandler := portalauth.NewLoginHandler(sessionMgr, orgRepo, rateLimiter, oidcAuth != nil, sessionMaxAge, secureCookie)

	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	// --- Portal operator auth routes (public, pre-authentication) ---
	srv.Router.Post("/auth/login", loginHandler.HandleLogin)
	srv.Router.Get("/auth/config", loginHandler.HandleAuthConfig)
	srv.Router.Post("/auth/logout", loginHandler.HandleLogout)

	portalMiddleware := portalauth.Middleware(sessionMgr, oidcAuth, apikeyAuth)
	srv.Router.Group(func(r chi.Router) {
		r.Use(portalMiddleware)
		r.Get("/auth/me", loginHandler.HandleMe)
		r.Mount("/portal", portal.NewHandler(portalSvc).Routes())
		r.Mount("/portal/audit-log", audit.NewHandler(db, logger).Routes())
	})

	// --- Device-facing sync surface ---
	identityHandler := identity.NewHandler(identitySvc)
	srv.Router.Post("/device/activate", identityHandler.Activate)

	deviceMiddleware := identity.Middleware(identitySvc)
	requireCloudSync := entitlement.RequireActive(entitlementSvc, identity.PlanCloudSync)

	eventlogHandler := eventlog.NewHandler(eventlogSvc)
	commandqueueHandler := commandqueue.NewHandler(commandSvc)
	menuHandler := menu.NewHandler(menuRepo, canonical, cfg.UploadDir, cfg.PublicBaseURL)

	srv.Router.Group(func(r chi.Router) {
		r.Use(deviceMiddleware, requireCloudSync)
		r.Post("/sync/events", eventlogHandler.SyncEvents)
		r.Get("/sync/commands", commandqueueHandler.Fetch)
		r.Post("/sync/commands/ack", commandqueueHandler.Ack)
		r.Get("/sync/menu", menuHandler.Pull)
		r.Post("/sync/upload-item-image", menuHandler.UploadItemImage)
	})

	// --- Webhook ingress (unauthenticated; verified inside the services) ---
	webhookHandler := webhook.NewHandler(webhookSvc)
	srv.Router.Post("/webhooks/{provider}", webhookHandler.Receive)

	billingHandler := billing.NewHandler(billingSvc)
	srv.Router.Post("/billing/stripe/webhook", billingHandler.Receive)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runWorker sweeps the command queue, expiring commands that have sat
// queued (never delivered) past the configured max age (spec invariant 3's
// queued -> expired leg). Grounded on the teacher's escalation-engine
// background-tick loop.
func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool) error {
	maxAge, err := time.ParseDuration(cfg.CommandMaxAge)
	if err != nil {
		return fmt.Errorf("parsing command max age %q: %w", cfg.CommandMaxAge, err)
	}
	sweep, err := time.ParseDuration(cfg.CommandExpirySweep)
	if err != nil {
		return fmt.Errorf("parsing command expiry sweep interval %q: %w", cfg.CommandExpirySweep, err)
	}

	commandSvc := commandqueue.NewService(commandqueue.NewRepo(db))
	logger.Info("worker started", "command_max_age", maxAge, "sweep_interval", sweep)

	commandqueue.RunExpiryLoop(ctx, commandSvc, maxAge, sweep, func(err error) {
		logger.Error("command expiry sweep failed", "error", err)
	})
	return nil
}
