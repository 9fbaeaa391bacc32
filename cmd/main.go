package main

import (
	"context"
	"log"
	"os"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/redis/go-redis/v9"

	"voxbank/internal/handlers"
	"voxbank/internal/jobs/background"
	"voxbank/internal/middleware"
	"voxbank/internal/models"
	"voxbank/internal/ratelimit"
	"voxbank/internal/repositories"
	"voxbank/internal/services"
	"voxbank/pkg/database"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32)
		log.Printf("WARNING: JWT_SECRET not set, using a generated secret; all tokens die with this process")
	}

	devMode := os.Getenv("DEV_MODE") == "true"
	if devMode {
		log.Printf("WARNING: DEV_MODE is enabled; unauthenticated agent requests may impersonate users")
	}

	oauthConfig := services.OAuthConfig{
		ClientID:    envOr("OAUTH_CLIENT_ID", "ai-agent"),
		RedirectURI: envOr("OAUTH_REDIRECT_URI", "http://localhost:3000/agent/callback"),
	}

	// Rate limiting: process-local by default, Redis-backed when REDIS_ADDR
	// is set so multiple replicas share windows.
	var limiter ratelimit.RateLimiter
	memLimiter := ratelimit.NewMemoryLimiter()
	limiter = memLimiter
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		limiter = ratelimit.NewRedisLimiter(client)
		memLimiter = nil
		log.Printf("Using Redis rate limiter at %s", redisAddr)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	accountRepo := repositories.NewAccountRepository(pool)
	beneficiaryRepo := repositories.NewBeneficiaryRepository(pool)
	billerRepo := repositories.NewBillerRepository(pool)
	grantRepo := repositories.NewGrantRepository(pool)
	paymentPreviewRepo := repositories.NewPaymentPreviewRepository(pool)
	billPreviewRepo := repositories.NewBillPreviewRepository(pool)
	ledgerRepo := repositories.NewLedgerRepository(pool)
	auditLogRepo := repositories.NewAuditLogsRepository(pool)
	consentRepo := repositories.NewConsentRepository(pool)

	// Services
	codec := services.NewTokenCodec(jwtSecret)
	auditSvc := services.NewAuditService(auditLogRepo)
	oauthSvc := services.NewOAuthService(grantRepo, codec, oauthConfig)
	authSvc := services.NewAuthService(userRepo, accountRepo, codec)
	fraudSvc := services.NewFraudService(limiter, auditSvc)
	consentSvc := services.NewConsentService(consentRepo, codec)
	paymentSvc := services.NewPaymentService(paymentPreviewRepo, accountRepo, beneficiaryRepo, ledgerRepo, codec, auditSvc)
	billSvc := services.NewBillService(billPreviewRepo, accountRepo, billerRepo, ledgerRepo, codec, auditSvc)

	// Audit archival to object storage, optional.
	var archiveSvc services.ArchiveService
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		archiveSvc, err = services.NewArchiveService(
			endpoint,
			envOr("MINIO_ACCESS_KEY", "minioadmin"),
			envOr("MINIO_SECRET_KEY", "minioadmin"),
			envOr("MINIO_AUDIT_BUCKET", "voxbank-audit"),
			os.Getenv("MINIO_USE_SSL") == "true",
			auditLogRepo,
		)
		if err != nil {
			log.Fatalf("Failed to initialize audit archive: %v", err)
		}
		if err := archiveSvc.EnsureBucketExists(context.Background()); err != nil {
			log.Printf("WARNING: audit archive bucket check failed: %v", err)
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authSvc)
	oauthHandler := handlers.NewOAuthHandler(oauthSvc, codec, auditSvc)
	paymentHandler := handlers.NewPaymentHandler(paymentSvc, fraudSvc)
	billHandler := handlers.NewBillHandler(billSvc, fraudSvc, ledgerRepo)
	accountHandler := handlers.NewAccountHandler(accountRepo, beneficiaryRepo, ledgerRepo, auditSvc)
	consentHandler := handlers.NewConsentHandler(consentSvc, billerRepo)
	auditHandler := handlers.NewAuditHandler(auditSvc)

	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.TraceID)

	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", func(c echo.Context) error {
		return handlers.ReadinessCheck(c, pool)
	})

	v1 := e.Group("/v1")

	// Interactive auth and the authorization endpoint. Authorize handles its
	// own session resolution so it can redirect to login instead of 401ing.
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/authorize", oauthHandler.Authorize)
	auth.POST("/token", oauthHandler.Token)
	auth.POST("/revoke", oauthHandler.Revoke)

	// Interactive banking session: registries and consent enrollment.
	session := v1.Group("/banking", middleware.SessionAuth(jwtSecret), middleware.RequireSessionUser)
	session.GET("/beneficiaries", accountHandler.ListBeneficiaries)
	session.POST("/beneficiaries", accountHandler.CreateBeneficiary)
	session.GET("/billers", consentHandler.ListBillers)
	session.POST("/billers", consentHandler.CreateBiller)
	session.POST("/pin", consentHandler.SetPIN)
	session.POST("/voice/enroll", consentHandler.EnrollVoice)
	session.GET("/audit-logs", auditHandler.List)

	// Agent surface: bearer access token, scope-gated per route.
	agent := v1.Group("/agent", middleware.AgentAuth(codec, devMode))

	reads := agent.Group("", middleware.RateLimit(limiter, ratelimit.ClassCommand))
	reads.GET("/accounts", accountHandler.ListAccounts, middleware.RequireScope(models.ScopeReadBalance))
	reads.GET("/accounts/:accountId/balance", accountHandler.GetBalance, middleware.RequireScope(models.ScopeReadBalance))
	reads.GET("/transactions", accountHandler.ListTransactions, middleware.RequireScope(models.ScopeReadTransactions))
	reads.GET("/beneficiaries", accountHandler.ListBeneficiaries, middleware.RequireScope(models.ScopeReadBeneficiaries))
	reads.GET("/bills/history", billHandler.History, middleware.RequireScope(models.ScopeReadTransactions))

	payments := agent.Group("/payments", middleware.RequireScope(models.ScopePayments), middleware.RateLimit(limiter, ratelimit.ClassPayment))
	payments.POST("/preview", paymentHandler.Preview)
	payments.POST("/confirm-preview", paymentHandler.Confirm)
	payments.POST("/execute-from-preview", paymentHandler.Execute)

	bills := agent.Group("/bills", middleware.RequireScope(models.ScopePayments), middleware.RateLimit(limiter, ratelimit.ClassPayment))
	bills.POST("/preview", billHandler.Preview)
	bills.POST("/confirm-preview", billHandler.Confirm)
	bills.POST("/execute-from-preview", billHandler.Execute)

	// Consent verification: the agent relays the user's PIN or voice sample
	// and receives a preview-bound consent token on success.
	consent := agent.Group("/consent", middleware.RequireScope(models.ScopePayments))
	consent.POST("/pin/verify", consentHandler.VerifyPIN)
	consent.POST("/voice/verify", consentHandler.VerifyVoice)

	// Background jobs
	scheduler, err := background.NewJobScheduler(paymentPreviewRepo, billPreviewRepo, grantRepo, memLimiter, archiveSvc)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	port := envOr("PORT", "8080")
	e.Logger.Fatal(e.Start(":" + port))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
