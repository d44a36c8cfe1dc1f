package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/p5portal/backend-portal/internal/analytics"
	"github.com/p5portal/backend-portal/internal/app"
	"github.com/p5portal/backend-portal/internal/cache"
	"github.com/p5portal/backend-portal/internal/cart"
	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/config"
	"github.com/p5portal/backend-portal/internal/distributor"
	"github.com/p5portal/backend-portal/internal/events"
	"github.com/p5portal/backend-portal/internal/health"
	"github.com/p5portal/backend-portal/internal/lock"
	"github.com/p5portal/backend-portal/internal/notify"
	"github.com/p5portal/backend-portal/internal/obs"
	"github.com/p5portal/backend-portal/internal/pricing"
	"github.com/p5portal/backend-portal/internal/product"
	"github.com/p5portal/backend-portal/internal/ratelimit"
	"github.com/p5portal/backend-portal/internal/reconcile"
	"github.com/p5portal/backend-portal/internal/security"
	"github.com/p5portal/backend-portal/internal/submission"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "portal-api",
			Endpoint:      cfg.TracingEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampleRate,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "portal-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	params := pricing.Params{
		VATRate:         cfg.PricingVATRate,
		InvoiceDivisor:  cfg.PricingInvoiceDivisor,
		InvoiceDiscount: cfg.PricingInvoiceDiscount,
		Skonto:          cfg.PricingSkonto,
	}
	reconciler := reconcile.Reconciler{Pricing: params}

	catalogCache := cache.New(redisClient, cfg.CatalogCacheTTL)

	distSvc := &distributor.Service{
		Store: &distributor.Store{Pool: pool},
		Cache: catalogCache,
	}
	distHandler := &distributor.Handler{Service: distSvc}

	prodSvc := &product.Service{
		Store: &product.Store{Pool: pool},
		Cache: catalogCache,
	}
	prodHandler := &product.Handler{Service: prodSvc}

	subStore := &submission.Store{Pool: pool}

	bus := &events.Bus{
		Store:     &events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{notify.Enqueuer{Client: taskClient}},
	}

	coalescer := &submission.Coalescer{
		Inner:   subStore,
		Delay:   cfg.EditDebounce,
		Timeout: cfg.EditFlushTimeout,
		OnError: func(itemID int64, err error) {
			logger.Error().Err(err).Int64("item_id", itemID).Msg("flush coalesced edit")
		},
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.EditFlushTimeout)
		defer flushCancel()
		if err := coalescer.Flush(flushCtx); err != nil {
			logger.Error().Err(err).Msg("flush pending edits")
		}
	}()

	adminSvc := &submission.Service{
		Store:        subStore,
		Reconciler:   reconciler,
		Distributors: distSvc,
		Events:       bus,
		Coalescer:    coalescer,
		Locks:        &lock.Locker{R: redisClient},
	}
	coalescer.OnPersist = func(it submission.Item) {
		adminSvc.EmitItemAdjusted(context.Background(), it)
	}

	cartSvc := &cart.Service{
		Distributors: distSvc,
		Products:     prodSvc,
		Store:        subStore,
		Events:       bus,
		Reconciler:   reconciler,
		DefaultCode:  cfg.DefaultDistributorCode,
	}
	cartHandler := &cart.Handler{Service: cartSvc, Validate: validator.New()}

	orderHandler := &submission.Handler{Store: subStore}
	adminHandler := &submission.AdminHandler{Service: adminSvc}

	analyticsSvc := &analytics.Service{
		Q:            &analytics.Store{Pool: pool},
		R:            redisClient,
		TTL:          cfg.CatalogCacheTTL,
		DefaultRange: 30,
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	submitLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:submit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.DealerKey,
			Window: cfg.SubmitRateWindow,
			Max:    cfg.SubmitRateMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("submit rate limiter")
		},
	}

	globalRate, err := limiter.NewRateFromFormatted(cfg.GlobalRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse global rate limit")
	}
	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	globalLimit := limiterstdlib.NewMiddleware(limiter.New(limiterStore, globalRate))

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsCSV), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(globalLimit.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", common.DealerIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if envBool("SECURE_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker: readinessChecker{db: pool, redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/distributors", distHandler.List)
		v.Get("/products", prodHandler.List)
		v.Get("/products/{productID}", prodHandler.Get)
		v.Get("/products/{productID}/distributors", prodHandler.AllowedDistributors)

		v.Group(func(dealer chi.Router) {
			dealer.Use(common.RequireDealer)
			dealer.Get("/orders", orderHandler.List)
			dealer.Get("/orders/{submissionID}", orderHandler.Get)
			dealer.With(idem.Middleware, submitLimit.Middleware).Post("/orders", cartHandler.Submit)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(common.RequireDealer)
			admin.Get("/orders", adminHandler.Queue)
			admin.Get("/orders/{submissionID}", adminHandler.Detail)
			admin.Patch("/orders/{submissionID}/items/{itemID}", adminHandler.EditItem)
			admin.Patch("/orders/{submissionID}/status", adminHandler.UpdateStatus)
			admin.Get("/analytics/daily", analyticsHandler.Daily)
			admin.Get("/analytics/top-products", analyticsHandler.TopProducts)
			admin.Get("/analytics/overview", analyticsHandler.Overview)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited unexpectedly")
		}
	case <-sigCtx.Done():
		logger.Info().Msg("shutdown signal received")
		health.SetReady(false)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}
	logger.Info().Msg("server shutdown complete")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
