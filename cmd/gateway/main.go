package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bff-gateway/middleware/auth"
	authapp "bff-gateway/middleware/auth/application"
	authdomain "bff-gateway/middleware/auth/domain"
	authinfra "bff-gateway/middleware/auth/infra"
	"bff-gateway/middleware/correlation"
	"bff-gateway/middleware/ratelimit"
	rateapp "bff-gateway/middleware/ratelimit/application"
	ratedomain "bff-gateway/middleware/ratelimit/domain"
	rateinfra "bff-gateway/middleware/ratelimit/infra"
	"bff-gateway/upstream"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	log := newLogger(cfg)

	client := upstream.New(cfg.upstreamURL,
		upstream.WithTimeout(cfg.upstreamTimeout),
		upstream.WithRetries(cfg.upstreamRetries, cfg.upstreamRetryDelay),
		upstream.WithLogger(log),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			// o gateway sobe mesmo com o redis fora: limiter e cache
			// degradam (fail open / miss) até a store voltar
			log.WithError(err).Warn("redis unreachable at startup, degrading until it recovers")
		}
	}

	var cache authdomain.TokenCache
	if rdb != nil {
		cache = authinfra.NewRedisTokenCache(rdb)
	} else {
		log.Warn("no REDIS_ADDR configured: token cache is in-memory, single instance only")
		cache = authinfra.NewMemoryTokenCache()
	}

	verifier := authapp.Verifier{
		Cache:   cache,
		Client:  authinfra.UpstreamIdentityClient{Client: client, Path: cfg.whoamiPath},
		Surface: cfg.surface,
		TTL:     cfg.authCacheTTL,
		Log:     log,
	}

	var stats ratedomain.StatsStore
	if cfg.statsEnabled && rdb != nil {
		stats = rateinfra.NewRedisStatsStore(rdb,
			rateinfra.WithStatsPrefix(cfg.statsPrefix),
			rateinfra.WithStatsTTL(cfg.statsTTL),
			rateinfra.WithStatsBucket(cfg.statsBucket),
			rateinfra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
	}

	anonLimiter := newLimiter(ctx, cfg, rdb, cfg.anonLimit, cfg.anonWindow, log)
	userLimiter := newLimiter(ctx, cfg, rdb, cfg.userLimit, cfg.userWindow, log)

	byIP := ratelimit.ByIP(cfg.rateKeyHeader, cfg.trustXFF)
	byUser := ratelimit.ByUser(byIP)

	forwarder := &upstream.Forwarder{
		Client:        client,
		StripPrefix:   cfg.apiPrefix,
		CorrelationID: correlation.FromRequest,
	}

	authRequired := auth.Middleware(auth.Options{Verifier: verifier})

	anonRoute := func(endpoint string) http.Handler {
		return chain(forwarder, ratelimit.Middleware(ratelimit.Options{
			Limiter:  anonLimiter,
			Endpoint: endpoint,
			Identity: byIP,
			Stats:    stats,
			Log:      log,
		}))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	// rotas anônimas: limite por IP
	mux.Handle(cfg.apiPrefix+"/auth/login", anonRoute("login"))
	mux.Handle(cfg.apiPrefix+"/auth/register", anonRoute("register"))

	// logout: autentica, invalida o cache do token ANTES de repassar
	mux.Handle(cfg.apiPrefix+"/auth/logout", chain(forwarder,
		authRequired,
		auth.InvalidateOnLogout(verifier, log),
	))

	// resto da superfície: autenticado, limite por usuário
	mux.Handle(cfg.apiPrefix+"/", chain(forwarder,
		authRequired,
		ratelimit.Middleware(ratelimit.Options{
			Limiter:  userLimiter,
			Endpoint: "api",
			Identity: byUser,
			Stats:    stats,
			Log:      log,
		}),
	))

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)
	h = correlation.Middleware(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr":     cfg.listenAddr,
		"upstream": cfg.upstreamURL,
		"surface":  string(cfg.surface),
		"rateMode": cfg.rateMode,
	}).Info("gateway listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// newLimiter monta o Decider conforme o modo: janela fixa no redis
// (distribuído) ou token bucket em memória (instância única).
func newLimiter(ctx context.Context, cfg config, rdb *redis.Client, limit int64, window time.Duration, log logrus.FieldLogger) ratelimit.Decider {
	if cfg.rateMode == "local" || rdb == nil {
		store := rateinfra.NewLocalStore(limit, window)
		store.StartJanitor(ctx)
		return rateapp.LocalService{Store: store, Limit: limit, Window: window}
	}
	return rateapp.FixedWindowService{
		Store:  rateinfra.NewRedisCounterStore(rdb),
		Limit:  limit,
		Window: window,
		Log:    log,
	}
}

func newLogger(cfg config) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.logLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.logFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// chain aplica os middlewares da esquerda para a direita (o primeiro é o
// mais externo).
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

type config struct {
	listenAddr string
	apiPrefix  string
	logLevel   string
	logFormat  string

	upstreamURL        string
	upstreamTimeout    time.Duration
	upstreamRetries    int
	upstreamRetryDelay time.Duration
	whoamiPath         string

	surface      authdomain.Surface
	authCacheTTL time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	rateMode      string
	anonLimit     int64
	anonWindow    time.Duration
	userLimit     int64
	userWindow    time.Duration
	rateKeyHeader string
	trustXFF      bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsBucket    string
	statsTrackKeys bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.apiPrefix = getenvDefault("API_PREFIX", "/api")
	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "text")

	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 5*time.Second)
	cfg.upstreamRetries = getenvIntDefault("UPSTREAM_RETRIES", 2)
	cfg.upstreamRetryDelay = getenvDurationDefault("UPSTREAM_RETRY_DELAY", 200*time.Millisecond)
	cfg.whoamiPath = getenvDefault("WHOAMI_PATH", "/auth/me")

	cfg.surface = authdomain.Surface(getenvDefault("SURFACE", string(authdomain.SurfaceCustomer)))
	cfg.authCacheTTL = getenvDurationDefault("AUTH_CACHE_TTL", 60*time.Second)

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.rateMode = strings.ToLower(getenvDefault("RATE_MODE", "redis"))
	cfg.anonLimit = int64(getenvIntDefault("RATE_LIMIT_ANON", 5))
	cfg.anonWindow = getenvDurationDefault("RATE_WINDOW_ANON", 60*time.Second)
	cfg.userLimit = int64(getenvIntDefault("RATE_LIMIT_USER", 120))
	cfg.userWindow = getenvDurationDefault("RATE_WINDOW_USER", 60*time.Second)
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.statsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.statsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.surface != authdomain.SurfaceCustomer && cfg.surface != authdomain.SurfaceAdmin {
		return config{}, errors.New("SURFACE must be customer or admin")
	}
	if cfg.rateMode != "redis" && cfg.rateMode != "local" {
		return config{}, errors.New("RATE_MODE must be redis or local")
	}
	if cfg.rateMode == "redis" && cfg.redisAddr == "" {
		return config{}, errors.New("REDIS_ADDR is required when RATE_MODE=redis")
	}
	if cfg.anonLimit <= 0 || cfg.userLimit <= 0 {
		return config{}, errors.New("rate limits must be > 0")
	}
	if cfg.upstreamRetries < 0 {
		return config{}, errors.New("UPSTREAM_RETRIES must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
