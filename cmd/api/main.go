package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/storelab/commerce-gateway/internal/auth"
	"github.com/storelab/commerce-gateway/internal/config"
	gateway "github.com/storelab/commerce-gateway/internal/gateways"
	"github.com/storelab/commerce-gateway/internal/handlers"
	"github.com/storelab/commerce-gateway/internal/notify"
	"github.com/storelab/commerce-gateway/internal/repository"
	"github.com/storelab/commerce-gateway/internal/services"
	xhttp "github.com/storelab/commerce-gateway/pkg/http"
	"github.com/storelab/commerce-gateway/pkg/logger"
	"github.com/storelab/commerce-gateway/pkg/pg"
	"github.com/storelab/commerce-gateway/pkg/prom"
	"github.com/storelab/commerce-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 15))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	paystack, err := gateway.NewClient(&gateway.Config{
		BaseURL:    config.Get().PaystackBaseUrl,
		SecretKey:  config.Get().PaystackSecretKey,
		Timeout:    config.Get().PaystackTimeout,
		MaxRetries: config.Get().PaystackMaxRetries,
	})
	if err != nil {
		logger.Error("failed creating payment gateway client", "error", err)
		return
	}

	tokens, err := auth.NewManager(config.Get().JwtSecret, config.Get().JwtTTL)
	if err != nil {
		logger.Error("failed creating token manager", "error", err)
		return
	}

	broadcaster := notify.NewBroadcaster(redisAdap, config.Get().BroadcastChannel, 2)
	broadcaster.Start()

	transactionRepo := repository.NewTransactionRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)

	// services
	paymentService := services.NewPaymentService(
		transactionRepo,
		paystack,
		redisAdap,
		broadcaster,
		config.Get().PaystackWebhookSecret,
		config.Get().PaystackCurrency,
	)
	authService := services.NewAuthService(userRepo, tokens, broadcaster, config.Get().BcryptCost)
	productService := services.NewProductService(productRepo, broadcaster)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	healthHandler := handlers.NewHealthHandler(healthService)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(config.Get().AppDebugMetricsAddr, "/metrics")
	}()

	requireAuth := auth.Middleware(tokens)

	g := s.Router.Group("/api/v1")
	handlers.RegisterAuthRoutes(g, authHandler)
	handlers.RegisterWebhookRoutes(g, paymentHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)
	handlers.RegisterProfileRoutes(g, authHandler, requireAuth)
	handlers.RegisterPaymentRoutes(g, paymentHandler, requireAuth)
	handlers.RegisterProductReadRoutes(g, productHandler)
	handlers.RegisterProductAdminRoutes(g, productHandler, requireAuth, auth.RequireAdmin)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	logger.Info("commerce gateway started",
		"version", version,
		"commit", commit,
		"build_date", date,
		"addr", config.Get().HttpListenAddr,
	)

	<-c
	broadcaster.Stop()
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
