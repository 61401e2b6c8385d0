package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ChargeStatus represents the state of a simulated charge
type ChargeStatus string

const (
	StatusSuccess   ChargeStatus = "success"
	StatusFailed    ChargeStatus = "failed"
	StatusAbandoned ChargeStatus = "abandoned"
	StatusPending   ChargeStatus = "pending"
)

// InitializeRequest represents the request to open a checkout session
type InitializeRequest struct {
	Email    string `json:"email" binding:"required"`
	Amount   int64  `json:"amount,string" binding:"required"`
	Currency string `json:"currency"`
}

// charge is a simulated payment session
type charge struct {
	Reference string
	Email     string
	Amount    int64
	Currency  string
	Status    ChargeStatus
	PaidAt    *time.Time
}

// MockProvider simulates a card payment provider
type MockProvider struct {
	successRate   float64
	minDelay      time.Duration
	maxDelay      time.Duration
	webhookURL    string
	webhookSecret string
	rng           *rand.Rand

	mu      sync.RWMutex
	charges map[string]*charge
}

// NewMockProvider creates a new mock provider instance
func NewMockProvider(successRate float64, minDelay, maxDelay time.Duration, webhookURL, webhookSecret string) *MockProvider {
	return &MockProvider{
		successRate:   successRate,
		minDelay:      minDelay,
		maxDelay:      maxDelay,
		webhookURL:    webhookURL,
		webhookSecret: webhookSecret,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		charges:       map[string]*charge{},
	}
}

func (m *MockProvider) open(req *InitializeRequest) *charge {
	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}

	c := &charge{
		Reference: "PSP_" + uuid.New().String()[:13],
		Email:     req.Email,
		Amount:    req.Amount,
		Currency:  currency,
		Status:    StatusPending,
	}

	m.mu.Lock()
	m.charges[c.Reference] = c
	m.mu.Unlock()

	// The customer "pays" after a random delay; then the provider settles
	// the charge and fires the webhook, like the real thing.
	go m.settleLater(c.Reference)

	return c
}

func (m *MockProvider) settleLater(reference string) {
	time.Sleep(m.randomDelay())
	success := m.shouldSucceed()

	m.mu.Lock()
	c, ok := m.charges[reference]
	if !ok || c.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	if success {
		now := time.Now()
		c.Status = StatusSuccess
		c.PaidAt = &now
	} else {
		c.Status = StatusAbandoned
	}
	settled := *c
	m.mu.Unlock()

	log.Info().
		Str("reference", settled.Reference).
		Str("status", string(settled.Status)).
		Msg("Charge settled")

	if settled.Status == StatusSuccess {
		m.fireWebhook(&settled)
	}
}

// fireWebhook delivers a signed charge.success event. Deliveries are
// retried a few times the way real providers do.
func (m *MockProvider) fireWebhook(c *charge) {
	if m.webhookURL == "" {
		return
	}

	payload := map[string]any{
		"event": "charge.success",
		"data": map[string]any{
			"reference": c.Reference,
			"amount":    c.Amount,
			"status":    "success",
			"currency":  c.Currency,
			"paid_at":   c.PaidAt,
			"customer":  map[string]string{"email": c.Email},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal webhook payload")
		return
	}

	mac := hmac.New(sha512.New, []byte(m.webhookSecret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, m.webhookURL, bytes.NewReader(body))
		if err != nil {
			log.Error().Err(err).Msg("Failed to build webhook request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Paystack-Signature", signature)

		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				log.Info().Str("reference", c.Reference).Int("attempt", attempt).Msg("Webhook delivered")
				return
			}
			log.Warn().Str("reference", c.Reference).Int("status", resp.StatusCode).Msg("Webhook refused")
		} else {
			log.Warn().Err(err).Str("reference", c.Reference).Int("attempt", attempt).Msg("Webhook delivery failed")
		}

		time.Sleep(time.Duration(attempt) * time.Second)
	}
}

func (m *MockProvider) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	// rand.Rand is not safe for concurrent use; settle goroutines share it.
	m.mu.Lock()
	n := m.rng.Int63n(int64(delta))
	m.mu.Unlock()
	return m.minDelay + time.Duration(n)
}

func (m *MockProvider) shouldSucceed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.successRate
}

// SuccessRate reads the current settle success rate.
func (m *MockProvider) SuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successRate
}

// SetSuccessRate changes the settle success rate at runtime.
func (m *MockProvider) SetSuccessRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successRate = rate
}

// Handler struct holds the mock provider and routes
type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

func envelope(status bool, message string, data any) gin.H {
	return gin.H{"status": status, "message": message, "data": data}
}

// Initialize opens a checkout session
func (h *Handler) Initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope(false, "Invalid request: "+err.Error(), nil))
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, envelope(false, "Invalid amount", nil))
		return
	}

	ch := h.provider.open(&req)

	log.Info().
		Str("reference", ch.Reference).
		Str("email", ch.Email).
		Int64("amount", ch.Amount).
		Msg("Checkout session opened")

	c.JSON(http.StatusOK, envelope(true, "Authorization URL created", gin.H{
		"authorization_url": "http://localhost:8082/checkout/" + ch.Reference,
		"access_code":       ch.Reference,
		"reference":         ch.Reference,
	}))
}

// Verify reports the current state of a charge
func (h *Handler) Verify(c *gin.Context) {
	reference := c.Param("reference")

	h.provider.mu.RLock()
	ch, ok := h.provider.charges[reference]
	var snapshot charge
	if ok {
		snapshot = *ch
	}
	h.provider.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, envelope(false, "Transaction reference not found", nil))
		return
	}

	c.JSON(http.StatusOK, envelope(true, "Verification successful", gin.H{
		"reference": snapshot.Reference,
		"amount":    snapshot.Amount,
		"status":    string(snapshot.Status),
		"currency":  snapshot.Currency,
		"paid_at":   snapshot.PaidAt,
		"customer":  gin.H{"email": snapshot.Email},
	}))
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"success_rate": h.provider.SuccessRate(),
	})
}

// UpdateConfig allows changing provider behavior at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		SuccessRate *float64 `json:"success_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.SuccessRate != nil {
		if *config.SuccessRate >= 0 && *config.SuccessRate <= 1.0 {
			h.provider.SetSuccessRate(*config.SuccessRate)
			log.Info().Float64("rate", *config.SuccessRate).Msg("Updated success rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"success_rate": h.provider.SuccessRate(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/transaction/initialize", handler.Initialize)
	router.GET("/transaction/verify/:reference", handler.Verify)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	successRate := getEnvFloat("SUCCESS_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 1*time.Second)
	maxDelay := getEnvDuration("MAX_DELAY", 5*time.Second)
	webhookURL := getEnv("WEBHOOK_URL", "")
	webhookSecret := getEnv("WEBHOOK_SECRET", "")

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Str("webhook_url", webhookURL).
		Msg("Starting Mock Payment Provider")

	provider := NewMockProvider(successRate, minDelay, maxDelay, webhookURL, webhookSecret)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
