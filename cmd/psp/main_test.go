package main

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessRateUpdateDuringSettles(t *testing.T) {
	provider := NewMockProvider(1, time.Millisecond, 2*time.Millisecond, "", "secret")

	// Settle goroutines read the rate and the shared rng while the config
	// endpoint rewrites the rate; run them together so the race detector
	// can see any unguarded access.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				provider.shouldSucceed()
				provider.randomDelay()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			provider.SetSuccessRate(float64(j%2) / 2)
		}
	}()
	wg.Wait()

	rate := provider.SuccessRate()
	assert.True(t, rate == 0 || rate == 0.5)
}

func TestUpdateConfigEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := NewMockProvider(1, time.Millisecond, 2*time.Millisecond, "", "secret")
	router := SetupRouter(&Handler{provider: provider})

	t.Run("valid rate is applied", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/config", strings.NewReader(`{"success_rate":0.25}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, 200, rec.Code)
		assert.Equal(t, 0.25, provider.SuccessRate())
	})

	t.Run("out-of-range rate is ignored", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/config", strings.NewReader(`{"success_rate":1.5}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, 200, rec.Code)
		assert.Equal(t, 0.25, provider.SuccessRate())
	})
}
