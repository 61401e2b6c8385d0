package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/storelab/commerce-gateway/pkg/logger"
	"github.com/storelab/commerce-gateway/pkg/prom"
	"github.com/valyala/fasthttp"
)

var (
	// ErrGatewayUnavailable covers transport failures and provider 5xx
	// responses. The caller may retry; the payment state is unknown.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected covers provider 4xx responses other than 404. The
	// request itself was refused; retrying without change is pointless.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")

	// ErrReferenceNotFound means the provider has no record of the reference.
	ErrReferenceNotFound = errors.New("reference not found at gateway")
)

// InitializeRequest starts a checkout at the provider. Amount is in minor
// units (kobo/cents) per the provider's convention.
type InitializeRequest struct {
	Email    string `json:"email"`
	Amount   int64  `json:"amount,string"`
	Currency string `json:"currency,omitempty"`
}

// InitializeResponse is the provider's checkout handle: the customer is sent
// to AuthorizationURL and the Reference is what every later signal keys on.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is the provider's authoritative view of one transaction.
type VerifyData struct {
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Currency  string    `json:"currency"`
	Channel   string    `json:"channel"`
	PaidAt    time.Time `json:"paid_at"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// envelope is the provider's uniform response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Config struct {
	BaseURL         string
	SecretKey       string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

// Client is a thin HTTP client for the payment provider's REST API.
type Client struct {
	config *Config
	client *fasthttp.Client
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if config.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 64
	}

	httpClient := &fasthttp.Client{
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxIdleConnDuration: 60 * time.Second,
		ReadBufferSize:      config.ReadBufferSize,
		WriteBufferSize:     config.WriteBufferSize,
	}

	logger.Info("Payment gateway client initialized", "base_url", config.BaseURL, "timeout", config.Timeout)

	return &Client{
		config: config,
		client: httpClient,
	}, nil
}

// Initialize starts a checkout session. It is deliberately single-attempt: a
// retry after an ambiguous failure could open two payment sessions for one
// intent, and the caller can always issue a fresh initialize.
func (c *Client) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := c.doRequest(ctx, "POST", "/transaction/initialize", reqBody)
	if err != nil {
		prom.IncGatewayRequest("initialize", "error")
		return nil, err
	}
	prom.IncGatewayRequest("initialize", "ok")

	var resp InitializeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Info("Payment initialized", "reference", resp.Reference)

	return &resp, nil
}

// Verify asks the provider for the authoritative state of a reference.
// Transient failures are retried; rejections and unknown references are not.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyData, error) {
	path := fmt.Sprintf("/transaction/verify/%s", reference)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		data, err := c.doRequest(ctx, "GET", path, nil)
		if err != nil {
			if errors.Is(err, ErrGatewayUnavailable) {
				logger.Warn("Verify failed, retrying", "error", err, "reference", reference, "attempt", attempt+1)
				lastErr = err
				continue
			}
			prom.IncGatewayRequest("verify", "error")
			return nil, err
		}
		prom.IncGatewayRequest("verify", "ok")

		var resp VerifyData
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return &resp, nil
	}

	prom.IncGatewayRequest("verify", "error")
	return nil, fmt.Errorf("verify failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := c.config.BaseURL + path
	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	statusCode := resp.StatusCode()
	switch {
	case statusCode >= 500:
		return nil, fmt.Errorf("%w: status code %d", ErrGatewayUnavailable, statusCode)
	case statusCode == fasthttp.StatusNotFound:
		return nil, ErrReferenceNotFound
	case statusCode >= 400:
		return nil, fmt.Errorf("%w: status code %d, body: %s", ErrGatewayRejected, statusCode, resp.Body())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}

	result := make([]byte, len(env.Data))
	copy(result, env.Data)

	return result, nil
}
