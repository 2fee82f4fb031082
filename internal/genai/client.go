package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the generation backend connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	Timeout time.Duration // per-request timeout (default: 30s)

	// Optional connection pool settings
	MaxIdleConns        int // default: 100
	MaxIdleConnsPerHost int // default: 100

	// Custom HTTP client (for testing or special configs)
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL is required")
	}
	if c.APIKey == "" {
		return errors.New("APIKey is required")
	}
	return nil
}

// WithDefaults returns a copy of Config with sane defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Model == "" {
		cfg.Model = "sommelier-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 100
	}

	return cfg
}

type httpClient struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient builds the HTTP Generator against the configured backend.
func NewClient(cfg Config, logger *zap.Logger) (Generator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: defaultTransport(cfg),
		}
	}

	return &httpClient{
		cfg:    cfg,
		client: client,
		logger: logger.Named("genai"),
	}, nil
}

// defaultTransport creates a production-ready HTTP transport with
// connection pooling and reasonable timeouts.
func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

type wireResponse struct {
	Model   string `json:"model,omitempty"`
	Created int64  `json:"created,omitempty"`
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

func (c *httpClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, &APIError{Kind: KindClient, Message: err.Error()}
	}

	messages := []wireMessage{{Role: "system", Content: req.SystemPrompt}}
	if req.ConversationContext != "" {
		messages = append(messages, wireMessage{Role: "system", Content: req.ConversationContext})
	}
	messages = append(messages, wireMessage{Role: "user", Content: req.Query})

	body, err := json.Marshal(wireRequest{Model: c.cfg.Model, Messages: messages})
	if err != nil {
		return nil, &APIError{Kind: KindClient, Message: "encode request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Kind: KindClient, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &APIError{Kind: KindTimeout, Message: err.Error()}
		}
		return nil, &APIError{Kind: KindServer, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend_request",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &APIError{Kind: KindServer, Message: "decode response: " + err.Error()}
	}
	if len(wire.Choices) == 0 {
		return nil, &APIError{Kind: KindServer, Message: "empty response from backend"}
	}

	out := &GenerateResponse{
		Text:  wire.Choices[0].Message.Content,
		Model: wire.Model,
		Usage: wire.Usage,
	}
	if wire.Created > 0 {
		out.Created = time.Unix(wire.Created, 0)
	}
	return out, nil
}

// classifyStatus maps a non-200 response to an APIError.
func classifyStatus(resp *http.Response) *APIError {
	msg := readErrorBody(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimited,
			Status:     resp.StatusCode,
			Message:    msg,
			RetryAfter: parseRetryAfter(resp),
		}
	case resp.StatusCode == http.StatusRequestTimeout:
		return &APIError{Kind: KindTimeout, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 500:
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: msg}
	default:
		return &APIError{Kind: KindClient, Status: resp.StatusCode, Message: msg}
	}
}

func readErrorBody(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil || len(raw) == 0 {
		return "upstream error"
	}
	return strings.TrimSpace(string(raw))
}

// parseRetryAfter extracts the wait hint from a Retry-After header,
// either seconds or an HTTP date. Returns 0 when absent or invalid.
func parseRetryAfter(resp *http.Response) time.Duration {
	const maxRetryAfter = 5 * time.Minute

	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		d := time.Duration(seconds) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}

	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d <= 0 {
			return 0
		}
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}

	return 0
}
