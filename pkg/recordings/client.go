package recordings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client 通话录音后端 HTTP 客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
	config     *Config
}

// RecordingsInterface 定义录音后端客户端接口
type RecordingsInterface interface {
	// 录音查询
	GetRecording(ctx context.Context, callID string) (*Recording, error)

	// 转写查询
	GetTranscript(ctx context.Context, callID string) (*Transcript, error)

	// 健康检查
	HealthCheck(ctx context.Context) error
}

// NewClient 创建录音后端客户端
func NewClient(config *Config, logger *logrus.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		config: config,
	}
}

// 私有方法：创建 HTTP 请求
func (c *Client) createRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	u := fmt.Sprintf("%s%s", c.baseURL, endpoint)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("User-Agent", "CSOne-Recordings-Client/1.0")

	return req, nil
}

// 私有方法：执行请求，带简单重试；每次尝试重建请求，避免复用已读空的 body
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	attempts := c.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := c.createRequest(ctx, method, endpoint, bodyBytes)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response body: %w", err)
			continue
		}

		c.logger.Debugf("Recordings API Request: %s %s", req.Method, req.URL.String())
		c.logger.Debugf("Recordings API Response: %d %s", resp.StatusCode, string(body))

		// 4xx 不重试，5xx 重试
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API error [%d]: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode >= 400 {
			var errResp ErrorResponse
			if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
				return fmt.Errorf("API error [%d]: %s (code: %s)", resp.StatusCode, errResp.Error, errResp.ErrorCode)
			}
			return fmt.Errorf("API error [%d]: %s", resp.StatusCode, string(body))
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	return lastErr
}

// GetRecording 查询某通电话的录音
func (c *Client) GetRecording(ctx context.Context, callID string) (*Recording, error) {
	endpoint := fmt.Sprintf("/api/v1/recordings/%s", url.PathEscape(callID))

	var rec Recording
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &rec); err != nil {
		return nil, fmt.Errorf("get recording %s: %w", callID, err)
	}
	return &rec, nil
}

// GetTranscript 查询某通电话的转写文本
func (c *Client) GetTranscript(ctx context.Context, callID string) (*Transcript, error) {
	endpoint := fmt.Sprintf("/api/v1/recordings/%s/transcript", url.PathEscape(callID))

	var tr Transcript
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &tr); err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", callID, err)
	}
	return &tr, nil
}

// HealthCheck 检查录音后端可用性
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}
