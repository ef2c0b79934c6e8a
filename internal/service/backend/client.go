package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/config"
	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
)

// 响应体读取上限，防止异常大的响应占满内存。
const maxBodyBytes = 4 << 20

// Client 调用远端 /chat 接口。
type Client struct {
	endpoint       string
	timeout        time.Duration
	forwardSession bool
	httpClient     *http.Client
	logger         *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient 创建客户端。endpoint 必须是绝对的 http(s) 地址。
func NewClient(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: want an absolute http(s) URL", endpoint)
	}

	c := &Client{
		endpoint:       endpoint,
		timeout:        cfg.Timeout,
		forwardSession: cfg.ForwardSession,
		httpClient:     &http.Client{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ask posts one query and returns the decoded reply.
//
// Errors are *HTTPError, *TransportError or *MalformedReplyError.
func (c *Client) Ask(ctx context.Context, req chat.Request) (*chat.Reply, error) {
	if !c.forwardSession {
		req.SessionID = ""
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("chat request failed", zap.String("endpoint", c.endpoint), zap.Error(err))
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.logger.Debug("chat request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	var reply chat.Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, &MalformedReplyError{Err: err}
	}
	if reply.Answer == nil {
		return nil, &MalformedReplyError{Err: errMissingAnswer}
	}
	reply.OfficialLinks = keepLinksWithURL(reply.OfficialLinks)
	return &reply, nil
}

// parseDetail 提取错误体中的 detail 字段；错误体不是 JSON 时视为空对象。
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	raw := bytes.TrimSpace(payload.Detail)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	// FastAPI 校验错误的 detail 是数组，原样保留其 JSON 文本。
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

func keepLinksWithURL(links []chat.Link) []chat.Link {
	if len(links) == 0 {
		return nil
	}
	kept := make([]chat.Link, 0, len(links))
	for _, link := range links {
		if strings.TrimSpace(link.URL) == "" {
			continue
		}
		if strings.TrimSpace(link.Label) == "" {
			link.Label = link.URL
		}
		kept = append(kept, link)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
