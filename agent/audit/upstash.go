// Package audit stores redaction audit records. Records hold categories and spans,
// never the masked values.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var (
	ErrRecordNotFound = errors.New("audit record not found")
	ErrInvalidRequest = errors.New("request id is empty")
)

const (
	defaultKeyPrefix     = "auracx:audit:"
	defaultTTL           = 30 * 24 * time.Hour
	pingRequestID        = "healthcheck"
	maxResponseSizeBytes = 2 << 20
)

var _ contractx.AuditSink = (*UpstashSink)(nil)

type Option func(*UpstashSink)

func WithKeyPrefix(prefix string) Option {
	return func(s *UpstashSink) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *UpstashSink) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *UpstashSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashSink writes audit records to Upstash Redis over its REST API.
type UpstashSink struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashConfig struct {
	URL       string        `split_words:"true"`
	Token     string        `split_words:"true"`
	KeyPrefix string        `split_words:"true" default:"auracx:audit:"`
	Timeout   time.Duration `split_words:"true" default:"10s"`
	TTL       time.Duration `split_words:"true" default:"720h"`
}

func (c UpstashConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func NewUpstashSink(cfg UpstashConfig, opts ...Option) (*UpstashSink, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	sink := &UpstashSink{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultKeyPrefix,
		ttl:        ttl,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sink)
		}
	}
	if sink.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return sink, nil
}

func (s *UpstashSink) Record(ctx context.Context, rec contractx.AuditRecord) error {
	key, err := s.redisKey(rec.RequestID)
	if err != nil {
		return err
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	} else {
		rec.At = rec.At.UTC()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashSink) Load(ctx context.Context, requestID string) (*contractx.AuditRecord, error) {
	key, err := s.redisKey(requestID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrRecordNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode audit payload: %w", err)
	}
	var rec contractx.AuditRecord
	if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal audit record: %w", err)
	}
	return &rec, nil
}

// Ping reads a key that is never written. A miss proves the store answers.
func (s *UpstashSink) Ping(ctx context.Context) error {
	_, err := s.Load(ctx, pingRequestID)
	if err == nil || errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	return err
}

func (s *UpstashSink) redisKey(requestID string) (string, error) {
	if strings.TrimSpace(requestID) == "" {
		return "", ErrInvalidRequest
	}
	return strings.TrimSpace(s.keyPrefix) + requestID, nil
}

func (s *UpstashSink) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
