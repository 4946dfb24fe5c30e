package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

const (
	defaultHTTPTimeout  = 5 * time.Second
	maxResponseBodySize = 1 << 20
	skuCodeParam        = "skuCode"
)

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (таймауты, транспорт).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPropagator задаёт пропагатор trace context; по умолчанию берётся глобальный.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(c *Client) {
		if propagator != nil {
			c.propagator = propagator
		}
	}
}

// Client запрашивает наличие товаров у inventory-service по HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	propagator propagation.TextMapPropagator
	logger     *log.Entry
}

// NewClient создаёт клиента для endpoint вида http://inventory-service:8080/api/inventory.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse inventory endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("inventory endpoint must be absolute: %q", endpoint)
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     log.New().WithField("component", "inventory-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check выполняет один GET с повторяющимся параметром skuCode. Повторов нет.
// Сетевые ошибки, таймауты и не-2xx отдаются как ErrAvailabilityTransient,
// ошибки разбора ответа как ErrAvailabilityMalformed; обе матчатся на ErrAvailabilityCheckFailed.
func (c *Client) Check(ctx context.Context, skus []string) (domain.AvailabilityResult, error) {
	req, err := c.newRequest(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: build request: %w", domain.ErrAvailabilityCheckFailed, domain.ErrAvailabilityTransient, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrAvailabilityCheckFailed, domain.ErrAvailabilityTransient, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.WithContext(ctx).WithField("status", resp.StatusCode).Warn("inventory service returned non-2xx status")
		return nil, fmt.Errorf("%w: %w: unexpected status %d", domain.ErrAvailabilityCheckFailed, domain.ErrAvailabilityTransient, resp.StatusCode)
	}

	var result domain.AvailabilityResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrAvailabilityCheckFailed, domain.ErrAvailabilityMalformed, err)
	}

	return result, nil
}

func (c *Client) newRequest(ctx context.Context, skus []string) (*http.Request, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	query := u.Query()
	for _, sku := range skus {
		query.Add(skuCodeParam, sku)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	propagator := c.propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

var _ domain.AvailabilityClient = (*Client)(nil)
