package remote

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/dto"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
	"github.com/daybookapp/daybook/internal/ratelimit"
)

const (
	defaultRPS     = 10.0
	defaultBurst   = 20
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
	// HTTPClient overrides the default client (tests use httptest's).
	HTTPClient *http.Client
}

// Client is a rate-limited HTTP client for the backend API.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewClient creates a client for the backend at cfg.BaseURL.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps, burst := cfg.RPS, cfg.Burst
	if rps == 0 {
		rps = defaultRPS
	}
	if burst == 0 {
		burst = defaultBurst
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:    base,
		http:    httpClient,
		limiter: ratelimit.New(rps, burst),
		logger:  logger,
	}, nil
}

// Close releases the limiter's background goroutine.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Gateway returns both collections backed by this client.
func (c *Client) Gateway() Gateway {
	return Gateway{
		Events: &httpCollection{client: c, kind: domain.KindEvent},
		Todos:  &httpCollection{client: c, kind: domain.KindTask},
	}
}

// do executes one request and decodes the envelope's data into out (may be nil).
func (c *Client) do(ctx context.Context, collection, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx, collection); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "daybook-sync/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("remote request", "method", method, "path", u.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read response")
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		if resp.StatusCode >= 400 {
			return &domainerrors.Error{Code: domainerrors.CodeFromStatus(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
		}
		return nil
	}

	var env dto.Envelope[jsontext.Value]
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &domainerrors.Error{Code: domainerrors.CodeFromStatus(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
		}
		return domainerrors.Wrapf(err, domainerrors.CodeInternal, "malformed %s response", collection)
	}

	if resp.StatusCode >= 400 || !env.Success {
		code := domainerrors.Code(env.Code)
		if code == "" {
			code = domainerrors.CodeFromStatus(resp.StatusCode)
		}
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &domainerrors.Error{Code: code, Message: msg, Details: env.Details}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeInternal, "malformed %s response data", collection)
	}
	return nil
}

// httpCollection implements Collection for one kind.
type httpCollection struct {
	client *Client
	kind   domain.Kind
}

func (h *httpCollection) name() string { return CollectionName(h.kind) }

func scope(userID *string) url.Values {
	q := url.Values{}
	if userID != nil {
		q.Set("user_id", *userID)
	}
	return q
}

// GetAll implements Collection.
func (h *httpCollection) GetAll(ctx context.Context, userID *string) ([]domain.Item, error) {
	var items []domain.Item
	if err := h.client.do(ctx, h.name(), http.MethodGet, "/api/v1/"+h.name(), scope(userID), nil, &items); err != nil {
		return nil, err
	}
	return h.normalize(items), nil
}

// GetByDay implements Collection.
func (h *httpCollection) GetByDay(ctx context.Context, day int, userID *string) ([]domain.Item, error) {
	var items []domain.Item
	path := "/api/v1/" + h.name() + "/day/" + strconv.Itoa(day)
	if err := h.client.do(ctx, h.name(), http.MethodGet, path, scope(userID), nil, &items); err != nil {
		return nil, err
	}
	return h.normalize(items), nil
}

// Add implements Collection.
func (h *httpCollection) Add(ctx context.Context, item domain.Item) (*domain.Item, error) {
	var created *domain.Item
	body := dto.NewCreateItemRequest(item)
	if err := h.client.do(ctx, h.name(), http.MethodPost, "/api/v1/"+h.name(), nil, body, &created); err != nil {
		return nil, err
	}
	if created == nil || created.ID == "" {
		return nil, nil
	}
	created.Kind = h.kind
	created.Normalize()
	return created, nil
}

// Update implements Collection.
func (h *httpCollection) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Item, error) {
	var updated *domain.Item
	path := "/api/v1/" + h.name() + "/" + url.PathEscape(id)
	if err := h.client.do(ctx, h.name(), http.MethodPatch, path, nil, patch, &updated); err != nil {
		return nil, err
	}
	if updated != nil {
		updated.Kind = h.kind
		updated.Normalize()
	}
	return updated, nil
}

// Delete implements Collection.
func (h *httpCollection) Delete(ctx context.Context, id string) error {
	path := "/api/v1/" + h.name() + "/" + url.PathEscape(id)
	return h.client.do(ctx, h.name(), http.MethodDelete, path, nil, nil, nil)
}

// normalize stamps the collection's kind onto decoded items; the path is authoritative.
func (h *httpCollection) normalize(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	for i := range items {
		items[i].Kind = h.kind
		items[i].Normalize()
	}
	return items
}
