package deals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 200 * time.Millisecond
	maxDelay          = 2 * time.Second
)

// Client reads deals over HTTP. Failed GETs are retried with exponential
// backoff when the failure is transient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries uint64
	BaseDelay  time.Duration
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
	}
}

// ListDeals returns one page of deals matching q.
func (c *Client) ListDeals(ctx context.Context, q Query) ([]Deal, error) {
	params := url.Values{}
	if q.StoreID != "" {
		params.Set("storeID", q.StoreID)
	}
	if q.SortBy != "" {
		params.Set("sortBy", string(q.SortBy))
	}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.UpperPrice.IsPositive() {
		params.Set("upperPrice", q.UpperPrice.String())
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.PageNumber > 0 {
		params.Set("pageNumber", strconv.Itoa(q.PageNumber))
	}

	var out []Deal
	if err := c.get(ctx, "/deals", params, &out); err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return out, nil
}

// GetDeal looks up a single deal by its id.
func (c *Client) GetDeal(ctx context.Context, id string) (DealDetail, error) {
	if strings.TrimSpace(id) == "" {
		return DealDetail{}, ErrNotFound
	}

	var raw json.RawMessage
	if err := c.get(ctx, "/deals", url.Values{"id": {id}}, &raw); err != nil {
		return DealDetail{}, fmt.Errorf("get deal %s: %w", id, err)
	}

	// Unknown ids come back as an empty array.
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return DealDetail{}, fmt.Errorf("get deal %s: %w", id, ErrNotFound)
	}

	var out DealDetail
	if err := json.Unmarshal(raw, &out); err != nil {
		return DealDetail{}, fmt.Errorf("get deal %s: decode response: %w", id, err)
	}
	return out, nil
}

func (c *Client) backoff() retry.Backoff {
	base := c.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxDelay, b)
	return retry.WithMaxRetries(c.MaxRetries, b)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := c.getOnce(ctx, path, endpoint, target)
		if err == nil {
			return nil
		}

		var se *StatusError
		if errors.As(err, &se) && se.retryable() {
			return retry.RetryableError(err)
		}
		if errors.Is(err, ErrUnavailable) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) getOnce(ctx context.Context, path, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &StatusError{StatusCode: resp.StatusCode, Path: path}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response body: %w", ErrUnavailable, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
