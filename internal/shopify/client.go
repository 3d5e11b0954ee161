// Package shopify предоставляет клиент REST API витрины и типы её заказов.
package shopify

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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PageSize задаёт размер страницы при постраничной выгрузке заказов.
const PageSize = 250

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	maxResponseSize   = 32 * 1024 * 1024
)

// ErrNotConfigured возвращается, если клиент создан без адреса магазина или токена.
var ErrNotConfigured = errors.New("shopify client not configured")

// Config содержит параметры подключения к API витрины.
type Config struct {
	ShopName          string
	AccessToken       string
	APIVersion        string
	BaseURL           string
	RequestsPerSecond float64
	MaxRetries        int
	Timeout           time.Duration
}

// Client инкапсулирует HTTP-взаимодействие с API витрины.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *retryablehttp.Client
	limiter     *rate.Limiter
}

// NewClient создаёт клиент API витрины. BaseURL имеет приоритет над ShopName и используется в тестах.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		if cfg.ShopName == "" {
			return nil, ErrNotConfigured
		}
		shop := strings.TrimSuffix(cfg.ShopName, ".myshopify.com")
		base = fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", shop, cfg.APIVersion)
	}
	if cfg.AccessToken == "" {
		return nil, ErrNotConfigured
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil
	if logger != nil {
		rc.Logger = leveledLogger{logger.Sugar().Named("shopify")}
	}

	return &Client{
		baseURL:     base,
		accessToken: cfg.AccessToken,
		httpClient:  rc,
		limiter:     rate.NewLimiter(rate.Limit(rps), int(rps*2)+1),
	}, nil
}

// FetchAllOrders выгружает все заказы магазина, следуя курсору page_info из заголовка Link.
// Элементы возвращаются в исходном виде; при любой ошибке уже полученные страницы отбрасываются.
func (c *Client) FetchAllOrders(ctx context.Context) ([]json.RawMessage, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("status", "any")
	query.Set("limit", fmt.Sprint(PageSize))

	var all []json.RawMessage
	for {
		page, next, err := c.fetchOrdersPage(ctx, query)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if next == "" {
			return all, nil
		}

		query = url.Values{}
		query.Set("limit", fmt.Sprint(PageSize))
		query.Set("page_info", next)
	}
}

func (c *Client) fetchOrdersPage(ctx context.Context, query url.Values) ([]json.RawMessage, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/orders.json?"+query.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch orders: unexpected status: %d", resp.StatusCode)
	}

	var page ordersPage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decode orders page: %w", err)
	}

	return page.Orders, NextPageInfo(resp.Header.Get("Link")), nil
}

// UpdateOrder отправляет частичное обновление заказа в витрину.
func (c *Client) UpdateOrder(ctx context.Context, externalID string, upd OrderUpdate) error {
	if c == nil {
		return ErrNotConfigured
	}

	upd.ID = externalID
	body, err := json.Marshal(map[string]OrderUpdate{"order": upd})
	if err != nil {
		return fmt.Errorf("encode order update: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(externalID)+".json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update order %s: unexpected status: %d", externalID, resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(accessTokenHeader, c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// NextPageInfo извлекает курсор page_info из ссылки rel="next" заголовка Link.
func NextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		isNext := false
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				isNext = true
				break
			}
		}
		if !isNext {
			continue
		}

		raw := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return u.Query().Get("page_info")
	}
	return ""
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
