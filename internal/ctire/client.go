// Package ctire calls the Canadian Tire retail APIs: the category tree,
// paginated product search, per-product family detail and batch SKU
// price/availability.
package ctire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"shelfsync/internal/config"
)

const (
	categoriesPath = "/v1/category/api/v1/categories"
	searchPath     = "/v1/search/search"
	productPath    = "/v1/product/api/v1/product/productFamily"
	pricePath      = "/v1/product/api/v1/product/sku/PriceAvailability"

	locale    = "en_CA"
	pageSize  = "100"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36 Edg/128.0.0.0"

	requestTimeout = 10 * time.Second
	retryMax       = 4

	// The upstream API is rate sensitive; keep outstanding requests bounded.
	requestsPerSecond = 3
)

// Client shapes requests against one site's API root. Transient failures
// (network errors, 5xx, 429) are retried with backoff by the transport.
type Client struct {
	apiRoot    string
	apiKey     string
	bannerID   string
	storeID    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client from a validated site configuration.
func NewClient(cfg config.Site) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	if cfg.HTTPClient != nil {
		retryClient.HTTPClient = cfg.HTTPClient
	} else {
		retryClient.HTTPClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		apiRoot:    strings.TrimRight(cfg.APIRoot, "/"),
		apiKey:     cfg.APIKey,
		bannerID:   cfg.BannerID,
		storeID:    cfg.StoreID,
		httpClient: retryClient.StandardClient(),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

// Categories fetches the full upstream category tree.
func (c *Client) Categories(ctx context.Context) ([]CategoryNode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiRoot+categoriesPath+"?lang="+locale, nil)
	if err != nil {
		return nil, fmt.Errorf("build categories request: %w", err)
	}
	req.Header.Set("Bannerid", c.bannerID)

	var envelope categoriesEnvelope
	if err := c.doJSON(ctx, req, "categories", &envelope); err != nil {
		return nil, err
	}
	return envelope.Categories, nil
}

// SearchProducts fetches one page of a category's product listing. Pages
// after the first carry the upstream's odd ";page=N" suffix on the store
// query; page 1 goes unqualified.
func (c *Client) SearchProducts(ctx context.Context, categoryID string, level, page int) (*SearchResults, error) {
	searchURL := c.apiRoot + searchPath + "?store=" + url.QueryEscape(c.storeID)
	if page > 1 {
		searchURL += fmt.Sprintf(";page=%d", page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Bannerid", c.bannerID)
	req.Header.Set("Categorycode", categoryID)
	req.Header.Set("Categorylevel", fmt.Sprintf("ast-id-level-%d", level))
	req.Header.Set("Count", pageSize)

	var results SearchResults
	if err := c.doJSON(ctx, req, "search", &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// ProductFamily fetches detail for one product code.
func (c *Client) ProductFamily(ctx context.Context, code string) (*ProductFamily, error) {
	params := url.Values{}
	params.Set("baseStoreId", c.bannerID)
	params.Set("lang", locale)
	params.Set("storeId", c.storeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiRoot+productPath+"/"+url.PathEscape(code)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build product request: %w", err)
	}

	var family ProductFamily
	if err := c.doJSON(ctx, req, "product family", &family); err != nil {
		return nil, err
	}
	return &family, nil
}

// PriceAvailability fetches price and stock for a batch of SKU codes.
func (c *Client) PriceAvailability(ctx context.Context, skus []string) (*PriceAvailability, error) {
	body := priceRequest{SKUs: make([]priceRequestSKU, 0, len(skus))}
	for _, sku := range skus {
		body.SKUs = append(body.SKUs, priceRequestSKU{Code: sku, LowStockThreshold: "0"})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal price request: %w", err)
	}

	params := url.Values{}
	params.Set("cache", "true")
	params.Set("lang", locale)
	params.Set("storeId", c.storeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiRoot+pricePath+"?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Bannerid", c.bannerID)
	req.Header.Set("Content-Type", "application/json")

	var prices PriceAvailability
	if err := c.doJSON(ctx, req, "price availability", &prices); err != nil {
		return nil, err
	}
	return &prices, nil
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, operation string, out any) error {
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Basesiteid", c.bannerID)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	slog.DebugContext(ctx, "calling retail API", "operation", operation, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", operation, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("read %s response: %w", operation, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", operation, err)
	}
	return nil
}
