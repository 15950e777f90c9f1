package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	// Sandbox URLs
	SandboxTokenURL   = "https://api.sandbox.ebay.com/identity/v1/oauth2/token"
	SandboxAPIBaseURL = "https://api.sandbox.ebay.com"

	// Production URLs
	ProductionTokenURL   = "https://api.ebay.com/identity/v1/oauth2/token"
	ProductionAPIBaseURL = "https://api.ebay.com"
)

// Config holds eBay API configuration
type Config struct {
	ClientID     string
	ClientSecret string
	Sandbox      bool
	Scopes       []string

	// TokenURL and BaseURL override the sandbox/production endpoints
	// when set. Used by tests.
	TokenURL string
	BaseURL  string
}

// Client is the eBay API client used to refresh marketplace metadata
// (category shipping caps, store subscription tier). It authenticates
// with the client-credentials grant; no user login is involved.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient creates a new eBay API client
func NewClient(cfg Config) *Client {
	var tokenURL, baseURL string
	if cfg.Sandbox {
		tokenURL = SandboxTokenURL
		baseURL = SandboxAPIBaseURL
	} else {
		tokenURL = ProductionTokenURL
		baseURL = ProductionAPIBaseURL
	}
	if cfg.TokenURL != "" {
		tokenURL = cfg.TokenURL
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"https://api.ebay.com/oauth/api_scope"}
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       cfg.Scopes,
	}

	httpClient := cc.Client(context.Background())
	httpClient.Timeout = 30 * time.Second

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		baseURL:    baseURL,
	}
}

// IsConfigured returns true if eBay API credentials are set
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// doRequest makes a rate-limited authenticated API request
func (c *Client) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("ebay client not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// Amount holds monetary values
type Amount struct {
	Value    string `json:"value,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// shippingCostPolicy is one category's shipping constraint
type shippingCostPolicy struct {
	CategoryID      string  `json:"categoryId"`
	MaxShippingCost *Amount `json:"maxShippingCost,omitempty"`
}

type shippingCostPoliciesResponse struct {
	Policies []shippingCostPolicy `json:"shippingCostPolicies"`
}

// CategoryShippingCaps fetches the per-category maximum shipping charge
// for a marketplace. Categories without a cap are omitted.
func (c *Client) CategoryShippingCaps(ctx context.Context, marketplaceID string) (map[string]decimal.Decimal, error) {
	path := fmt.Sprintf("/sell/metadata/v1/marketplace/%s/get_shipping_cost_policies", marketplaceID)
	resp, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("fetch shipping cost policies: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("shipping cost policies: status %d: %s", resp.StatusCode, body)
	}

	var parsed shippingCostPoliciesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode shipping cost policies: %w", err)
	}

	caps := make(map[string]decimal.Decimal)
	for _, p := range parsed.Policies {
		if p.MaxShippingCost == nil || p.MaxShippingCost.Value == "" {
			continue
		}
		v, err := decimal.NewFromString(p.MaxShippingCost.Value)
		if err != nil {
			return nil, fmt.Errorf("category %s: bad max shipping cost %q: %w", p.CategoryID, p.MaxShippingCost.Value, err)
		}
		caps[p.CategoryID] = v
	}
	return caps, nil
}

type subscriptionResponse struct {
	Subscriptions []struct {
		SubscriptionType  string `json:"subscriptionType"`
		SubscriptionLevel string `json:"subscriptionLevel"`
	} `json:"subscriptions"`
}

// StoreSubscriptionLevel returns the seller's store subscription level
// ("BASIC", "PREMIUM", "ANCHOR"), or empty when there is no store.
func (c *Client) StoreSubscriptionLevel(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/sell/account/v1/subscription")
	if err != nil {
		return "", fmt.Errorf("fetch subscription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("subscription: status %d: %s", resp.StatusCode, body)
	}

	var parsed subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}

	for _, s := range parsed.Subscriptions {
		if s.SubscriptionType == "EBAY_STORE" {
			return s.SubscriptionLevel, nil
		}
	}
	return "", nil
}
