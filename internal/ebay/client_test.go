package ebay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeEbay serves the token endpoint plus whatever API routes the test
// registers.
func fakeEbay(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":7200}`))
	})
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				t.Error("request missing Authorization header")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/identity/v1/oauth2/token",
		BaseURL:      srv.URL,
	})
}

func TestIsConfigured(t *testing.T) {
	if NewClient(Config{}).IsConfigured() {
		t.Error("empty credentials reported as configured")
	}
	if !NewClient(Config{ClientID: "a", ClientSecret: "b"}).IsConfigured() {
		t.Error("credentials present but not reported as configured")
	}
}

func TestCategoryShippingCaps(t *testing.T) {
	srv := fakeEbay(t, map[string]string{
		"/sell/metadata/v1/marketplace/EBAY_US/get_shipping_cost_policies": `{
			"shippingCostPolicies": [
				{"categoryId": "64482", "maxShippingCost": {"value": "20.00", "currency": "USD"}},
				{"categoryId": "11450"},
				{"categoryId": "267", "maxShippingCost": {"value": "4.99", "currency": "USD"}}
			]
		}`,
	})

	caps, err := testClient(srv).CategoryShippingCaps(context.Background(), "EBAY_US")
	if err != nil {
		t.Fatalf("CategoryShippingCaps: %v", err)
	}

	if len(caps) != 2 {
		t.Fatalf("got %d caps, want 2 (uncapped category omitted)", len(caps))
	}
	if got := caps["64482"]; got.String() != "20" {
		t.Errorf("caps[64482] = %s, want 20", got)
	}
	if got := caps["267"]; got.String() != "4.99" {
		t.Errorf("caps[267] = %s, want 4.99", got)
	}
}

func TestCategoryShippingCapsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/identity/v1/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"t","token_type":"Bearer","expires_in":7200}`))
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(srv).CategoryShippingCaps(context.Background(), "EBAY_US")
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestStoreSubscriptionLevel(t *testing.T) {
	srv := fakeEbay(t, map[string]string{
		"/sell/account/v1/subscription": `{
			"subscriptions": [
				{"subscriptionType": "MOTORS", "subscriptionLevel": "STANDARD"},
				{"subscriptionType": "EBAY_STORE", "subscriptionLevel": "PREMIUM"}
			]
		}`,
	})

	level, err := testClient(srv).StoreSubscriptionLevel(context.Background())
	if err != nil {
		t.Fatalf("StoreSubscriptionLevel: %v", err)
	}
	if level != "PREMIUM" {
		t.Errorf("level = %q, want PREMIUM", level)
	}
}

func TestStoreSubscriptionLevelNoStore(t *testing.T) {
	srv := fakeEbay(t, map[string]string{
		"/sell/account/v1/subscription": `{"subscriptions": []}`,
	})

	level, err := testClient(srv).StoreSubscriptionLevel(context.Background())
	if err != nil {
		t.Fatalf("StoreSubscriptionLevel: %v", err)
	}
	if level != "" {
		t.Errorf("level = %q, want empty", level)
	}
}

func TestUnconfiguredClientRefusesRequests(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.CategoryShippingCaps(context.Background(), "EBAY_US"); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}
