package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabegon8910/server-donation-tool/internal/config"
)

// client is a thin wrapper over the PayPal REST API. Only the calls the
// gateway needs are implemented.
type client struct {
	httpClient   *http.Client
	baseApiURL   string
	clientID     string
	clientSecret string
}

func newClient(cfg *config.Paypal) *client {
	return &client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:   cfg.BaseApiURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

func extractLink(links []link, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

func (c *client) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.clientID + ":" + c.clientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	return res.AccessToken, nil
}

// call sends an authenticated JSON request and decodes the response into out
// (skipped when out is nil).
func (c *client) call(ctx context.Context, method, path string, payload, out any) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal error %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode paypal response: %w", err)
		}
	}
	return nil
}

type checkoutOrderResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

func (c *client) createCheckoutOrder(ctx context.Context, currency, value, customID, returnURL, cancelURL string) (*checkoutOrderResult, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"custom_id": customID,
				"amount": map[string]string{
					"currency_code": currency,
					"value":         value,
				},
			},
		},
		"application_context": map[string]string{
			"return_url": returnURL,
			"cancel_url": cancelURL,
		},
	}

	var result checkoutOrderResult
	if err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type captureResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID string `json:"id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *client) captureOrder(ctx context.Context, orderID string) (*captureResult, error) {
	var result captureResult
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := c.call(ctx, http.MethodPost, path, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type productResult struct {
	ID string `json:"id"`
}

func (c *client) getProduct(ctx context.Context, productID string) (*productResult, error) {
	var result productResult
	err := c.call(ctx, http.MethodGet, "/v1/catalogs/products/"+productID, nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) createProduct(ctx context.Context, productID, name, description string) (*productResult, error) {
	payload := map[string]string{
		"id":          productID,
		"name":        name,
		"description": description,
		"type":        "DIGITAL",
		"category":    "ONLINE_GAMING",
	}
	var result productResult
	if err := c.call(ctx, http.MethodPost, "/v1/catalogs/products", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) updateProduct(ctx context.Context, productID, name, description string) error {
	payload := []map[string]string{
		{"op": "replace", "path": "/name", "value": name},
		{"op": "replace", "path": "/description", "value": description},
	}
	return c.call(ctx, http.MethodPatch, "/v1/catalogs/products/"+productID, payload, nil)
}

type planResult struct {
	ID string `json:"id"`
}

func (c *client) createPlan(ctx context.Context, productID, name, currency, value string) (*planResult, error) {
	payload := map[string]any{
		"product_id": productID,
		"name":       name,
		"status":     "ACTIVE",
		"billing_cycles": []map[string]any{
			{
				"frequency": map[string]any{
					"interval_unit":  "MONTH",
					"interval_count": 1,
				},
				"tenure_type":  "REGULAR",
				"sequence":     1,
				"total_cycles": 0,
				"pricing_scheme": map[string]any{
					"fixed_price": map[string]string{
						"currency_code": currency,
						"value":         value,
					},
				},
			},
		},
		"payment_preferences": map[string]any{
			"auto_bill_outstanding":     true,
			"payment_failure_threshold": 3,
		},
	}
	var result planResult
	if err := c.call(ctx, http.MethodPost, "/v1/billing/plans", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// updatePlanPricing replaces the plan's fixed price in place; the plan id
// never changes, which keeps existing agreements intact.
func (c *client) updatePlanPricing(ctx context.Context, planID, currency, value string) error {
	payload := map[string]any{
		"pricing_schemes": []map[string]any{
			{
				"billing_cycle_sequence": 1,
				"pricing_scheme": map[string]any{
					"fixed_price": map[string]string{
						"currency_code": currency,
						"value":         value,
					},
				},
			},
		},
	}
	path := fmt.Sprintf("/v1/billing/plans/%s/update-pricing-schemes", planID)
	return c.call(ctx, http.MethodPost, path, payload, nil)
}

type subscriptionResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

func (c *client) createSubscription(ctx context.Context, planID, customID, returnURL, cancelURL string) (*subscriptionResult, error) {
	payload := map[string]any{
		"plan_id":   planID,
		"custom_id": customID,
		"application_context": map[string]string{
			"return_url": returnURL,
			"cancel_url": cancelURL,
		},
	}
	var result subscriptionResult
	if err := c.call(ctx, http.MethodPost, "/v1/billing/subscriptions", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) cancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	payload := map[string]string{"reason": reason}
	path := fmt.Sprintf("/v1/billing/subscriptions/%s/cancel", subscriptionID)
	return c.call(ctx, http.MethodPost, path, payload, nil)
}

type webhookResource struct {
	ID                string `json:"id"`
	CustomID          string `json:"custom_id"`
	BillingAgreement  string `json:"billing_agreement_id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

// RelatedOrderID recovers the checkout order a capture belongs to.
func (r webhookResource) RelatedOrderID() string {
	return r.SupplementaryData.RelatedIDs.OrderID
}

type webhookEventResult struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  webhookResource `json:"resource"`
}

// getWebhookEvent re-fetches the event by id from PayPal instead of trusting
// the delivered payload; the lookup doubles as authenticity verification.
func (c *client) getWebhookEvent(ctx context.Context, eventID string) (*webhookEventResult, error) {
	var result webhookEventResult
	err := c.call(ctx, http.MethodGet, "/v1/notifications/webhooks-events/"+eventID, nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
