package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"activities-service/utils"

	"github.com/sony/gobreaker"
)

// PushNotifier delivers comment notifications to devices. Delivery is
// fire and forget; callers log failures and move on.
type PushNotifier interface {
	Send(ctx context.Context, registrationToken, body string) error
}

// HTTPPushClient talks to the push gateway over HTTP.
type HTTPPushClient struct {
	baseURL string
	http    *utils.HTTPClient
	cb      *gobreaker.CircuitBreaker
}

func NewHTTPPushClient(baseURL string, httpClient *utils.HTTPClient, cb *gobreaker.CircuitBreaker) *HTTPPushClient {
	return &HTTPPushClient{baseURL: baseURL, http: httpClient, cb: cb}
}

func (c *HTTPPushClient) Send(ctx context.Context, registrationToken, body string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"to":         registrationToken,
		"priority":   "high",
		"timeToLive": 60,
		"data": map[string]string{
			"read": "1",
		},
		"notification": map[string]string{
			"body": body,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %v", err)
	}

	status, _, err := c.http.Post(ctx, c.cb, c.baseURL+"/send", payload)
	if err != nil {
		return fmt.Errorf("push delivery failed: %v", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("push delivery returned status %d", status)
	}
	return nil
}
