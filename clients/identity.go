package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"activities-service/utils"

	"github.com/sony/gobreaker"
)

// AuthRecord is the identity provider's view of one phone number. UID is
// empty when no account exists for the number.
type AuthRecord struct {
	PhoneNumber  string   `json:"phoneNumber"`
	UID          string   `json:"uid"`
	DisplayName  string   `json:"displayName"`
	PhotoURL     string   `json:"photoURL"`
	Disabled     bool     `json:"disabled"`
	AdminOffices []string `json:"adminOffices"`
}

// IdentityProvider resolves phone numbers to accounts and manages the
// admin claims attached to them.
type IdentityProvider interface {
	LookupByPhone(ctx context.Context, phone string) (AuthRecord, error)
	SetAdminClaims(ctx context.Context, uid string, offices []string) error
	DeleteUser(ctx context.Context, uid string) error
}

// UsersClient talks to the users service over HTTP.
type UsersClient struct {
	baseURL string
	http    *utils.HTTPClient
	cb      *gobreaker.CircuitBreaker
}

func NewUsersClient(baseURL string, httpClient *utils.HTTPClient, cb *gobreaker.CircuitBreaker) *UsersClient {
	return &UsersClient{baseURL: baseURL, http: httpClient, cb: cb}
}

// LookupByPhone resolves a phone number. An unknown number is not an
// error; the zero-UID record is returned instead.
func (c *UsersClient) LookupByPhone(ctx context.Context, phone string) (AuthRecord, error) {
	endpoint := fmt.Sprintf("%s/api/users/by-phone/%s", c.baseURL, url.PathEscape(phone))

	status, body, err := c.http.Get(ctx, c.cb, endpoint)
	if err != nil {
		return AuthRecord{}, fmt.Errorf("identity lookup for %s failed: %v", phone, err)
	}
	if status == http.StatusNotFound {
		return AuthRecord{PhoneNumber: phone}, nil
	}
	if status != http.StatusOK {
		return AuthRecord{}, fmt.Errorf("identity lookup for %s returned status %d", phone, status)
	}

	var record AuthRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return AuthRecord{}, fmt.Errorf("failed to decode identity response: %v", err)
	}
	record.PhoneNumber = phone
	return record, nil
}

// SetAdminClaims replaces the set of offices the account administers.
func (c *UsersClient) SetAdminClaims(ctx context.Context, uid string, offices []string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"uid":          uid,
		"adminOffices": offices,
	})
	if err != nil {
		return fmt.Errorf("failed to encode claims payload: %v", err)
	}

	endpoint := fmt.Sprintf("%s/api/users/%s/claims", c.baseURL, url.PathEscape(uid))
	status, _, err := c.http.Post(ctx, c.cb, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to set claims for %s: %v", uid, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("setting claims for %s returned status %d", uid, status)
	}
	return nil
}

// DeleteUser removes the account. Used when an employee's phone number
// changes and the old number's account must go away.
func (c *UsersClient) DeleteUser(ctx context.Context, uid string) error {
	endpoint := fmt.Sprintf("%s/api/users/%s", c.baseURL, url.PathEscape(uid))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	status, _, err := c.http.Do(c.cb, req)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %v", uid, err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("deleting user %s returned status %d", uid, status)
	}
	return nil
}
