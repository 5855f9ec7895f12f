package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL  = "https://www.strava.com/api/v3"
	defaultTokenURL = "https://www.strava.com/oauth/token"
)

// Client talks to the Strava API on behalf of a single athlete.
// Access tokens are obtained lazily from the long-lived refresh token
// and reused until they expire.
type Client struct {
	refreshToken string
	clientID     string
	clientSecret string

	baseURL    string
	tokenURL   string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   int64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API and token endpoints. Used by tests.
func WithBaseURL(apiURL, tokenURL string) Option {
	return func(c *Client) {
		c.baseURL = apiURL
		c.tokenURL = tokenURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Strava API client from OAuth application
// credentials and an athlete refresh token.
func NewClient(refreshToken, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		refreshToken: refreshToken,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ensureToken refreshes the access token if it is missing or expired.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Unix() < c.expiresAt {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {c.refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token refresh failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = token.AccessToken
	c.expiresAt = token.ExpiresAt
	return c.accessToken, nil
}

// get performs an authenticated GET against an API endpoint and decodes
// the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("strava API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// Activities returns the athlete's activities, newest first. before and
// after are Unix timestamps; zero means unbounded.
func (c *Client) Activities(ctx context.Context, limit int, before, after int64) ([]Activity, error) {
	params := url.Values{"per_page": {strconv.Itoa(limit)}}
	if before > 0 {
		params.Set("before", strconv.FormatInt(before, 10))
	}
	if after > 0 {
		params.Set("after", strconv.FormatInt(after, 10))
	}

	var raw []apiActivity
	if err := c.get(ctx, "athlete/activities", params, &raw); err != nil {
		return nil, err
	}

	activities := make([]Activity, len(raw))
	for i := range raw {
		activities[i] = raw[i].toActivity()
	}
	return activities, nil
}

// Activity returns detailed information about a single activity.
func (c *Client) Activity(ctx context.Context, activityID int64) (*Activity, error) {
	var raw apiActivity
	if err := c.get(ctx, fmt.Sprintf("activities/%d", activityID), nil, &raw); err != nil {
		return nil, err
	}
	activity := raw.toActivity()
	return &activity, nil
}

// ActivityStreams returns time-series data for an activity, keyed by
// stream type (heartrate, pace, altitude, cadence, ...).
func (c *Client) ActivityStreams(ctx context.Context, activityID int64, keys []string) (StreamSet, error) {
	params := url.Values{
		"keys":        {strings.Join(keys, ",")},
		"key_by_type": {"true"},
	}
	var streams StreamSet
	if err := c.get(ctx, fmt.Sprintf("activities/%d/streams", activityID), params, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// ActivityLaps returns the laps of an activity.
func (c *Client) ActivityLaps(ctx context.Context, activityID int64) ([]Lap, error) {
	var laps []Lap
	if err := c.get(ctx, fmt.Sprintf("activities/%d/laps", activityID), nil, &laps); err != nil {
		return nil, err
	}
	return laps, nil
}
