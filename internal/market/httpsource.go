package market

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

	"golang.org/x/time/rate"

	"github.com/gorewood/cadence/internal/output"
)

// HTTPDoer defines the HTTP operations required by HTTPSource.
// This allows injection of test doubles for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// tokenSkew renews the bearer token this long before it actually expires.
const tokenSkew = 30 * time.Second

// HTTPSource is a marketplace search API client. Requests carry a bearer
// token from a client-credentials token endpoint, cached until expiry, and
// pass through a rate limiter shared by both search kinds.
type HTTPSource struct {
	endpoint     string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   HTTPDoer
	limiter      *rate.Limiter
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewHTTPSource creates a source for the given search endpoint and
// client-credentials token endpoint. ratePerSecond caps outgoing requests;
// zero or negative means 2/s.
func NewHTTPSource(endpoint, tokenURL, clientID, clientSecret string, ratePerSecond float64) *HTTPSource {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &HTTPSource{
		endpoint:     strings.TrimRight(endpoint, "/"),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		now:          time.Now,
	}
}

// SearchActive returns live listings matching the query.
func (s *HTTPSource) SearchActive(ctx context.Context, query string, limit int) ([]Listing, error) {
	return s.search(ctx, query, "active", limit)
}

// SearchSold returns recently sold listings matching the query.
func (s *HTTPSource) SearchSold(ctx context.Context, query string, limit int) ([]Listing, error) {
	return s.search(ctx, query, "sold", limit)
}

// searchResponse is the search endpoint's reply envelope.
type searchResponse struct {
	Listings []Listing `json:"listings"`
}

func (s *HTTPSource) search(ctx context.Context, query, status string, limit int) ([]Listing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := s.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("status", status)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/listings?"+params.Encode(), nil)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to create search request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("search request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to read search response", err)
	}
	if resp.StatusCode != http.StatusOK {
		errBody := string(body)
		if len(errBody) > 500 {
			errBody = errBody[:500]
		}
		return nil, output.NewSystemError(fmt.Sprintf("search API error (status %d): %s", resp.StatusCode, errBody))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, output.NewSystemErrorWithCause("failed to parse search response", err)
	}
	return parsed.Listings, nil
}

// tokenResponse is the token endpoint's reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// bearerToken returns a cached token, fetching a fresh one when the cache
// is empty or near expiry.
func (s *HTTPSource) bearerToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.tokenExpiry.Add(-tokenSkew)) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", output.NewSystemErrorWithCause("failed to create token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", output.NewSystemErrorWithCause("token request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", output.NewSystemErrorWithCause("failed to read token response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", output.NewSystemError(fmt.Sprintf("token endpoint error (status %d)", resp.StatusCode))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", output.NewSystemErrorWithCause("failed to parse token response", err)
	}
	if parsed.AccessToken == "" {
		return "", output.NewSystemError("token endpoint returned no access token")
	}

	s.token = parsed.AccessToken
	s.tokenExpiry = s.now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	return s.token, nil
}
