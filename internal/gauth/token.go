package gauth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fieldledger/internal/faults"
)

const (
	spreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"
	jwtBearerGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// safetyMargin is how much remaining lifetime a cached token must have
	// to be reused without a new exchange.
	safetyMargin = 60 * time.Second

	// assertionLifetime is the exp - iat window on the signed assertion.
	assertionLifetime = time.Hour
)

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache hands out a valid bearer token, re-exchanging only when the
// cached one is expired or inside the safety margin. The cache is a
// read-then-conditionally-replace atomic pointer with no critical section:
// two concurrent misses may both exchange, which is benign since either
// token works. Cache hits are side-effect-free.
type TokenCache struct {
	sa         *ServiceAccount
	httpClient *http.Client
	logger     *slog.Logger

	// now is injectable for tests.
	now func() time.Time

	current atomic.Pointer[cachedToken]
}

// Option customizes a TokenCache.
type Option func(*TokenCache)

// WithHTTPClient overrides the exchange HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(tc *TokenCache) { tc.httpClient = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(tc *TokenCache) { tc.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(tc *TokenCache) { tc.logger = l }
}

// NewTokenCache creates a cache for the given service account.
func NewTokenCache(sa *ServiceAccount, opts ...Option) *TokenCache {
	tc := &TokenCache{
		sa:         sa,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Token returns a bearer token for the spreadsheet API. No retries: a failed
// exchange is fatal to the calling request and retry policy belongs to the
// caller.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	if tc.sa == nil {
		return "", faults.New(faults.CredentialExchangeFailed, "service identity not configured")
	}

	now := tc.now()
	if cur := tc.current.Load(); cur != nil && cur.expiresAt.Sub(now) > safetyMargin {
		return cur.token, nil
	}

	assertion, err := tc.signAssertion(now)
	if err != nil {
		return "", faults.Wrap(faults.CredentialExchangeFailed, "signing assertion", err)
	}

	token, expiresIn, err := tc.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	tc.current.Store(&cachedToken{
		token:     token,
		expiresAt: now.Add(time.Duration(expiresIn) * time.Second),
	})
	tc.logger.Debug("exchanged service credential", "expires_in", expiresIn)
	return token, nil
}

func (tc *TokenCache) signAssertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   tc.sa.ClientEmail,
		"scope": spreadsheetsScope,
		"aud":   tc.sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(tc.sa.key)
}

func (tc *TokenCache) exchange(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, faults.Wrap(faults.CredentialExchangeFailed, "creating exchange request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return "", 0, faults.Wrap(faults.CredentialExchangeFailed, "token exchange request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, faults.Wrap(faults.CredentialExchangeFailed, "reading exchange response", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Raw provider body is kept for server-side diagnostics only.
		return "", 0, faults.Newf(faults.CredentialExchangeFailed,
			"token endpoint status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", 0, faults.Wrap(faults.CredentialExchangeFailed, "unmarshaling exchange response", err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, faults.New(faults.CredentialExchangeFailed, "token endpoint returned no access_token")
	}
	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}

// Unconfigured returns a cache that fails every Token call. Used when the
// service identity is absent so the failure surfaces per request, matching
// the health endpoint's hasServiceAccount=false.
func Unconfigured() *TokenCache {
	return NewTokenCache(nil)
}
