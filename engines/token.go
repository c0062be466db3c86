package engines

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenExpiryMargin = 60 * time.Second
	defaultTokenTTL   = time.Hour
)

// TokenProvider exchanges client credentials for Reddit API tokens and
// caches them until shortly before expiry, so back-to-back searches reuse
// one exchange.
type TokenProvider struct {
	source oauth2.TokenSource
}

func NewTokenProvider(clientID, clientSecret string) *TokenProvider {
	return NewTokenProviderWithURL(clientID, clientSecret, redditTokenURL)
}

func NewTokenProviderWithURL(clientID, clientSecret, tokenURL string) *TokenProvider {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// Reddit rejects token requests without a descriptive User-Agent.
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &userAgentTransport{
			base: http.DefaultTransport,
		},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	src := &exchangeSource{ctx: ctx, conf: conf}
	return &TokenProvider{
		source: oauth2.ReuseTokenSourceWithExpiry(nil, src, tokenExpiryMargin),
	}
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to exchange credentials: %w", err)
	}
	return tok.AccessToken, nil
}

// exchangeSource performs a fresh client_credentials exchange on every
// Token call. Caching lives in the reuse source wrapping it.
type exchangeSource struct {
	ctx  context.Context
	conf *clientcredentials.Config
}

func (s *exchangeSource) Token() (*oauth2.Token, error) {
	tok, err := s.conf.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = time.Now().Add(defaultTokenTTL)
	}
	return tok, nil
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", redditUserAgent)
	return t.base.RoundTrip(req)
}
