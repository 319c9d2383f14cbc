package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"
)

// OrderFetcher performs the Uber Eats resource_href → full-order fetch
// (spec §4.6 step 5). Swappable behind an interface so tests never hit the
// network, mirroring the teacher's pkg/integration/callout.go Caller shape.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, accessToken, resourceHref string) (json.RawMessage, error)
}

// HTTPOrderFetcher fetches an order resource over HTTP using a
// bearer-token-authenticated GET.
type HTTPOrderFetcher struct {
	Client *http.Client
}

// FetchOrder implements OrderFetcher.
func (f *HTTPOrderFetcher) FetchOrder(ctx context.Context, accessToken, resourceHref string) (json.RawMessage, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceHref, nil)
	if err != nil {
		return nil, fmt.Errorf("building order fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching order resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading order fetch response: %w", err)
	}
	return body, nil
}

// UberEatsTokenConfig builds the client-credentials token source used for
// the resource_href fetch (spec §4.6 step 5: "perform a client-credentials
// OAuth exchange against the provider token endpoint").
func UberEatsTokenConfig(clientID, clientSecret, tokenEndpoint string) clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenEndpoint,
	}
}

// resolveUberEatsPayload resolves the full order body for Uber Eats webhook
// envelopes carrying a resource_href, falling back to the raw webhook body
// on any failure in the exchange or fetch (spec §4.6 step 5).
func resolveUberEatsPayload(ctx context.Context, cfg clientcredentials.Config, fetcher OrderFetcher, rawBody []byte) []byte {
	var envelope struct {
		ResourceHref string `json:"resource_href"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil || envelope.ResourceHref == "" {
		return rawBody
	}

	token, err := cfg.Token(ctx)
	if err != nil {
		return rawBody
	}

	full, err := fetcher.FetchOrder(ctx, token.AccessToken, envelope.ResourceHref)
	if err != nil {
		return rawBody
	}
	return full
}
