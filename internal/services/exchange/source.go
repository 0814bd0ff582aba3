package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSource fetches rates from a JSON rate API. The endpoint is expected
// to answer GET {baseURL}/rates?from=USD&to=VND with
// {"rate": 25400.5, "timestamp": "...", "source": "..."}.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSource creates an upstream rate client.
func NewHTTPSource(baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type rateResponse struct {
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// FetchRate asks the upstream for a single pair quote.
func (s *HTTPSource) FetchRate(ctx context.Context, from, to string) (Quote, error) {
	if s.baseURL == "" {
		return Quote{}, fmt.Errorf("rate provider base url is empty")
	}

	url := fmt.Sprintf("%s/rates?from=%s&to=%s", s.baseURL, from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to reach rate provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return Quote{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedCurrency, from, to)
	case resp.StatusCode >= 400:
		return Quote{}, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("failed to decode rate response: %w", err)
	}

	quote := Quote{Rate: body.Rate, Timestamp: body.Timestamp, Source: body.Source}
	if quote.Source == "" {
		quote.Source = s.baseURL
	}
	if quote.Timestamp.IsZero() {
		quote.Timestamp = time.Now()
	}
	return quote, nil
}
