package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

// HTTPSource implements traveltime.TableSource against a remote service that
// answers GET <base>?departure=CODE with a travel-time table.
type HTTPSource struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPSource creates an HTTPSource for baseURL.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	return &HTTPSource{
		name:    "http",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("traveltime-http"),
	}
}

// WithBackoff overrides the retry settings.
func (s *HTTPSource) WithBackoff(b BackoffConfig) *HTTPSource {
	s.httpCfg.Backoff = b
	return s
}

func (s *HTTPSource) Name() string {
	return s.name
}

func (s *HTTPSource) Fetch(ctx context.Context, departure string) (traveltime.Table, error) {
	if s.baseURL == "" {
		return traveltime.Table{}, fmt.Errorf("http table source requires a base URL")
	}

	buildRequest := func() (*http.Request, error) {
		u, err := url.Parse(s.baseURL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("departure", departure)
		u.RawQuery = q.Encode()

		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return traveltime.Table{}, err
	}
	defer resp.Body.Close()

	var table traveltime.Table
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return traveltime.Table{}, fmt.Errorf("decoding travel-time table: %w", err)
	}
	if table.Departure == "" {
		table.Departure = departure
	}
	return table, nil
}
