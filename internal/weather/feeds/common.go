// Package feeds holds the concrete forecast feed clients. Every feed
// performs a single upstream attempt per fetch behind a circuit breaker;
// a failed fetch degrades the caller's page and the next page load tries
// again.
package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"tripdesk/internal/weather"
)

// ErrMissingCredential reports a feed constructed without its API key.
// It surfaces at construction so a misconfigured deployment fails on boot,
// not on the first page load.
var ErrMissingCredential = errors.New("missing feed credential")

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes one attempt of the request through the circuit
// breaker. Any transport error, non-2xx status, or open breaker comes back
// wrapped in weather.ErrUpstream.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrUpstream, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", weather.ErrUpstream)
	}
	return resp, nil
}

// decodeBody reads the response body into v and closes it. A 2xx with a
// body that does not decode is still the feed's fault.
func decodeBody(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", weather.ErrUpstream, err)
	}
	return nil
}
