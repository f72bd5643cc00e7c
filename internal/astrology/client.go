package astrology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/202030481266/FengWenServer/internal/metrics"
	"github.com/202030481266/FengWenServer/internal/platform/retry"
)

// Upstream endpoints on the fortune-telling API.
const (
	endpointBazi      = "Bazi/cesuan"
	endpointZhengyuan = "Yuce/zhengyuan"
	endpointLiudao    = "Yuce/liudaolunhui"
)

// Client calls the fortune-telling API. All endpoints take the same
// form-encoded subject fields and differ only in path.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// The provider allows a couple of requests per second per key.
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.status)
}

func classifyCallError(err error) retry.Action {
	var se *statusError
	if errors.As(err, &se) {
		return retry.ClassifyHTTPStatus(se.status)
	}
	// Network-level failures are worth one more try.
	return retry.Retry
}

func (c *Client) callEndpoint(ctx context.Context, endpoint, name, gender string, birthDate time.Time, birthTime string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	hour, minute, ok := strings.Cut(birthTime, ":")
	if !ok {
		return nil, fmt.Errorf("invalid birth time %q, want HH:MM", birthTime)
	}

	sex := "1"
	if strings.EqualFold(gender, "male") {
		sex = "0"
	}

	form := url.Values{
		"api_key": {c.apiKey},
		"name":    {name},
		"sex":     {sex},
		"type":    {"1"},
		"year":    {strconv.Itoa(birthDate.Year())},
		"month":   {strconv.Itoa(int(birthDate.Month()))},
		"day":     {strconv.Itoa(birthDate.Day())},
		"hours":   {hour},
		"minute":  {minute},
	}

	policy := retry.Policy{
		MaxAttempts:      3,
		InitialBackoff:   500 * time.Millisecond,
		RateLimitBackoff: 5 * time.Second,
	}

	result, err := retry.Do(ctx, policy, classifyCallError, func() (map[string]any, error) {
		return c.postForm(ctx, endpoint, form)
	})
	if err != nil {
		metrics.AstrologyAPICalls.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}

	metrics.AstrologyAPICalls.WithLabelValues(endpoint, "success").Inc()
	return FilterImageFields(result).(map[string]any), nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{status: resp.StatusCode}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return payload, nil
}

// PreviewResult fetches the bazi reading only. The preview shown before
// payment never needs the other two endpoints.
func (c *Client) PreviewResult(ctx context.Context, name, gender string, birthDate time.Time, birthTime string) (map[string]any, error) {
	return c.callEndpoint(ctx, endpointBazi, name, gender, birthDate, birthTime)
}

// FullResults fetches all three readings. Per-endpoint failures are recorded
// under an "error" key so partial results survive a flaky upstream.
func (c *Client) FullResults(ctx context.Context, name, gender string, birthDate time.Time, birthTime string) map[string]any {
	endpoints := map[string]string{
		"bazi":      endpointBazi,
		"zhengyuan": endpointZhengyuan,
		"liudao":    endpointLiudao,
	}

	results := make(map[string]any, len(endpoints))
	for key, endpoint := range endpoints {
		result, err := c.callEndpoint(ctx, endpoint, name, gender, birthDate, birthTime)
		if err != nil {
			results[key] = map[string]any{"error": err.Error()}
			continue
		}
		results[key] = result
	}
	return results
}
