// Package upstream talks to the food classification model.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ClassifierClient calls POST {base}/predict_url/?image_url=... and reads
// {"category_id": n}.  Outbound calls share one rate limiter so a burst of
// uploads cannot overrun the model server.
type ClassifierClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClassifierClient builds a client; rps <= 0 disables limiting.
func NewClassifierClient(baseURL string, timeout time.Duration, rps int) *ClassifierClient {
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), rps*2)
	}
	return &ClassifierClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    lim,
	}
}

type predictResponse struct {
	CategoryID *uint32 `json:"category_id"`
}

// Classify returns the food category predicted for the image at imageURL.
func (c *ClassifierClient) Classify(ctx context.Context, imageURL string) (uint32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("classifier rate limit: %w", err)
	}
	endpoint := c.baseURL + "/predict_url/?" + url.Values{"image_url": {imageURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("read classifier response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out predictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode classifier response: %w", err)
	}
	if out.CategoryID == nil {
		return 0, fmt.Errorf("classifier response missing category_id")
	}
	return *out.CategoryID, nil
}
