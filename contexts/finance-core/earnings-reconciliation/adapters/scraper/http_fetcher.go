package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
)

type viewCountResponse struct {
	Views   *int64 `json:"views"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HTTPFetcher asks a scraper service for a clip's view count:
// GET {base}/v1/views/{platform}?url=...
type HTTPFetcher struct {
	baseURL string
	client  *httpclient.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration, retries int) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	backoff := heimdall.NewConstantBackoff(200*time.Millisecond, 100*time.Millisecond)
	return &HTTPFetcher{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(timeout),
			httpclient.WithRetryCount(retries),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
	}
}

func (f *HTTPFetcher) FetchViewCount(ctx context.Context, clipURL string, platform entities.Platform) (ports.FetchResult, error) {
	endpoint := fmt.Sprintf("%s/v1/views/%s?url=%s", f.baseURL, platform, url.QueryEscape(clipURL))
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.FetchResult{}, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := f.client.Do(request)
	if err != nil {
		return ports.FetchResult{}, fmt.Errorf("%w: %v", domainerrors.ErrScrapeFailed, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<16))
	if err != nil {
		return ports.FetchResult{}, fmt.Errorf("%w: read body: %v", domainerrors.ErrScrapeFailed, err)
	}
	switch {
	case response.StatusCode == http.StatusTooManyRequests:
		return ports.FetchResult{}, domainerrors.ErrRateLimited
	case response.StatusCode == http.StatusNotFound:
		return ports.FetchResult{}, fmt.Errorf("%w: clip not found on %s", domainerrors.ErrScrapeFailed, platform)
	case response.StatusCode >= 300:
		return ports.FetchResult{}, fmt.Errorf("%w: scraper returned %d", domainerrors.ErrScrapeFailed, response.StatusCode)
	}

	var payload viewCountResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.FetchResult{}, fmt.Errorf("%w: decode: %v", domainerrors.ErrScrapeFailed, err)
	}
	if payload.Views == nil || *payload.Views < 0 {
		return ports.FetchResult{Success: false}, nil
	}
	return ports.FetchResult{Views: *payload.Views, Success: payload.Success}, nil
}
