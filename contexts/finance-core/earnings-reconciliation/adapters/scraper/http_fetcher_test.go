package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
)

func TestHTTPFetcherParsesViewCount(t *testing.T) {
	var gotPath, gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"views":12345,"success":true}`))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.URL+"/", time.Second, 0)
	result, err := fetcher.FetchViewCount(context.Background(), "https://youtu.be/abc?t=1", entities.PlatformYouTube)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !result.Success || result.Views != 12345 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gotPath != "/v1/views/youtube" || gotURL != "https://youtu.be/abc?t=1" {
		t.Fatalf("unexpected request path=%s url=%s", gotPath, gotURL)
	}
}

func TestHTTPFetcherMapsStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		expect error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, expect: domainerrors.ErrRateLimited},
		{name: "not found", status: http.StatusNotFound, expect: domainerrors.ErrScrapeFailed},
		{name: "bad gateway", status: http.StatusBadGateway, expect: domainerrors.ErrScrapeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			_, err := NewHTTPFetcher(server.URL, time.Second, 0).FetchViewCount(context.Background(), "https://tiktok.com/v/1", entities.PlatformTikTok)
			if !errors.Is(err, tc.expect) {
				t.Fatalf("expected %v, got %v", tc.expect, err)
			}
		})
	}
}

func TestHTTPFetcherReportsMissingViewsAsUnsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"private video"}`))
	}))
	defer server.Close()

	result, err := NewHTTPFetcher(server.URL, time.Second, 0).FetchViewCount(context.Background(), "https://instagram.com/p/1", entities.PlatformInstagram)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Success {
		t.Fatalf("expected unsuccessful result, got %+v", result)
	}
}

type recordingFetcher struct {
	platforms []entities.Platform
}

func (f *recordingFetcher) FetchViewCount(_ context.Context, _ string, platform entities.Platform) (ports.FetchResult, error) {
	f.platforms = append(f.platforms, platform)
	return ports.FetchResult{Views: 1, Success: true}, nil
}

func TestRouterDispatchesByPlatform(t *testing.T) {
	tiktok := &recordingFetcher{}
	router := Router{TikTok: tiktok}

	if _, err := router.FetchViewCount(context.Background(), "u", entities.PlatformTikTok); err != nil {
		t.Fatalf("tiktok fetch: %v", err)
	}
	if len(tiktok.platforms) != 1 {
		t.Fatalf("expected tiktok fetcher to be called once")
	}
	if _, err := router.FetchViewCount(context.Background(), "u", entities.PlatformYouTube); !errors.Is(err, domainerrors.ErrScrapeFailed) {
		t.Fatalf("expected ErrScrapeFailed for unconfigured platform, got %v", err)
	}
	if _, err := router.FetchViewCount(context.Background(), "u", entities.Platform("myspace")); !errors.Is(err, domainerrors.ErrInvalidPlatform) {
		t.Fatalf("expected ErrInvalidPlatform, got %v", err)
	}
}
