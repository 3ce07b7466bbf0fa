package scraper

import (
	"context"
	"fmt"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
)

// Router dispatches each platform to its own fetcher. A nil entry means the
// platform has no scraper configured.
type Router struct {
	TikTok    ports.ViewCountFetcher
	YouTube   ports.ViewCountFetcher
	Instagram ports.ViewCountFetcher
	Twitter   ports.ViewCountFetcher
	Facebook  ports.ViewCountFetcher
}

// NewUniformRouter routes every platform to the same fetcher.
func NewUniformRouter(fetcher ports.ViewCountFetcher) Router {
	return Router{
		TikTok:    fetcher,
		YouTube:   fetcher,
		Instagram: fetcher,
		Twitter:   fetcher,
		Facebook:  fetcher,
	}
}

func (r Router) FetchViewCount(ctx context.Context, clipURL string, platform entities.Platform) (ports.FetchResult, error) {
	var fetcher ports.ViewCountFetcher
	switch platform {
	case entities.PlatformTikTok:
		fetcher = r.TikTok
	case entities.PlatformYouTube:
		fetcher = r.YouTube
	case entities.PlatformInstagram:
		fetcher = r.Instagram
	case entities.PlatformTwitter:
		fetcher = r.Twitter
	case entities.PlatformFacebook:
		fetcher = r.Facebook
	default:
		return ports.FetchResult{}, fmt.Errorf("%w: %q", domainerrors.ErrInvalidPlatform, platform)
	}
	if fetcher == nil {
		return ports.FetchResult{}, fmt.Errorf("%w: no scraper for %s", domainerrors.ErrScrapeFailed, platform)
	}
	return fetcher.FetchViewCount(ctx, clipURL, platform)
}
