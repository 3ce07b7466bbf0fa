package entities

import (
	"fmt"
	"strings"

	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
)

// Platform is the closed set of external platforms clips can be tracked on.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

func AllPlatforms() []Platform {
	return []Platform{
		PlatformTikTok,
		PlatformYouTube,
		PlatformInstagram,
		PlatformTwitter,
		PlatformFacebook,
	}
}

// ParsePlatform validates a raw platform name at the system boundary.
// Matching is case-insensitive; "x" is accepted as an alias for twitter.
func ParsePlatform(raw string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tiktok":
		return PlatformTikTok, nil
	case "youtube":
		return PlatformYouTube, nil
	case "instagram":
		return PlatformInstagram, nil
	case "twitter", "x":
		return PlatformTwitter, nil
	case "facebook":
		return PlatformFacebook, nil
	default:
		return "", fmt.Errorf("%w: %q", domainerrors.ErrInvalidPlatform, raw)
	}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformYouTube, PlatformInstagram, PlatformTwitter, PlatformFacebook:
		return true
	default:
		return false
	}
}
