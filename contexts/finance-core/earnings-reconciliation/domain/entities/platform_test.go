package entities

import (
	"errors"
	"testing"

	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
)

func TestParsePlatform(t *testing.T) {
	cases := map[string]Platform{
		"tiktok":    PlatformTikTok,
		" YouTube ": PlatformYouTube,
		"INSTAGRAM": PlatformInstagram,
		"x":         PlatformTwitter,
		"Twitter":   PlatformTwitter,
		"facebook":  PlatformFacebook,
	}
	for raw, want := range cases {
		got, err := ParsePlatform(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want || !got.Valid() {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}

	for _, platform := range AllPlatforms() {
		if parsed, err := ParsePlatform(string(platform)); err != nil || parsed != platform {
			t.Fatalf("round trip of %s failed: %v", platform, err)
		}
	}

	if _, err := ParsePlatform("myspace"); !errors.Is(err, domainerrors.ErrInvalidPlatform) {
		t.Fatalf("expected ErrInvalidPlatform, got %v", err)
	}
	if Platform("myspace").Valid() {
		t.Fatalf("unknown platform must not be valid")
	}
}
