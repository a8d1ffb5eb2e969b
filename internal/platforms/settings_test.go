package platforms_test

import (
	"errors"
	"testing"

	"dualout/internal/display"
	"dualout/internal/platforms"
	"dualout/internal/testsupport"
)

func TestFromConfigUsesDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settings, err := platforms.FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if d, ok := settings.Display("TikTok"); !ok || d != display.Vertical {
		t.Fatalf("tiktok display = %q,%v", d, ok)
	}
	if d, ok := settings.Display("twitch"); !ok || d != display.Horizontal {
		t.Fatalf("twitch display = %q,%v", d, ok)
	}
}

func TestValidateGoLive(t *testing.T) {
	settings, err := platforms.New(map[string]display.Display{
		"twitch":  display.Horizontal,
		"youtube": display.Horizontal,
		"tiktok":  display.Vertical,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		name         string
		dualOutput   bool
		destinations []string
		want         error
	}{
		{"single output one platform", false, []string{"twitch"}, nil},
		{"single output vertical only", false, []string{"tiktok"}, nil},
		{"dual output horizontal only", true, []string{"twitch", "youtube"}, platforms.ErrDisplayCoverage},
		{"dual output vertical only", true, []string{"tiktok"}, platforms.ErrDisplayCoverage},
		{"dual output both displays", true, []string{"twitch", "tiktok"}, nil},
		{"unknown destination", true, []string{"twitch", "myspace"}, platforms.ErrUnknownDestination},
		{"nothing selected", false, nil, platforms.ErrUnknownDestination},
	}
	for _, tc := range cases {
		err := settings.ValidateGoLive(tc.dualOutput, tc.destinations)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestUpdateReassignsDisplay(t *testing.T) {
	settings, err := platforms.New(map[string]display.Display{"twitch": display.Horizontal, "youtube": ""})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := settings.ValidateGoLive(true, []string{"twitch", "youtube"}); !errors.Is(err, platforms.ErrDisplayCoverage) {
		t.Fatalf("expected coverage error, got %v", err)
	}
	if err := settings.Update(" YouTube ", display.Vertical); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := settings.ValidateGoLive(true, []string{"twitch", "youtube"}); err != nil {
		t.Fatalf("ValidateGoLive after update: %v", err)
	}
	if err := settings.Update("custom", display.Display("square")); err == nil {
		t.Fatal("expected invalid display to be rejected")
	}
	list := settings.List()
	if len(list) != 2 || list[0].Destination != "twitch" || list[1].Display != display.Vertical {
		t.Fatalf("unexpected list %+v", list)
	}
}
