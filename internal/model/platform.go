package model

import "fmt"

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
)

// PlatformSpec carries the per-platform formatting contract: hard character
// bounds, hashtag and emoji caps, and the tone notes fed into prompts.
type PlatformSpec struct {
	MaxChars    int
	MinChars    int
	MaxHashtags int
	MaxEmoji    int
	ToneStyle   string
	FormatStyle string
}

var platformSpecs = map[Platform]PlatformSpec{
	PlatformInstagram: {
		MaxChars:    150,
		MinChars:    40,
		MaxHashtags: 5,
		MaxEmoji:    2,
		ToneStyle:   "Visual-focused, casual, engaging, lifestyle-oriented",
		FormatStyle: "Emoji-friendly, aspirational, call to engagement",
	},
	PlatformFacebook: {
		MaxChars:    80,
		MinChars:    40,
		MaxHashtags: 3,
		MaxEmoji:    1,
		ToneStyle:   "Conversational, friendly, community-focused",
		FormatStyle: "Personal connection, storytelling snippets",
	},
	PlatformTwitter: {
		MaxChars:    100,
		MinChars:    70,
		MaxHashtags: 2,
		MaxEmoji:    1,
		ToneStyle:   "Punchy, witty, trending",
		FormatStyle: "Quick impact, viral potential, shareworthy",
	},
	PlatformLinkedIn: {
		MaxChars:    300,
		MinChars:    150,
		MaxHashtags: 4,
		MaxEmoji:    0,
		ToneStyle:   "Professional, informative, thought-leadership",
		FormatStyle: "Industry insights, business value, expertise",
	},
}

// ParsePlatform validates a caller-supplied platform string.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if _, ok := platformSpecs[p]; !ok {
		return "", fmt.Errorf("unknown platform: %q", s)
	}
	return p, nil
}

// Spec returns the formatting contract for the platform.
func (p Platform) Spec() PlatformSpec {
	if spec, ok := platformSpecs[p]; ok {
		return spec
	}
	// Unknown platforms take the Instagram contract, matching the engine's
	// permissive handling of forward-compatible platform names.
	return platformSpecs[PlatformInstagram]
}

func (p Platform) String() string {
	return string(p)
}

// Platforms lists all supported platforms.
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformFacebook, PlatformTwitter, PlatformLinkedIn}
}
