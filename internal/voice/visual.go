package voice

import "strings"

// Visual styles a caption can steer the companion image toward.
const (
	StyleArtistic   = "artistic"
	StyleRustic     = "rustic"
	StyleModernCafe = "modern_cafe"
	StyleMinimalist = "minimalist"
)

var visualStyleDescriptions = map[string]string{
	StyleArtistic:   "dramatic latte art close-up, moody lighting, shallow depth of field",
	StyleRustic:     "warm wooden table, natural morning light, handcrafted ceramics",
	StyleModernCafe: "bright minimalist cafe interior, clean lines, soft natural light",
	StyleMinimalist: "single subject on neutral background, generous negative space",
}

var styleCues = map[string][]string{
	StyleArtistic:   {"art", "craft", "pour", "swirl", "design", "create", "barista"},
	StyleRustic:     {"cozy", "warm", "home", "comfort", "morning", "tradition", "roast"},
	StyleMinimalist: {"simple", "pure", "clean", "essential", "single", "black"},
}

// DetectVisualStyle picks an image style from cue words in the caption and
// keyword. Defaults to the cafe look when nothing stands out.
func DetectVisualStyle(caption, keyword string) string {
	text := strings.ToLower(caption + " " + keyword)

	best := StyleModernCafe
	bestHits := 0
	for _, style := range []string{StyleArtistic, StyleRustic, StyleMinimalist} {
		hits := 0
		for _, cue := range styleCues[style] {
			if strings.Contains(text, cue) {
				hits++
			}
		}
		if hits > bestHits {
			best = style
			bestHits = hits
		}
	}
	return best
}
